package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts_service/internal/models"
)

var ErrNotFound = errors.New("record not found")
var ErrAlreadyExists = errors.New("record already exists")

func (r *GormRepo) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *GormRepo) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *GormRepo) AccountByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	var account models.Account
	if err := r.DB.WithContext(ctx).
		Where("verification_token = ? AND verification_token <> ''", token).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *GormRepo) Accounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.DB.WithContext(ctx).Order("created").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *GormRepo) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRepo) CreateAccount(ctx context.Context, account *models.Account) error {
	var existing models.Account
	err := r.DB.WithContext(ctx).Where("email = ?", account.Email).First(&existing).Error
	if err == nil {
		return ErrAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.DB.WithContext(ctx).Create(account).Error
}

func (r *GormRepo) SaveAccount(ctx context.Context, account *models.Account) error {
	return r.DB.WithContext(ctx).Save(account).Error
}

func (r *GormRepo) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	result := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
