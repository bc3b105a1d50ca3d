package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts_service/internal/models"
)

// ErrNotActive is returned when a rotation or revocation touches a token
// that is already revoked, replaced or expired. The service collapses it
// into the generic invalid-token error before it leaves the core.
var ErrNotActive = errors.New("refresh token is not active")

func (r *GormRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(token).Error
}

// RefreshByToken is the only lookup path for refresh tokens; records are
// never enumerated by id.
func (r *GormRepo) RefreshByToken(ctx context.Context, tokenStr string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", tokenStr).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *GormRepo) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Save(token).Error
}

// RotateRefreshToken revokes the old token and inserts its successor in a
// single transaction. The revoke is guarded on the row still being active,
// so of two concurrent rotations the first committer wins and the second
// gets ErrNotActive. A failure anywhere leaves the old token untouched.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldToken string, ip string, next *models.RefreshToken, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND revoked_at IS NULL AND expires_at > ?", oldToken, now).
			Updates(map[string]any{
				"revoked_at":        now,
				"revoked_by_ip":     ip,
				"replaced_by_token": next.Token,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotActive
		}

		return tx.Create(next).Error
	})
}

// RevokeRefreshToken marks an active token revoked without a successor.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, tokenStr string, ip string, now time.Time) error {
	result := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL AND expires_at > ?", tokenStr, now).
		Updates(map[string]any{
			"revoked_at":    now,
			"revoked_by_ip": ip,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotActive
	}
	return nil
}
