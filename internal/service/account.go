package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/accounts_service/internal/events"
	"github.com/Skotchmaster/accounts_service/internal/models"
	"github.com/Skotchmaster/accounts_service/internal/repo"
	pkg_hash "github.com/Skotchmaster/accounts_service/pkg/hash"
	"github.com/Skotchmaster/accounts_service/pkg/logging"
)

// AccountService is the plumbing around the token core: registration,
// email verification and the admin CRUD surface.
type AccountService struct {
	Repo   repo.GormRepo
	Events events.Publisher
	Now    func() time.Time
}

type RegisterParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type CreateParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type UpdateParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *AccountService) publish(ctx context.Context, topic, key string, event map[string]any) {
	if s.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "topic", topic, "error", err)
	}
}

// Register creates an unverified account and hands the verification token
// to the mail worker over the event bus. A duplicate email returns nil all
// the same; the only difference is which email the worker sends, so the
// HTTP response leaks nothing about existing accounts.
func (s *AccountService) Register(ctx context.Context, p RegisterParams) error {
	l := logging.FromContext(ctx).With("svc", "account.register")

	if p.Email == "" || len(p.Password) < 6 {
		return ErrValidation
	}

	if _, err := s.Repo.AccountByEmail(ctx, p.Email); err == nil {
		l.Warn("register_duplicate", "status", 200)
		s.publish(ctx, events.TopicAccountEvents, p.Email, map[string]any{
			"type":  "email_already_registered",
			"email": p.Email,
		})
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_failed", "status", 500, "error", err)
		return err
	}

	pwHash, err := pkg_hash.HashPassword(p.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return err
	}

	verificationToken, err := randomTokenString()
	if err != nil {
		return err
	}

	count, err := s.Repo.CountAccounts(ctx)
	if err != nil {
		l.Error("register_failed", "status", 500, "error", err)
		return err
	}

	// The very first account becomes the admin.
	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	account := &models.Account{
		ID:                uuid.New(),
		Email:             p.Email,
		PasswordHash:      pwHash,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Role:              role,
		VerificationToken: verificationToken,
		Created:           s.now(),
	}

	if err := s.Repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil
		}
		l.Error("register_failed", "status", 500, "error", err)
		return err
	}

	s.publish(ctx, events.TopicAccountEvents, account.ID.String(), map[string]any{
		"type":               "account_registered",
		"account_id":         account.ID,
		"email":              account.Email,
		"verification_token": verificationToken,
	})

	l.Info("register_successful", "account_id", account.ID)
	return nil
}

// VerifyEmail consumes the verification token and marks the account
// verified, unlocking authentication for it.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	l := logging.FromContext(ctx).With("svc", "account.verify_email")

	account, err := s.Repo.AccountByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVerification
		}
		l.Error("verify_email_failed", "status", 500, "error", err)
		return err
	}

	now := s.now()
	account.Verified = &now
	account.VerificationToken = ""
	if err := s.Repo.SaveAccount(ctx, account); err != nil {
		l.Error("verify_email_failed", "status", 500, "error", err)
		return err
	}

	s.publish(ctx, events.TopicAccountEvents, account.ID.String(), map[string]any{
		"type":       "account_verified",
		"account_id": account.ID,
		"email":      account.Email,
	})

	l.Info("verify_email_successful", "account_id", account.ID)
	return nil
}

func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	return s.Repo.Accounts(ctx)
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.Repo.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

// Create is the admin path: the account comes out verified and with an
// explicit role.
func (s *AccountService) Create(ctx context.Context, p CreateParams) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "account.create")

	if p.Email == "" || len(p.Password) < 6 {
		return nil, ErrValidation
	}
	role, ok := models.ParseRole(p.Role)
	if !ok {
		return nil, ErrValidation
	}

	pwHash, err := pkg_hash.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &models.Account{
		ID:           uuid.New(),
		Email:        p.Email,
		PasswordHash: pwHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Role:         role,
		Verified:     &now,
		Created:      now,
	}

	if err := s.Repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil, ErrConflict
		}
		l.Error("create_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("create_successful", "account_id", account.ID)
	return account, nil
}

func (s *AccountService) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "account.update")

	account, err := s.Repo.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if p.Email != "" && p.Email != account.Email {
		if _, err := s.Repo.AccountByEmail(ctx, p.Email); err == nil {
			return nil, ErrConflict
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		account.Email = p.Email
	}
	if p.Password != "" {
		if len(p.Password) < 6 {
			return nil, ErrValidation
		}
		pwHash, err := pkg_hash.HashPassword(p.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = pwHash
	}
	if p.FirstName != "" {
		account.FirstName = p.FirstName
	}
	if p.LastName != "" {
		account.LastName = p.LastName
	}
	if p.Role != "" {
		role, ok := models.ParseRole(p.Role)
		if !ok {
			return nil, ErrValidation
		}
		account.Role = role
	}

	now := s.now()
	account.Updated = &now
	if err := s.Repo.SaveAccount(ctx, account); err != nil {
		l.Error("update_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("update_successful", "account_id", account.ID)
	return account, nil
}

func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
