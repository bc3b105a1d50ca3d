package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/accounts_service/internal/events"
	"github.com/Skotchmaster/accounts_service/internal/models"
	"github.com/Skotchmaster/accounts_service/internal/repo"
	pkg_hash "github.com/Skotchmaster/accounts_service/pkg/hash"
	"github.com/Skotchmaster/accounts_service/pkg/logging"
	"github.com/Skotchmaster/accounts_service/pkg/tokens"
)

type AuthService struct {
	Repo       repo.GormRepo
	Events     events.Publisher
	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now is the clock for every expiry and active check; tests pin it.
	Now func() time.Time
}

type AuthResult struct {
	Account      *models.Account
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return 7 * 24 * time.Hour
}

// randomTokenString mints the opaque refresh-token value: 40 random bytes,
// hex encoded.
func randomTokenString() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *AuthService) publish(ctx context.Context, topic, key string, event map[string]any) {
	if s.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "topic", topic, "error", err)
	}
}

// Authenticate checks the credentials and, on success, issues a fresh
// access token plus a new refresh-token chain for this client. Every
// negative outcome collapses into ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password, ip string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.authenticate")

	account, err := s.Repo.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		l.Error("authenticate_failed", "status", 500, "error", err)
		return nil, err
	}

	if !account.IsVerified() || !pkg_hash.CheckPassword(account.PasswordHash, password) {
		l.Warn("authenticate_failed", "status", 401, "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issueTokens(ctx, account, ip)
	if err != nil {
		l.Error("authenticate_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("authenticate_successful", "account_id", account.ID)
	return res, nil
}

// Rotate exchanges an active refresh token for a successor plus a new
// access token. The presented token is revoked and linked to its successor
// inside one transaction; presenting it again fails, which is the reuse
// signal this whole chain design exists for.
func (s *AuthService) Rotate(ctx context.Context, tokenStr, ip string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.rotate")

	token, err := s.Repo.RefreshByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		l.Error("rotate_failed", "status", 500, "error", err)
		return nil, err
	}

	now := s.now()
	if !token.IsActive(now) {
		if token.ReplacedByToken != "" {
			l.Warn("rotate_failed", "status", 401, "reason", "replaced token presented", "account_id", token.AccountID)
			s.publish(ctx, events.TopicSecurityEvents, token.AccountID.String(), map[string]any{
				"type":              "token_reuse_detected",
				"account_id":        token.AccountID,
				"replaced_by_token": token.ReplacedByToken,
				"ip":                ip,
			})
		}
		return nil, ErrInvalidToken
	}

	account, err := s.Repo.AccountByID(ctx, token.AccountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		l.Error("rotate_failed", "status", 500, "error", err)
		return nil, err
	}

	value, err := randomTokenString()
	if err != nil {
		return nil, err
	}
	next := &models.RefreshToken{
		Token:       value,
		AccountID:   account.ID,
		ExpiresAt:   now.Add(s.refreshTTL()),
		CreatedAt:   now,
		CreatedByIP: ip,
	}

	if err := s.Repo.RotateRefreshToken(ctx, token.Token, ip, next, now); err != nil {
		if errors.Is(err, repo.ErrNotActive) {
			// Lost the race to a concurrent rotation; the token is no
			// longer active, same answer as any other dead token.
			return nil, ErrInvalidToken
		}
		l.Error("rotate_failed", "status", 500, "error", err)
		return nil, err
	}

	accessExp := now.Add(s.accessTTL())
	accessToken, err := tokens.NewAccessToken(account.ID.String(), string(account.Role), s.JWTSecret, accessExp)
	if err != nil {
		return nil, err
	}

	l.Info("rotate_successful", "account_id", account.ID)
	return &AuthResult{
		Account:      account,
		AccessToken:  accessToken,
		RefreshToken: next.Token,
		AccessExp:    accessExp,
		RefreshExp:   next.ExpiresAt,
	}, nil
}

// Revoke invalidates an active refresh token without a successor.
func (s *AuthService) Revoke(ctx context.Context, tokenStr, ip string) error {
	l := logging.FromContext(ctx).With("svc", "auth.revoke")

	token, err := s.Repo.RefreshByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidToken
		}
		l.Error("revoke_failed", "status", 500, "error", err)
		return err
	}

	now := s.now()
	if !token.IsActive(now) {
		return ErrInvalidToken
	}

	if err := s.Repo.RevokeRefreshToken(ctx, token.Token, ip, now); err != nil {
		if errors.Is(err, repo.ErrNotActive) {
			return ErrInvalidToken
		}
		l.Error("revoke_failed", "status", 500, "error", err)
		return err
	}

	s.publish(ctx, events.TopicSecurityEvents, token.AccountID.String(), map[string]any{
		"type":       "token_revoked",
		"account_id": token.AccountID,
		"ip":         ip,
	})

	l.Info("revoke_successful", "account_id", token.AccountID)
	return nil
}

// OwnsToken reports whether the refresh token belongs to the account. The
// revoke endpoint uses it so non-admins can only revoke their own chains.
func (s *AuthService) OwnsToken(ctx context.Context, accountID uuid.UUID, tokenStr string) (bool, error) {
	token, err := s.Repo.RefreshByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return token.AccountID == accountID, nil
}

func (s *AuthService) issueTokens(ctx context.Context, account *models.Account, ip string) (*AuthResult, error) {
	now := s.now()

	accessExp := now.Add(s.accessTTL())
	accessToken, err := tokens.NewAccessToken(account.ID.String(), string(account.Role), s.JWTSecret, accessExp)
	if err != nil {
		return nil, err
	}

	value, err := randomTokenString()
	if err != nil {
		return nil, err
	}
	refresh := &models.RefreshToken{
		Token:       value,
		AccountID:   account.ID,
		ExpiresAt:   now.Add(s.refreshTTL()),
		CreatedAt:   now,
		CreatedByIP: ip,
	}
	if err := s.Repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	return &AuthResult{
		Account:      account,
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		AccessExp:    accessExp,
		RefreshExp:   refresh.ExpiresAt,
	}, nil
}
