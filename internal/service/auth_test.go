package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts_service/internal/events"
	"github.com/Skotchmaster/accounts_service/internal/models"
	"github.com/Skotchmaster/accounts_service/internal/repo"
	pkg_hash "github.com/Skotchmaster/accounts_service/pkg/hash"
	"github.com/Skotchmaster/accounts_service/pkg/tokens"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	published []publishedEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	m, _ := event.(map[string]any)
	f.published = append(f.published, publishedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (f *fakePublisher) byType(eventType string) []publishedEvent {
	var out []publishedEvent
	for _, e := range f.published {
		if e.Event["type"] == eventType {
			out = append(out, e)
		}
	}
	return out
}

type authEnv struct {
	svc    *AuthService
	rp     repo.GormRepo
	pub    *fakePublisher
	now    time.Time
	setNow func(time.Time)
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.RefreshToken{}))

	rp := repo.GormRepo{DB: db}
	pub := &fakePublisher{}

	env := &authEnv{
		rp:  rp,
		pub: pub,
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = &AuthService{
		Repo:      rp,
		Events:    pub,
		JWTSecret: []byte("test-jwt-secret"),
		Now:       func() time.Time { return env.now },
	}
	env.setNow = func(at time.Time) { env.now = at }

	return env
}

func (env *authEnv) seedAccount(t *testing.T, email, password string, role models.Role, verified bool) *models.Account {
	t.Helper()

	pwHash, err := pkg_hash.HashPassword(password)
	require.NoError(t, err)

	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		Created:      env.now,
	}
	if verified {
		at := env.now
		account.Verified = &at
	}
	require.NoError(t, env.rp.CreateAccount(context.Background(), account))
	return account
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "admin@example.com", "Secret123", models.RoleAdmin, true)

	res, err := env.svc.Authenticate(ctx, "admin@example.com", "Secret123", "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)

	claims, err := tokens.AccessClaimsFromToken(res.AccessToken, env.svc.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.Subject)
	assert.Equal(t, string(models.RoleAdmin), claims.Role)

	stored, err := env.rp.RefreshByToken(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.AccountID)
	assert.Equal(t, "1.2.3.4", stored.CreatedByIP)
	assert.True(t, stored.IsActive(env.now))
	assert.Equal(t, env.now.Add(7*24*time.Hour), stored.ExpiresAt)
}

func TestAuthService_Authenticate_InvalidCredentials(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "user@example.com", "Secret123", models.RoleUser, true)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "unknown email", email: "nobody@example.com", password: "Secret123"},
		{name: "wrong password", email: "user@example.com", password: "wrong"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.svc.Authenticate(ctx, tt.email, tt.password, "1.2.3.4")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthService_Authenticate_UnverifiedAccount(t *testing.T) {
	env := newAuthEnv(t)
	env.seedAccount(t, "new@example.com", "Secret123", models.RoleUser, false)

	// Correct password, but the account never verified its email. The
	// error must be the same generic one as a bad password.
	res, err := env.svc.Authenticate(context.Background(), "new@example.com", "Secret123", "1.2.3.4")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Rotate_ChainAndReuseDetection(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "user@example.com", "Secret123", models.RoleUser, true)

	login, err := env.svc.Authenticate(ctx, "user@example.com", "Secret123", "1.2.3.4")
	require.NoError(t, err)
	r1 := login.RefreshToken

	// R1 -> R2
	res2, err := env.svc.Rotate(ctx, r1, "5.6.7.8")
	require.NoError(t, err)
	r2 := res2.RefreshToken
	require.NotEqual(t, r1, r2)
	assert.Equal(t, account.ID, res2.Account.ID)

	old, err := env.rp.RefreshByToken(ctx, r1)
	require.NoError(t, err)
	require.NotNil(t, old.RevokedAt)
	assert.Equal(t, "5.6.7.8", old.RevokedByIP)
	assert.Equal(t, r2, old.ReplacedByToken)

	// Presenting R1 again is reuse and must fail.
	res, err := env.svc.Rotate(ctx, r1, "5.6.7.8")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The chain continues from R2.
	res3, err := env.svc.Rotate(ctx, r2, "5.6.7.8")
	require.NoError(t, err)
	require.NotEqual(t, r2, res3.RefreshToken)
}

func TestAuthService_Rotate_ReusePublishesSecurityEvent(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "user@example.com", "Secret123", models.RoleUser, true)

	login, err := env.svc.Authenticate(ctx, "user@example.com", "Secret123", "1.2.3.4")
	require.NoError(t, err)

	res2, err := env.svc.Rotate(ctx, login.RefreshToken, "5.6.7.8")
	require.NoError(t, err)
	require.Empty(t, env.pub.byType("token_reuse_detected"))

	_, err = env.svc.Rotate(ctx, login.RefreshToken, "6.6.6.6")
	require.ErrorIs(t, err, ErrInvalidToken)

	reuse := env.pub.byType("token_reuse_detected")
	require.Len(t, reuse, 1)
	assert.Equal(t, events.TopicSecurityEvents, reuse[0].Topic)
	assert.Equal(t, account.ID.String(), reuse[0].Key)
	assert.Equal(t, res2.RefreshToken, reuse[0].Event["replaced_by_token"])
}

func TestAuthService_Rotate_ExpiredToken(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "user@example.com", "Secret123", models.RoleUser, true)

	login, err := env.svc.Authenticate(ctx, "user@example.com", "Secret123", "1.2.3.4")
	require.NoError(t, err)

	env.setNow(env.now.Add(8 * 24 * time.Hour))

	res, err := env.svc.Rotate(ctx, login.RefreshToken, "1.2.3.4")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Rotate_UnknownToken(t *testing.T) {
	env := newAuthEnv(t)

	res, err := env.svc.Rotate(context.Background(), "not-a-known-token", "1.2.3.4")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Revoke_ThenRotateFails(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "user@example.com", "Secret123", models.RoleUser, true)

	login, err := env.svc.Authenticate(ctx, "user@example.com", "Secret123", "1.2.3.4")
	require.NoError(t, err)

	require.NoError(t, env.svc.Revoke(ctx, login.RefreshToken, "5.6.7.8"))

	revoked, err := env.rp.RefreshByToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedAt)
	assert.Equal(t, "5.6.7.8", revoked.RevokedByIP)
	assert.Empty(t, revoked.ReplacedByToken)

	_, err = env.svc.Rotate(ctx, login.RefreshToken, "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidToken)

	err = env.svc.Revoke(ctx, login.RefreshToken, "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Len(t, env.pub.byType("token_revoked"), 1)
}

func TestAuthService_Revoke_UnknownToken(t *testing.T) {
	env := newAuthEnv(t)

	err := env.svc.Revoke(context.Background(), "not-a-known-token", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ConcurrentChains_AreIndependent(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "user@example.com", "Secret123", models.RoleUser, true)

	// Two devices, two chains.
	first, err := env.svc.Authenticate(ctx, "user@example.com", "Secret123", "1.1.1.1")
	require.NoError(t, err)
	second, err := env.svc.Authenticate(ctx, "user@example.com", "Secret123", "2.2.2.2")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Revoking one chain leaves the other usable.
	require.NoError(t, env.svc.Revoke(ctx, first.RefreshToken, "1.1.1.1"))

	res, err := env.svc.Rotate(ctx, second.RefreshToken, "2.2.2.2")
	require.NoError(t, err)
	require.NotEmpty(t, res.RefreshToken)
}

func TestAuthService_OwnsToken(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "user@example.com", "Secret123", models.RoleUser, true)
	other := env.seedAccount(t, "other@example.com", "Secret123", models.RoleUser, true)

	login, err := env.svc.Authenticate(ctx, "user@example.com", "Secret123", "1.2.3.4")
	require.NoError(t, err)

	owns, err := env.svc.OwnsToken(ctx, login.Account.ID, login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, owns)

	owns, err = env.svc.OwnsToken(ctx, other.ID, login.RefreshToken)
	require.NoError(t, err)
	assert.False(t, owns)

	owns, err = env.svc.OwnsToken(ctx, other.ID, "no-such-token")
	require.NoError(t, err)
	assert.False(t, owns)
}
