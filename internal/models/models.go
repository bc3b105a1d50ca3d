package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ParseRole maps a stored role string onto the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

type Account struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"     json:"id"`
	Email             string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash      string     `gorm:"not null"                 json:"-"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Role              Role       `gorm:"not null"                 json:"role"`
	VerificationToken string     `gorm:"index"                    json:"-"`
	Verified          *time.Time `json:"verified,omitempty"`
	Created           time.Time  `gorm:"not null"                 json:"created"`
	Updated           *time.Time `json:"updated,omitempty"`
}

// IsVerified reports whether the account finished email verification.
// Unverified accounts must never authenticate.
func (a *Account) IsVerified() bool { return a.Verified != nil }

// RefreshToken is one node of a rotation chain. A node is mutated exactly
// once: rotation sets RevokedAt plus ReplacedByToken, explicit revocation
// sets RevokedAt only. Nodes are never deleted here.
type RefreshToken struct {
	ID              uint       `gorm:"primaryKey"               json:"id"`
	Token           string     `gorm:"uniqueIndex;not null"     json:"token"`
	AccountID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"account_id"`
	ExpiresAt       time.Time  `gorm:"not null"                 json:"expires_at"`
	CreatedAt       time.Time  `gorm:"not null"                 json:"created_at"`
	CreatedByIP     string     `json:"created_by_ip"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP     string     `json:"revoked_by_ip,omitempty"`
	ReplacedByToken string     `json:"replaced_by_token,omitempty"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive is computed from the record and an explicit clock so expiry
// needs no write and tests can pin the time.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && !t.IsExpired(now)
}
