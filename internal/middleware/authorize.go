package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts_service/internal/models"
	"github.com/Skotchmaster/accounts_service/internal/repo"
	"github.com/Skotchmaster/accounts_service/pkg/tokens"
)

// Authorize is the revocation gate. Every protected request decodes the
// access token and then re-fetches the account, so a deleted account or a
// changed role takes effect on the next request even while the old token
// still verifies. The token's role claim is never trusted past decoding.
type Authorize struct {
	Repo      repo.GormRepo
	JWTSecret []byte
}

func NewAuthorize(r repo.GormRepo, secret []byte) *Authorize {
	return &Authorize{Repo: r, JWTSecret: secret}
}

// Require authenticates the request and, when roles is non-empty, demands
// the account's current role to be one of them.
func (m *Authorize) Require(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := accessTokenFromRequest(c)
			if tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := tokens.AccessClaimsFromToken(tokenStr, m.JWTSecret)
			if err != nil || claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			accountID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			account, err := m.Repo.AccountByID(c.Request().Context(), accountID)
			if err != nil {
				// Account no longer exists, or the store failed; either way
				// the request does not pass the gate.
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			if len(roles) > 0 && !roleAllowed(account.Role, roles) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			c.Set("account_id", account.ID)
			c.Set("role", account.Role)

			return next(c)
		}
	}
}

func roleAllowed(role models.Role, roles []models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func accessTokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return after
		}
	}
	if cookie, err := c.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}
