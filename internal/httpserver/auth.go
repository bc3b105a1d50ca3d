package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts_service/internal/models"
	"github.com/Skotchmaster/accounts_service/internal/service"
	"github.com/Skotchmaster/accounts_service/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func profileResponse(res *service.AuthResult) echo.Map {
	a := res.Account
	return echo.Map{
		"id":          a.ID,
		"email":       a.Email,
		"first_name":  a.FirstName,
		"last_name":   a.LastName,
		"role":        a.Role,
		"created":     a.Created,
		"is_verified": a.IsVerified(),
		"jwt_token":   res.AccessToken,
	}
}

func setTokenCookies(c echo.Context, res *service.AuthResult) {
	c.SetCookie(CreateCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(CreateCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))
}

func (h *AuthHTTP) Authenticate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_authenticate")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("authenticate_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Authenticate(ctx, req.Email, req.Password, c.RealIP())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "email or password is incorrect")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	setTokenCookies(c, res)
	return c.JSON(http.StatusOK, profileResponse(res))
}

// refreshTokenFromRequest prefers the HttpOnly cookie and falls back to
// the JSON body for non-browser clients.
func refreshTokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err == nil {
		return req.Token
	}
	return ""
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	tokenStr := refreshTokenFromRequest(c)
	if tokenStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	res, err := h.Svc.Rotate(ctx, tokenStr, c.RealIP())
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			clearTokenCookies(c)
			l.Warn("refresh_failed", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	setTokenCookies(c, res)
	return c.JSON(http.StatusOK, profileResponse(res))
}

func (h *AuthHTTP) Revoke(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_revoke")

	tokenStr := refreshTokenFromRequest(c)
	if tokenStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	accountID, _ := c.Get("account_id").(uuid.UUID)
	role, _ := c.Get("role").(models.Role)

	// Non-admins can only revoke chains they own.
	if role != models.RoleAdmin {
		owns, err := h.Svc.OwnsToken(ctx, accountID, tokenStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		if !owns {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
	}

	if err := h.Svc.Revoke(ctx, tokenStr, c.RealIP()); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	clearTokenCookies(c)
	l.Info("revoke_successful")
	return c.JSON(http.StatusOK, echo.Map{"message": "token revoked"})
}

func clearTokenCookies(c echo.Context) {
	c.SetCookie(DeleteCookie("accessToken", "/"))
	c.SetCookie(DeleteCookie("refreshToken", "/"))
}
