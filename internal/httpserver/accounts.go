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

type AccountsHTTP struct {
	Svc *service.AccountService
}

func (h *AccountsHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "accounts_register")

	var req service.RegisterParams
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Register(ctx, req); err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, "email and a password of at least 6 characters are required")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	// Success and duplicate email are indistinguishable here; the mail
	// worker tells the two apart.
	return c.JSON(http.StatusOK, echo.Map{
		"message": "registration successful, please check your email for verification instructions",
	})
}

func (h *AccountsHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	if err := h.Svc.VerifyEmail(ctx, req.Token); err != nil {
		if errors.Is(err, service.ErrVerification) {
			return echo.NewHTTPError(http.StatusBadRequest, "verification failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "verification successful, you can now login"})
}

func (h *AccountsHTTP) List(c echo.Context) error {
	accounts, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *AccountsHTTP) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	if !ownerOrAdmin(c, id) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	account, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, account)
}

func (h *AccountsHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.CreateParams
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	account, err := h.Svc.Create(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid account parameters")
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusBadRequest, "email is already registered")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, account)
}

func (h *AccountsHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	if !ownerOrAdmin(c, id) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var req service.UpdateParams
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	// Only admins may move an account between roles.
	if req.Role != "" && currentRole(c) != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	account, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid account parameters")
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusBadRequest, "email is already taken")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, account)
}

func (h *AccountsHTTP) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	if !ownerOrAdmin(c, id) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account deleted"})
}

func currentRole(c echo.Context) models.Role {
	role, _ := c.Get("role").(models.Role)
	return role
}

func ownerOrAdmin(c echo.Context, id uuid.UUID) bool {
	if currentRole(c) == models.RoleAdmin {
		return true
	}
	accountID, ok := c.Get("account_id").(uuid.UUID)
	return ok && accountID == id
}
