package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts_service/internal/middleware"
	"github.com/Skotchmaster/accounts_service/internal/models"
)

type Deps struct {
	Auth     *AuthHTTP
	Accounts *AccountsHTTP
	Gate     *middleware.Authorize
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/accounts/authenticate", d.Auth.Authenticate)
	e.POST("/accounts/refresh-token", d.Auth.Refresh)
	e.POST("/accounts/register", d.Accounts.Register)
	e.POST("/accounts/verify-email", d.Accounts.VerifyEmail)

	private := e.Group("", d.Gate.Require())
	private.POST("/accounts/revoke-token", d.Auth.Revoke)
	private.GET("/accounts/:id", d.Accounts.Get)
	private.PUT("/accounts/:id", d.Accounts.Update)
	private.DELETE("/accounts/:id", d.Accounts.Delete)

	admin := e.Group("", d.Gate.Require(models.RoleAdmin))
	admin.GET("/accounts", d.Accounts.List)
	admin.POST("/accounts", d.Accounts.Create)
}
