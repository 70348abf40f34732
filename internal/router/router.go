package router

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"bonusdesk/internal/auth"
	"bonusdesk/internal/config"
	apperrors "bonusdesk/internal/errors"
	"bonusdesk/internal/handler"
	"bonusdesk/internal/model"
)

// Register wires routes and middleware. Every request flows through the same
// ordered pipeline: authenticate, authorize, validate, execute.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log zerolog.Logger,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	bonusHandler *handler.BonusHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = newErrorHandler(log)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/signup", authHandler.Signup)
	api.GET("/auth/verify/:token", authHandler.Verify)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/auth/forgot-password", authHandler.ForgotPassword)
	api.POST("/auth/reset-password", authHandler.ResetPassword)

	// Secured routes; the token header carries the signed identity claim.
	secured := api.Group("", auth.Authenticate(cfg.JWTSecret))

	// Bonus routes, gated per the operation/role table.
	secured.POST("/bonus/:recipientId", bonusHandler.Create,
		auth.RequireRoles(model.RoleManager))
	secured.GET("/bonus", bonusHandler.List,
		auth.RequireRoles(model.RoleManager, model.RoleFinanceStaff))
	secured.GET("/bonus/stats", bonusHandler.Stats,
		auth.RequireRoles(model.RoleManager, model.RoleFinanceStaff))
	secured.GET("/bonus/:id", bonusHandler.Get,
		auth.RequireRoles(model.RoleManager, model.RoleFinanceStaff))
	secured.PUT("/bonus/:id", bonusHandler.Update,
		auth.RequireRoles(model.RoleManager))
	secured.DELETE("/bonus/:id", bonusHandler.Delete,
		auth.RequireRoles(model.RoleManager))
	secured.PUT("/bonus/approve/:id", bonusHandler.Approve,
		auth.RequireRoles(model.RoleFinanceStaff))
	secured.PUT("/bonus/reject/:id", bonusHandler.Reject,
		auth.RequireRoles(model.RoleFinanceStaff))
	secured.POST("/bonus/:id/comments", bonusHandler.AddComment,
		auth.RequireRoles(model.RoleManager, model.RoleFinanceStaff))

	// User routes
	secured.GET("/user", userHandler.ListUsers,
		auth.RequireRoles(model.RoleManager))
	secured.GET("/user/profile/:id", userHandler.GetProfile,
		auth.RequireRoles(model.RoleManager, model.RoleFinanceStaff))
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// newErrorHandler surfaces every error as the {success:false, message}
// envelope, mapping domain errors through the taxonomy. Store and notifier
// internals are logged, never leaked.
func newErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			message = fmt.Sprintf("%v", he.Message)
		} else {
			httpErr := apperrors.MapErrorToHTTP(err)
			status = httpErr.StatusCode
			message = httpErr.Message
		}

		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		_ = c.JSON(status, map[string]interface{}{
			"success": false,
			"message": message,
		})
	}
}
