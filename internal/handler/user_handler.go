package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"bonusdesk/internal/service"
)

// UserHandler handles identity read endpoints.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers godoc
// @Summary List users
// @Tags user
// @Produce json
// @Security TokenAuth
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Router /user [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "users listed", users)
}

// GetProfile godoc
// @Summary Get a user profile
// @Tags user
// @Produce json
// @Security TokenAuth
// @Param id path string true "User ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /user/profile/{id} [get]
func (h *UserHandler) GetProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	user, err := h.userService.GetProfile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user found", user)
}
