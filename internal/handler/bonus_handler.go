package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"bonusdesk/internal/auth"
	"bonusdesk/internal/model"
	"bonusdesk/internal/query"
	"bonusdesk/internal/service"
)

// BonusHandler handles bonus lifecycle endpoints.
type BonusHandler struct {
	bonusService service.BonusService
}

// NewBonusHandler creates a new bonus handler.
func NewBonusHandler(bonusService service.BonusService) *BonusHandler {
	return &BonusHandler{bonusService: bonusService}
}

// CreateBonusRequest represents a bonus creation request.
type CreateBonusRequest struct {
	Title  string          `json:"title" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Reason string          `json:"reason" validate:"required"`
}

// UpdateBonusRequest represents a bonus edit request. Omitted fields are unchanged.
type UpdateBonusRequest struct {
	Title  *string          `json:"title,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason *string          `json:"reason,omitempty"`
}

// AddCommentRequest represents a comment on a bonus.
type AddCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// Create godoc
// @Summary Create a bonus for a recipient
// @Tags bonus
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param recipientId path string true "Recipient user ID"
// @Param request body CreateBonusRequest true "Bonus data"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /bonus/{recipientId} [post]
func (h *BonusHandler) Create(c echo.Context) error {
	recipientID, err := uuid.Parse(c.Param("recipientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recipient id")
	}

	var req CreateBonusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	claims, err := auth.ClaimsFrom(c)
	if err != nil {
		return err
	}

	bonus, err := h.bonusService.Create(c.Request().Context(), service.CreateBonusInput{
		Title:       req.Title,
		Amount:      req.Amount,
		Reason:      req.Reason,
		RecipientID: recipientID,
		CreatedByID: claims.UserID,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, fmt.Sprintf("bonus created in %s", bonus.Month), newBonusResponse(bonus))
}

// List godoc
// @Summary List bonuses
// @Tags bonus
// @Produce json
// @Security TokenAuth
// @Param status query string false "Filter by status"
// @Param recipient query string false "Filter by recipient id"
// @Param sort query string false "Sort spec, e.g. amount,desc"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} ListEnvelope
// @Router /bonus [get]
func (h *BonusHandler) List(c echo.Context) error {
	opts := query.Parse(c)
	if opts.Status != "" {
		if _, ok := model.ParseBonusStatus(opts.Status); !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
	}

	bonuses, err := h.bonusService.List(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, len(bonuses), newBonusResponses(bonuses))
}

// Get godoc
// @Summary Get a bonus by id
// @Tags bonus
// @Produce json
// @Security TokenAuth
// @Param id path string true "Bonus ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /bonus/{id} [get]
func (h *BonusHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bonus id")
	}

	bonus, err := h.bonusService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "bonus found", newBonusResponse(bonus))
}

// Update godoc
// @Summary Edit a pending bonus
// @Tags bonus
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param id path string true "Bonus ID"
// @Param request body UpdateBonusRequest true "Fields to change"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /bonus/{id} [put]
func (h *BonusHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bonus id")
	}

	var req UpdateBonusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bonus, err := h.bonusService.Update(c.Request().Context(), id, service.UpdateBonusInput{
		Title:  req.Title,
		Amount: req.Amount,
		Reason: req.Reason,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "bonus updated", newBonusResponse(bonus))
}

// Delete godoc
// @Summary Delete a pending bonus
// @Tags bonus
// @Produce json
// @Security TokenAuth
// @Param id path string true "Bonus ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /bonus/{id} [delete]
func (h *BonusHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bonus id")
	}

	if err := h.bonusService.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "bonus deleted", nil)
}

// Approve godoc
// @Summary Approve a pending bonus
// @Tags bonus
// @Produce json
// @Security TokenAuth
// @Param id path string true "Bonus ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /bonus/approve/{id} [put]
func (h *BonusHandler) Approve(c echo.Context) error {
	return h.decide(c, h.bonusService.Approve, "bonus approved")
}

// Reject godoc
// @Summary Reject a pending bonus
// @Tags bonus
// @Produce json
// @Security TokenAuth
// @Param id path string true "Bonus ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /bonus/reject/{id} [put]
func (h *BonusHandler) Reject(c echo.Context) error {
	return h.decide(c, h.bonusService.Reject, "bonus rejected")
}

type transitionFunc func(ctx context.Context, id, actorID uuid.UUID) (*model.Bonus, error)

func (h *BonusHandler) decide(c echo.Context, transition transitionFunc, message string) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bonus id")
	}

	claims, err := auth.ClaimsFrom(c)
	if err != nil {
		return err
	}

	bonus, err := transition(c.Request().Context(), id, claims.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, message, newBonusResponse(bonus))
}

// AddComment godoc
// @Summary Comment on a bonus
// @Tags bonus
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param id path string true "Bonus ID"
// @Param request body AddCommentRequest true "Comment text"
// @Success 201 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /bonus/{id}/comments [post]
func (h *BonusHandler) AddComment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bonus id")
	}

	var req AddCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	claims, err := auth.ClaimsFrom(c)
	if err != nil {
		return err
	}

	bonus, err := h.bonusService.AddComment(c.Request().Context(), id, claims.UserID, req.Text)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "comment added", newBonusResponse(bonus))
}

// Stats godoc
// @Summary Bonus dashboard statistics
// @Tags bonus
// @Produce json
// @Security TokenAuth
// @Success 200 {object} Envelope
// @Router /bonus/stats [get]
func (h *BonusHandler) Stats(c echo.Context) error {
	stats, err := h.bonusService.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "bonus statistics", stats)
}
