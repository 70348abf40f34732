package handler

import (
	"github.com/labstack/echo/v4"

	"bonusdesk/internal/model"
)

// Envelope is the standard success response: {success, message, data}.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListEnvelope is the shape of collection responses: {status, results, data}.
type ListEnvelope struct {
	Status  string      `json:"status"`
	Results int         `json:"results"`
	Data    interface{} `json:"data"`
}

func respond(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Envelope{Success: true, Message: message, Data: data})
}

func respondList(c echo.Context, code int, results int, data interface{}) error {
	return c.JSON(code, ListEnvelope{Status: "success", Results: results, Data: data})
}

// BonusResponse is a bonus with its actors denormalized to name/email
// summaries for display.
type BonusResponse struct {
	model.Bonus
	Recipient  *model.UserSummary `json:"recipient,omitempty"`
	CreatedBy  *model.UserSummary `json:"created_by,omitempty"`
	ApprovedBy *model.UserSummary `json:"approved_by,omitempty"`
	RejectedBy *model.UserSummary `json:"rejected_by,omitempty"`
}

func newBonusResponse(b *model.Bonus) BonusResponse {
	resp := BonusResponse{Bonus: *b}
	if b.Recipient != nil {
		s := b.Recipient.Summary()
		resp.Recipient = &s
	}
	if b.CreatedBy != nil {
		s := b.CreatedBy.Summary()
		resp.CreatedBy = &s
	}
	if b.ApprovedBy != nil {
		s := b.ApprovedBy.Summary()
		resp.ApprovedBy = &s
	}
	if b.RejectedBy != nil {
		s := b.RejectedBy.Summary()
		resp.RejectedBy = &s
	}
	return resp
}

func newBonusResponses(bonuses []model.Bonus) []BonusResponse {
	out := make([]BonusResponse, 0, len(bonuses))
	for i := range bonuses {
		out = append(out, newBonusResponse(&bonuses[i]))
	}
	return out
}
