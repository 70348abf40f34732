package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bonusdesk/internal/errors"
	"bonusdesk/internal/repository"
)

// Bonus creation is only permitted on days 22-30 of the month. Months shorter
// than 30 days simply close at their last day; the window never spills over.
const (
	windowOpenDay  = 22
	windowCloseDay = 30
)

// EligibilityChecker enforces the time-window and once-per-month rules that
// gate bonus creation.
type EligibilityChecker interface {
	Check(ctx context.Context, recipientID uuid.UUID, now time.Time) error
}

type eligibilityChecker struct {
	bonusRepo repository.BonusRepository
}

// NewEligibilityChecker creates a checker backed by the bonus store.
func NewEligibilityChecker(bonusRepo repository.BonusRepository) EligibilityChecker {
	return &eligibilityChecker{bonusRepo: bonusRepo}
}

// Check returns nil when a bonus may be created for the recipient at the given
// instant. The caller must hold the per-recipient critical section across the
// subsequent insert; the store's unique index is the final arbiter.
func (c *eligibilityChecker) Check(ctx context.Context, recipientID uuid.UUID, now time.Time) error {
	day := now.Day()
	if day < windowOpenDay || day > windowCloseDay {
		return errors.ErrWindowClosed
	}

	from, to := MonthBounds(now)
	exists, err := c.bonusRepo.ExistsForRecipientBetween(ctx, recipientID, from, to)
	if err != nil {
		return fmt.Errorf("check existing bonus: %w", err)
	}
	if exists {
		return errors.ErrAlreadyAwarded
	}
	return nil
}

// MonthBounds returns [first day 00:00:00, last day 23:59:59.999] of the month
// containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, 0).Add(-time.Millisecond)
	return first, last
}

// MonthKey returns the uniqueness anchor for the month containing t, e.g. "2026-08".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthName returns the English display name of the month containing t.
func MonthName(t time.Time) string {
	return t.Month().String()
}
