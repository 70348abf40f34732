package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"bonusdesk/internal/errors"
)

func TestEligibilityChecker_Window(t *testing.T) {
	recipientID := uuid.New()

	tests := []struct {
		name          string
		now           time.Time
		expectedError error
	}{
		{
			name:          "day 21 is before the window",
			now:           time.Date(2026, time.August, 21, 23, 59, 0, 0, time.UTC),
			expectedError: errors.ErrWindowClosed,
		},
		{
			name: "day 22 opens the window",
			now:  time.Date(2026, time.August, 22, 0, 0, 1, 0, time.UTC),
		},
		{
			name: "day 30 closes the window",
			now:  time.Date(2026, time.August, 30, 23, 0, 0, 0, time.UTC),
		},
		{
			name:          "day 31 is past the window",
			now:           time.Date(2026, time.August, 31, 8, 0, 0, 0, time.UTC),
			expectedError: errors.ErrWindowClosed,
		},
		{
			name: "day 28 of February is inside the window",
			now:  time.Date(2026, time.February, 28, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bonusRepo := new(MockBonusRepository)
			if tt.expectedError == nil {
				bonusRepo.On("ExistsForRecipientBetween", mock.Anything, recipientID, mock.Anything, mock.Anything).Return(false, nil)
			}

			checker := NewEligibilityChecker(bonusRepo)
			err := checker.Check(context.Background(), recipientID, tt.now)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			bonusRepo.AssertExpectations(t)
		})
	}
}

func TestEligibilityChecker_OncePerMonth(t *testing.T) {
	recipientID := uuid.New()
	now := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)

	bonusRepo := new(MockBonusRepository)
	bonusRepo.On("ExistsForRecipientBetween", mock.Anything, recipientID, mock.Anything, mock.Anything).Return(true, nil)

	checker := NewEligibilityChecker(bonusRepo)
	err := checker.Check(context.Background(), recipientID, now)

	assert.ErrorIs(t, err, errors.ErrAlreadyAwarded)
	bonusRepo.AssertExpectations(t)
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name          string
		in            time.Time
		expectedFirst time.Time
		expectedLast  time.Time
	}{
		{
			name:          "31-day month",
			in:            time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC),
			expectedFirst: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
			expectedLast:  time.Date(2026, time.August, 31, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:          "February in a non-leap year",
			in:            time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC),
			expectedFirst: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			expectedLast:  time.Date(2026, time.February, 28, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:          "February in a leap year",
			in:            time.Date(2028, time.February, 29, 6, 0, 0, 0, time.UTC),
			expectedFirst: time.Date(2028, time.February, 1, 0, 0, 0, 0, time.UTC),
			expectedLast:  time.Date(2028, time.February, 29, 23, 59, 59, 999000000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := MonthBounds(tt.in)
			assert.True(t, first.Equal(tt.expectedFirst), "first: got %v", first)
			assert.True(t, last.Equal(tt.expectedLast), "last: got %v", last)
		})
	}
}

func TestMonthKeyAndName(t *testing.T) {
	at := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08", MonthKey(at))
	assert.Equal(t, "August", MonthName(at))
}
