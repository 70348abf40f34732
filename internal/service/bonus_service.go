package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bonusdesk/internal/errors"
	"bonusdesk/internal/mail"
	"bonusdesk/internal/model"
	"bonusdesk/internal/query"
	"bonusdesk/internal/repository"
)

// CreateBonusInput carries validated creation fields.
type CreateBonusInput struct {
	Title       string
	Amount      decimal.Decimal
	Reason      string
	RecipientID uuid.UUID
	CreatedByID uuid.UUID
}

// UpdateBonusInput carries the editable fields. Nil pointers leave the field unchanged.
type UpdateBonusInput struct {
	Title  *string
	Amount *decimal.Decimal
	Reason *string
}

// BonusStats summarizes bonuses per lifecycle state for dashboards.
type BonusStats struct {
	ByStatus    []repository.StatusTotal `json:"by_status"`
	TotalCount  int64                    `json:"total_count"`
	TotalAmount decimal.Decimal          `json:"total_amount"`
}

// BonusService owns the bonus lifecycle: creation under the eligibility rules
// and the PENDING -> APPROVED/REJECTED state machine with its side effects.
type BonusService interface {
	Create(ctx context.Context, in CreateBonusInput) (*model.Bonus, error)
	Approve(ctx context.Context, id, approverID uuid.UUID) (*model.Bonus, error)
	Reject(ctx context.Context, id, rejecterID uuid.UUID) (*model.Bonus, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateBonusInput) (*model.Bonus, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.Bonus, error)
	List(ctx context.Context, opts query.ListOptions) ([]model.Bonus, error)
	AddComment(ctx context.Context, bonusID, authorID uuid.UUID, text string) (*model.Bonus, error)
	Stats(ctx context.Context) (*BonusStats, error)
}

type bonusService struct {
	bonusRepo repository.BonusRepository
	userRepo  repository.UserRepository
	checker   EligibilityChecker
	notifier  mail.Notifier
	log       zerolog.Logger
	now       func() time.Time

	// Per-recipient mutexes serialize the eligibility check against the
	// subsequent insert for the same recipient.
	recipientMutexes sync.Map
}

// NewBonusService creates a new bonus service.
func NewBonusService(
	bonusRepo repository.BonusRepository,
	userRepo repository.UserRepository,
	checker EligibilityChecker,
	notifier mail.Notifier,
	log zerolog.Logger,
) BonusService {
	return &bonusService{
		bonusRepo: bonusRepo,
		userRepo:  userRepo,
		checker:   checker,
		notifier:  notifier,
		log:       log.With().Str("component", "bonus_service").Logger(),
		now:       time.Now,
	}
}

func (s *bonusService) getMutex(recipientID uuid.UUID) *sync.Mutex {
	value, _ := s.recipientMutexes.LoadOrStore(recipientID.String(), &sync.Mutex{})
	return value.(*sync.Mutex)
}

// Create validates the recipient, runs the eligibility check and inserts the
// bonus as PENDING. The check-then-insert sequence runs under the recipient's
// mutex; the (recipient, month) unique index closes the race across processes.
func (s *bonusService) Create(ctx context.Context, in CreateBonusInput) (*model.Bonus, error) {
	if in.Amount.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	if _, err := s.userRepo.FindByID(ctx, in.RecipientID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}

	mutex := s.getMutex(in.RecipientID)
	mutex.Lock()
	defer mutex.Unlock()

	now := s.now()
	if err := s.checker.Check(ctx, in.RecipientID, now); err != nil {
		return nil, err
	}

	bonus := &model.Bonus{
		Title:       in.Title,
		Amount:      in.Amount,
		Reason:      in.Reason,
		RecipientID: in.RecipientID,
		CreatedByID: in.CreatedByID,
		Status:      model.BonusStatusPending,
		Month:       MonthName(now),
		MonthKey:    MonthKey(now),
	}

	if err := s.bonusRepo.Create(ctx, bonus); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrDuplicateBonus
		}
		return nil, fmt.Errorf("create bonus: %w", err)
	}
	return bonus, nil
}

// Approve transitions PENDING -> APPROVED and notifies the proposing manager.
func (s *bonusService) Approve(ctx context.Context, id, approverID uuid.UUID) (*model.Bonus, error) {
	return s.transition(ctx, id, approverID, model.BonusStatusApproved)
}

// Reject transitions PENDING -> REJECTED and notifies the proposing manager.
func (s *bonusService) Reject(ctx context.Context, id, rejecterID uuid.UUID) (*model.Bonus, error) {
	return s.transition(ctx, id, rejecterID, model.BonusStatusRejected)
}

func (s *bonusService) transition(ctx context.Context, id, actorID uuid.UUID, to model.BonusStatus) (*model.Bonus, error) {
	rows, err := s.bonusRepo.Transition(ctx, id, to, actorID, s.now())
	if err != nil {
		return nil, fmt.Errorf("transition bonus: %w", err)
	}
	if rows == 0 {
		// Absent or already decided; fetch to tell which.
		if _, err := s.bonusRepo.FindByID(ctx, id); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.ErrBonusNotFound
			}
			return nil, fmt.Errorf("find bonus: %w", err)
		}
		return nil, errors.ErrAlreadyDecided
	}

	bonus, err := s.bonusRepo.FindByIDDetailed(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload bonus: %w", err)
	}

	s.notify(bonus, to)

	return bonus, nil
}

// notify emails the proposing manager about the decision. Delivery is
// asynchronous and failures never roll back the transition.
func (s *bonusService) notify(bonus *model.Bonus, to model.BonusStatus) {
	if bonus.CreatedBy == nil {
		s.log.Warn().Str("bonus_id", bonus.ID.String()).Msg("creator not resolved, skipping notification")
		return
	}
	switch to {
	case model.BonusStatusApproved:
		s.notifier.BonusApproved(bonus.CreatedBy.Email, bonus)
	case model.BonusStatusRejected:
		s.notifier.BonusRejected(bonus.CreatedBy.Email, bonus)
	}
}

// Update edits title/amount/reason. Only PENDING bonuses may change; a decided
// bonus is immutable apart from its comment trail.
func (s *bonusService) Update(ctx context.Context, id uuid.UUID, in UpdateBonusInput) (*model.Bonus, error) {
	fields := map[string]interface{}{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, errors.ErrInvalidAmount
		}
		fields["amount"] = *in.Amount
	}
	if in.Reason != nil {
		fields["reason"] = *in.Reason
	}

	if len(fields) > 0 {
		rows, err := s.bonusRepo.UpdateFieldsIfPending(ctx, id, fields)
		if err != nil {
			return nil, fmt.Errorf("update bonus: %w", err)
		}
		if rows == 0 {
			if _, err := s.bonusRepo.FindByID(ctx, id); err != nil {
				if stderrors.Is(err, gorm.ErrRecordNotFound) {
					return nil, errors.ErrBonusNotFound
				}
				return nil, fmt.Errorf("find bonus: %w", err)
			}
			return nil, errors.ErrBonusNotPending
		}
	}

	bonus, err := s.bonusRepo.FindByIDDetailed(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrBonusNotFound
		}
		return nil, fmt.Errorf("reload bonus: %w", err)
	}
	return bonus, nil
}

// Delete hard-deletes a PENDING bonus.
func (s *bonusService) Delete(ctx context.Context, id uuid.UUID) error {
	rows, err := s.bonusRepo.DeleteIfPending(ctx, id)
	if err != nil {
		return fmt.Errorf("delete bonus: %w", err)
	}
	if rows == 0 {
		if _, err := s.bonusRepo.FindByID(ctx, id); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrBonusNotFound
			}
			return fmt.Errorf("find bonus: %w", err)
		}
		return errors.ErrBonusNotPending
	}
	return nil
}

// Get returns a bonus with its actors and comments resolved.
func (s *bonusService) Get(ctx context.Context, id uuid.UUID) (*model.Bonus, error) {
	bonus, err := s.bonusRepo.FindByIDDetailed(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrBonusNotFound
		}
		return nil, fmt.Errorf("find bonus: %w", err)
	}
	return bonus, nil
}

// List delegates filtering, sorting and pagination to the query layer.
func (s *bonusService) List(ctx context.Context, opts query.ListOptions) ([]model.Bonus, error) {
	return s.bonusRepo.List(ctx, opts)
}

// AddComment appends a comment to the bonus and returns the refreshed record.
func (s *bonusService) AddComment(ctx context.Context, bonusID, authorID uuid.UUID, text string) (*model.Bonus, error) {
	if _, err := s.bonusRepo.FindByID(ctx, bonusID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrBonusNotFound
		}
		return nil, fmt.Errorf("find bonus: %w", err)
	}

	comment := &model.BonusComment{
		BonusID:  bonusID,
		AuthorID: authorID,
		Text:     text,
	}
	if err := s.bonusRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	return s.bonusRepo.FindByIDDetailed(ctx, bonusID)
}

// Stats aggregates counts and amounts by status for the dashboards.
func (s *bonusService) Stats(ctx context.Context) (*BonusStats, error) {
	totals, err := s.bonusRepo.StatusTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate bonuses: %w", err)
	}

	stats := &BonusStats{ByStatus: totals, TotalAmount: decimal.Zero}
	for _, t := range totals {
		stats.TotalCount += t.Count
		stats.TotalAmount = stats.TotalAmount.Add(t.Total)
	}
	return stats, nil
}
