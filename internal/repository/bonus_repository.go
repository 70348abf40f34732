package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bonusdesk/internal/model"
	"bonusdesk/internal/query"
)

// StatusTotal aggregates bonuses by lifecycle state for dashboards.
type StatusTotal struct {
	Status model.BonusStatus `json:"status"`
	Count  int64             `json:"count"`
	Total  decimal.Decimal   `json:"total"`
}

// BonusRepository defines bonus persistence operations.
type BonusRepository interface {
	Create(ctx context.Context, bonus *model.Bonus) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Bonus, error)
	FindByIDDetailed(ctx context.Context, id uuid.UUID) (*model.Bonus, error)
	ExistsForRecipientBetween(ctx context.Context, recipientID uuid.UUID, from, to time.Time) (bool, error)
	List(ctx context.Context, opts query.ListOptions) ([]model.Bonus, error)
	Transition(ctx context.Context, id uuid.UUID, to model.BonusStatus, actorID uuid.UUID, at time.Time) (int64, error)
	UpdateFieldsIfPending(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (int64, error)
	DeleteIfPending(ctx context.Context, id uuid.UUID) (int64, error)
	AddComment(ctx context.Context, comment *model.BonusComment) error
	StatusTotals(ctx context.Context) ([]StatusTotal, error)
}

type bonusRepository struct {
	db *gorm.DB
}

// NewBonusRepository creates a new bonus repository.
func NewBonusRepository(db *gorm.DB) BonusRepository {
	return &bonusRepository{db: db}
}

// Create creates a new bonus record. A unique-index violation on
// (recipient_id, month_key) surfaces as gorm.ErrDuplicatedKey.
func (r *bonusRepository) Create(ctx context.Context, bonus *model.Bonus) error {
	return r.db.WithContext(ctx).Create(bonus).Error
}

// FindByID finds a bonus by ID without resolving relations.
func (r *bonusRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Bonus, error) {
	var bonus model.Bonus
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bonus).Error; err != nil {
		return nil, err
	}
	return &bonus, nil
}

// FindByIDDetailed finds a bonus with its actors and comments resolved.
func (r *bonusRepository) FindByIDDetailed(ctx context.Context, id uuid.UUID) (*model.Bonus, error) {
	var bonus model.Bonus
	err := r.db.WithContext(ctx).
		Preload("Recipient").
		Preload("CreatedBy").
		Preload("ApprovedBy").
		Preload("RejectedBy").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at")
		}).
		Where("id = ?", id).First(&bonus).Error
	if err != nil {
		return nil, err
	}
	return &bonus, nil
}

// ExistsForRecipientBetween reports whether the recipient has a bonus whose
// created_at falls in [from, to].
func (r *bonusRepository) ExistsForRecipientBetween(ctx context.Context, recipientID uuid.UUID, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Bonus{}).
		Where("recipient_id = ? AND created_at BETWEEN ? AND ?", recipientID, from, to).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns bonuses matching the options, with actors resolved.
func (r *bonusRepository) List(ctx context.Context, opts query.ListOptions) ([]model.Bonus, error) {
	var bonuses []model.Bonus
	err := r.db.WithContext(ctx).
		Preload("Recipient").
		Preload("CreatedBy").
		Preload("ApprovedBy").
		Preload("RejectedBy").
		Scopes(opts.Scope()).
		Find(&bonuses).Error
	if err != nil {
		return nil, err
	}
	return bonuses, nil
}

// Transition performs the compare-and-set state change keyed on PENDING.
// It sets the actor reference and date for the target state and clears the
// opposing pair in the same statement, so the mutual-exclusion invariant can
// never be observed violated. Returns the number of rows changed: zero means
// the bonus is absent or already decided.
func (r *bonusRepository) Transition(ctx context.Context, id uuid.UUID, to model.BonusStatus, actorID uuid.UUID, at time.Time) (int64, error) {
	fields := map[string]interface{}{"status": to}
	switch to {
	case model.BonusStatusApproved:
		fields["approved_by_id"] = actorID
		fields["approval_date"] = at
		fields["rejected_by_id"] = nil
		fields["rejection_date"] = nil
	case model.BonusStatusRejected:
		fields["rejected_by_id"] = actorID
		fields["rejection_date"] = at
		fields["approved_by_id"] = nil
		fields["approval_date"] = nil
	}

	res := r.db.WithContext(ctx).Model(&model.Bonus{}).
		Where("id = ? AND status = ?", id, model.BonusStatusPending).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// UpdateFieldsIfPending edits title/amount/reason while the bonus is PENDING.
func (r *bonusRepository) UpdateFieldsIfPending(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Bonus{}).
		Where("id = ? AND status = ?", id, model.BonusStatusPending).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// DeleteIfPending hard-deletes a PENDING bonus and its comments.
func (r *bonusRepository) DeleteIfPending(ctx context.Context, id uuid.UUID) (int64, error) {
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", id, model.BonusStatusPending).Delete(&model.Bonus{})
		if res.Error != nil {
			return res.Error
		}
		rows = res.RowsAffected
		if rows == 0 {
			return nil
		}
		return tx.Where("bonus_id = ?", id).Delete(&model.BonusComment{}).Error
	})
	return rows, err
}

// AddComment appends a comment to a bonus.
func (r *bonusRepository) AddComment(ctx context.Context, comment *model.BonusComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// StatusTotals aggregates counts and amounts per status.
func (r *bonusRepository) StatusTotals(ctx context.Context) ([]StatusTotal, error) {
	var totals []StatusTotal
	err := r.db.WithContext(ctx).Model(&model.Bonus{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
