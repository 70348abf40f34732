package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BonusStatus represents the lifecycle state of a bonus.
// PENDING is the initial state; APPROVED and REJECTED are terminal.
type BonusStatus string

const (
	BonusStatusPending  BonusStatus = "PENDING"
	BonusStatusApproved BonusStatus = "APPROVED"
	BonusStatusRejected BonusStatus = "REJECTED"
)

// ParseBonusStatus validates a raw status string against the closed set.
func ParseBonusStatus(s string) (BonusStatus, bool) {
	switch BonusStatus(s) {
	case BonusStatusPending, BonusStatusApproved, BonusStatusRejected:
		return BonusStatus(s), true
	}
	return "", false
}

// Bonus represents a bonus proposal raised by a manager for a recipient.
//
// The (recipient_id, month_key) unique index is the store-level arbiter of the
// once-per-month rule: two concurrent creations for the same recipient in the
// same month cannot both insert.
type Bonus struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Reason      string          `json:"reason" gorm:"type:text;not null"`
	RecipientID uuid.UUID       `json:"recipient_id" gorm:"type:char(36);not null;uniqueIndex:idx_recipient_month,priority:1"`
	CreatedByID uuid.UUID       `json:"created_by_id" gorm:"type:char(36);not null;index"`
	Status      BonusStatus     `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`

	// Month is the display month name ("August"); MonthKey ("2026-08") anchors
	// the uniqueness rule.
	Month    string `json:"month" gorm:"size:20;not null"`
	MonthKey string `json:"-" gorm:"size:7;not null;uniqueIndex:idx_recipient_month,priority:2"`

	// At most one of ApprovedByID/RejectedByID is set once status leaves PENDING.
	ApprovedByID  *uuid.UUID `json:"approved_by_id,omitempty" gorm:"type:char(36)"`
	RejectedByID  *uuid.UUID `json:"rejected_by_id,omitempty" gorm:"type:char(36)"`
	ApprovalDate  *time.Time `json:"approval_date,omitempty"`
	RejectionDate *time.Time `json:"rejection_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Recipient  *User          `json:"-" gorm:"foreignKey:RecipientID"`
	CreatedBy  *User          `json:"-" gorm:"foreignKey:CreatedByID"`
	ApprovedBy *User          `json:"-" gorm:"foreignKey:ApprovedByID"`
	RejectedBy *User          `json:"-" gorm:"foreignKey:RejectedByID"`
	Comments   []BonusComment `json:"comments,omitempty" gorm:"foreignKey:BonusID"`
}

// BeforeCreate sets UUID before creating the record.
func (b *Bonus) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BonusComment is a remark attached to a bonus. Comments are owned by the
// bonus and have no independent lifecycle.
type BonusComment struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	BonusID   uuid.UUID `json:"bonus_id" gorm:"type:char(36);not null;index"`
	AuthorID  uuid.UUID `json:"author_id" gorm:"type:char(36);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	Author *User `json:"-" gorm:"foreignKey:AuthorID"`
}

// BeforeCreate sets UUID before creating the record.
func (c *BonusComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
