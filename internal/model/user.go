package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a closed set of user roles. Unknown values are rejected at the boundary.
type Role string

const (
	RoleManager      Role = "MANAGER"
	RoleFinanceStaff Role = "FINANCE_STAFF"
	RoleStudent      Role = "STUDENT"
	RoleStaff        Role = "STAFF"
	RoleDoctor       Role = "DOCTOR"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleManager, RoleFinanceStaff, RoleStudent, RoleStaff, RoleDoctor:
		return Role(s), true
	}
	return "", false
}

// CanSignup reports whether the role may be chosen at registration.
// Only managers and finance staff self-register; the rest are reserved.
func (r Role) CanSignup() bool {
	return r == RoleManager || r == RoleFinanceStaff
}

// User represents an identity in the system. Role is immutable after creation.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	IsActive     bool      `json:"is_active" gorm:"default:false;index"`

	// Password-reset state, managed by the auth service only.
	OTPHash     string     `json:"-" gorm:"size:255"`
	OTPExpiry   *time.Time `json:"-"`
	OTPAttempts int        `json:"-" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets the UUID and normalizes the email before inserting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// UserSummary is the denormalized shape embedded in bonus responses.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Summary returns the name/email projection used when resolving bonus actors.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
