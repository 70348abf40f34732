package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrBonusNotFound is returned when a bonus is not found.
	ErrBonusNotFound = errors.New("bonus not found")
	// ErrEmailExists is returned when registering an email that is taken.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidRole is returned when a role is outside the closed set
	// or not permitted at signup.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive is returned when the account has not been verified.
	ErrAccountInactive = errors.New("account is not active")
	// ErrInvalidAmount is returned when a bonus amount is negative.
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrWindowClosed is returned when creation is attempted outside days 22-30.
	ErrWindowClosed = errors.New("bonus can only be added between days 22-30 of the month")
	// ErrAlreadyAwarded is returned when the recipient already has a bonus this month.
	ErrAlreadyAwarded = errors.New("user already received a bonus this month")
	// ErrDuplicateBonus is returned when a concurrent creation lost the race
	// against the store's uniqueness constraint.
	ErrDuplicateBonus = errors.New("bonus already created for this recipient this month")
	// ErrAlreadyDecided is returned when approving or rejecting a bonus that
	// has already left PENDING.
	ErrAlreadyDecided = errors.New("bonus has already been approved or rejected")
	// ErrBonusNotPending is returned when editing or deleting a decided bonus.
	ErrBonusNotPending = errors.New("bonus is no longer pending")
	// ErrUnauthenticated is returned when no valid identity claim is present.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller's role may not perform the action.
	ErrForbidden = errors.New("you are not authorized to perform this action")
	// ErrInvalidToken is returned for malformed or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidOTP is returned when the reset code does not match.
	ErrInvalidOTP = errors.New("invalid reset code")
	// ErrOTPExpired is returned when the reset code has expired.
	ErrOTPExpired = errors.New("reset code has expired")
	// ErrOTPAlreadySent is returned when an unexpired reset code exists.
	ErrOTPAlreadySent = errors.New("a reset code was already sent")
	// ErrOTPAttemptsExceeded is returned after too many wrong reset codes.
	ErrOTPAttemptsExceeded = errors.New("too many invalid attempts, request a new code")
)

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: message}
}

// MapErrorToHTTP maps domain errors to HTTP errors per the taxonomy:
// validation/eligibility 400, unauthenticated 401, forbidden 403, missing 404,
// conflicts 409, everything else 500.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrWindowClosed),
		errors.Is(err, ErrAlreadyAwarded),
		errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrOTPExpired),
		errors.Is(err, ErrOTPAlreadySent),
		errors.Is(err, ErrOTPAttemptsExceeded):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrAccountInactive):
		return NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrBonusNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrDuplicateBonus),
		errors.Is(err, ErrAlreadyDecided),
		errors.Is(err, ErrBonusNotPending):
		return NewHTTPError(http.StatusConflict, err.Error())
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
