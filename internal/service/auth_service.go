package service

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bonusdesk/internal/auth"
	"bonusdesk/internal/errors"
	"bonusdesk/internal/mail"
	"bonusdesk/internal/model"
	"bonusdesk/internal/repository"
)

const (
	bcryptCost     = 10
	otpTTL         = 15 * time.Minute
	otpMaxAttempts = 3
)

// AuthService handles registration, account verification, login and the
// OTP-based password reset flow.
type AuthService interface {
	Signup(ctx context.Context, name, email, password, role string) (*model.User, error)
	VerifyAccount(ctx context.Context, token string) (*model.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *model.User, err error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	notifier   mail.Notifier
	appBaseURL string
	log        zerolog.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	notifier mail.Notifier,
	appBaseURL string,
	log zerolog.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		notifier:   notifier,
		appBaseURL: appBaseURL,
		log:        log.With().Str("component", "auth_service").Logger(),
		now:        time.Now,
	}
}

// Signup registers a new inactive user and emails a verification link.
// Only MANAGER and FINANCE_STAFF may be chosen at registration.
func (s *authService) Signup(ctx context.Context, name, email, password, role string) (*model.User, error) {
	parsedRole, ok := model.ParseRole(role)
	if !ok || !parsedRole.CanSignup() {
		return nil, errors.ErrInvalidRole
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, errors.ErrEmailExists
	}
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         parsedRole,
		IsActive:     false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	verifyToken, err := s.jwtService.GenerateVerifyToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate verify token: %w", err)
	}
	s.notifier.AccountVerification(user.Email, fmt.Sprintf("%s/api/auth/verify/%s", s.appBaseURL, verifyToken))

	return user, nil
}

// VerifyAccount activates the account referenced by a verification token.
func (s *authService) VerifyAccount(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.jwtService.ValidateScoped(token, auth.ScopeVerify)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive {
		if err := s.userRepo.SetActive(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("activate user: %w", err)
		}
		user.IsActive = true
	}
	return user, nil
}

// Login authenticates a user and returns access and refresh tokens. The
// access token carries the {id, role, is_active} claim the guard trusts.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", nil, errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, errors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", "", nil, errors.ErrAccountInactive
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Email, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateScoped(refreshToken, auth.ScopeRefresh)
	if err != nil {
		return "", errors.ErrInvalidToken
	}

	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", errors.ErrInvalidToken
	}
	if storedUserID != claims.UserID || storedEmail != claims.Email {
		return "", errors.ErrInvalidToken
	}

	// Re-read the user so a deactivation or role change invalidates old claims.
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", errors.ErrInvalidToken
	}
	if !user.IsActive {
		return "", errors.ErrAccountInactive
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return errors.ErrInvalidToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

// ForgotPassword generates a one-time reset code and emails it. An unexpired
// outstanding code blocks a new request.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	now := s.now()
	if user.OTPHash != "" && user.OTPExpiry != nil && user.OTPExpiry.After(now) {
		return errors.ErrOTPAlreadySent
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	expiry := now.Add(otpTTL)
	user.OTPHash = string(hashed)
	user.OTPExpiry = &expiry
	user.OTPAttempts = 0
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.notifier.PasswordResetCode(user.Email, code)
	return nil
}

// ResetPassword verifies the reset code and sets the new password. Three
// failed attempts invalidate the code.
func (s *authService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if user.OTPHash == "" || user.OTPExpiry == nil {
		return errors.ErrInvalidOTP
	}
	if user.OTPExpiry.Before(s.now()) {
		return errors.ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.OTPHash), []byte(otp)); err != nil {
		user.OTPAttempts++
		if user.OTPAttempts >= otpMaxAttempts {
			user.OTPHash = ""
			user.OTPExpiry = nil
			user.OTPAttempts = 0
			if err := s.userRepo.Update(ctx, user); err != nil {
				return fmt.Errorf("clear otp: %w", err)
			}
			return errors.ErrOTPAttemptsExceeded
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("record otp attempt: %w", err)
		}
		return errors.ErrInvalidOTP
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)
	user.OTPHash = ""
	user.OTPExpiry = nil
	user.OTPAttempts = 0
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// generateOTP returns a 6-digit numeric code from a CSPRNG.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
