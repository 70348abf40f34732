package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bonusdesk/internal/model"
)

const (
	// AccessTokenExpiry is the duration for which access tokens are valid.
	AccessTokenExpiry = 15 * time.Minute
	// RefreshTokenExpiry is the duration for which refresh tokens are valid.
	RefreshTokenExpiry = 7 * 24 * time.Hour
	// VerifyTokenExpiry is the duration for which account-verification links are valid.
	VerifyTokenExpiry = 24 * time.Hour

	// ScopeAccess marks tokens usable on API requests.
	ScopeAccess = "access"
	// ScopeRefresh marks tokens exchangeable for a new access token.
	ScopeRefresh = "refresh"
	// ScopeVerify marks one-shot account verification tokens.
	ScopeVerify = "verify"
)

// Claims carries the trusted identity claim: id, role and active flag.
// The guard relies on these being signed, not on a database round trip.
type Claims struct {
	UserID   uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"is_active"`
	Scope    string     `json:"scope"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// GenerateAccessToken generates a new access token for the user.
func (s *JWTService) GenerateAccessToken(user *model.User) (string, error) {
	return s.sign(user, ScopeAccess, AccessTokenExpiry, "")
}

// GenerateRefreshToken generates a new refresh token for the user.
// The token ID is returned separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(user *model.User) (tokenID string, token string, err error) {
	tokenID = uuid.New().String()
	token, err = s.sign(user, ScopeRefresh, RefreshTokenExpiry, tokenID)
	return tokenID, token, err
}

// GenerateVerifyToken generates the token embedded in account verification links.
func (s *JWTService) GenerateVerifyToken(user *model.User) (string, error) {
	return s.sign(user, ScopeVerify, VerifyTokenExpiry, "")
}

func (s *JWTService) sign(user *model.User, scope string, expiry time.Duration, tokenID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ValidateScoped validates a token and requires a specific scope.
func (s *JWTService) ValidateScoped(tokenString, scope string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != scope {
		return nil, errors.New("token scope mismatch")
	}
	return claims, nil
}

// ExtractTokenID extracts the token ID (JTI) from a refresh token.
func (s *JWTService) ExtractTokenID(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", errors.New("token ID not found")
	}
	return claims.ID, nil
}
