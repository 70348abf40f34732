package auth

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "bonusdesk/internal/errors"
	"bonusdesk/internal/model"
)

// TokenHeader is the custom header carrying the signed identity claim.
const TokenHeader = "token"

// Authorize is the pure authorization decision: it allows the call when the
// caller's role is in the operation's allowed set. There is no role hierarchy;
// every operation declares its set explicitly.
func Authorize(callerRole model.Role, allowed ...model.Role) error {
	for _, role := range allowed {
		if callerRole == role {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

// Authenticate returns the JWT middleware reading the custom token header.
// Missing or invalid tokens are rejected uniformly with 401.
func Authenticate(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		TokenLookup: "header:" + TokenHeader,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.ErrUnauthenticated
		},
	})
}

// RequireRoles gates an operation on the verified role claim. It also rejects
// non-access tokens and deactivated accounts. Must run after Authenticate.
func RequireRoles(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := ClaimsFrom(c)
			if err != nil {
				return err
			}
			if claims.Scope != ScopeAccess {
				return apperrors.ErrUnauthenticated
			}
			if !claims.IsActive {
				return apperrors.ErrAccountInactive
			}
			if err := Authorize(claims.Role, allowed...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// ClaimsFrom extracts the verified claims placed in context by Authenticate.
func ClaimsFrom(c echo.Context) (*Claims, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	return claims, nil
}
