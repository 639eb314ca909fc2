// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/user"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
	"github.com/your-org/marketplace-api/internal/pkg/auth"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
	isAdminKey   = "is_admin"
	claimsKey    = "token_claims"
)

// SessionValidator confirms that a token's user still exists and is active
type SessionValidator interface {
	ValidateSession(ctx context.Context, claims *auth.Claims) (*user.User, error)
}

// Authenticator resolves the caller from the session cookie or bearer token
type Authenticator struct {
	jwt      *auth.JWTManager
	sessions SessionValidator
	cookies  config.JWTConfig
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(cfg *config.Config, jwt *auth.JWTManager, sessions SessionValidator) *Authenticator {
	return &Authenticator{jwt: jwt, sessions: sessions, cookies: cfg.JWT}
}

// RequireUser rejects requests without a valid session for an active user
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, claims, err := a.resolve(c, a.cookies.UserCookieName, a.cookies.AdminCookieName)
		if err != nil {
			WriteError(c, Classify(err))
			return
		}
		setIdentity(c, u, claims)
		c.Next()
	}
}

// RequireAdmin behaves like RequireUser and additionally requires an admin.
// The admin cookie is consulted before the user cookie.
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, claims, err := a.resolve(c, a.cookies.AdminCookieName, a.cookies.UserCookieName)
		if err != nil {
			WriteError(c, Classify(err))
			return
		}
		if !u.IsAdmin {
			WriteError(c, apperror.Forbidden("admin access required"))
			return
		}
		setIdentity(c, u, claims)
		c.Next()
	}
}

// Optional attaches the caller when a valid session is present and never
// rejects the request
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, claims, err := a.resolve(c, a.cookies.AdminCookieName, a.cookies.UserCookieName); err == nil {
			setIdentity(c, u, claims)
		}
		c.Next()
	}
}

func (a *Authenticator) resolve(c *gin.Context, cookieNames ...string) (*user.User, *auth.Claims, error) {
	token := tokenFromRequest(c, cookieNames...)
	if token == "" {
		return nil, nil, apperror.Unauthorized("authentication required")
	}

	claims, err := a.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.CodeUnauthorized, err, "invalid or expired token")
	}

	u, err := a.sessions.ValidateSession(c.Request.Context(), claims)
	if err != nil {
		return nil, nil, err
	}
	return u, claims, nil
}

// tokenFromRequest returns the first non-empty cookie, falling back to the
// Authorization header
func tokenFromRequest(c *gin.Context, cookieNames ...string) string {
	for _, name := range cookieNames {
		if name == "" {
			continue
		}
		if v, err := c.Cookie(name); err == nil && v != "" {
			return v
		}
	}
	return auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
}

func setIdentity(c *gin.Context, u *user.User, claims *auth.Claims) {
	c.Set(userIDKey, u.ID)
	c.Set(userEmailKey, u.Email)
	c.Set(isAdminKey, u.IsAdmin)
	c.Set(claimsKey, claims)
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmailFromContext extracts user email from gin context
func GetUserEmailFromContext(c *gin.Context) (string, bool) {
	email, exists := c.Get(userEmailKey)
	if !exists {
		return "", false
	}
	s, ok := email.(string)
	return s, ok
}

// IsAdminFromContext checks if user is admin from gin context
func IsAdminFromContext(c *gin.Context) bool {
	return c.GetBool(isAdminKey)
}
