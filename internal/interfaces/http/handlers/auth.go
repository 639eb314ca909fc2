// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/domain/user"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userService *user.Service
	config      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *user.Service, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: users,
		config:      cfg,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.setSessionCookie(c, h.config.JWT.UserCookieName, response)
	respond(c, http.StatusCreated, "User registered successfully", response)
}

// Login handles customer login and sets the userToken cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.setSessionCookie(c, h.config.JWT.UserCookieName, response)
	respond(c, http.StatusOK, "Login successful", response)
}

// AdminLogin authenticates an admin and sets the adminToken cookie
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.userService.AdminLogin(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.setSessionCookie(c, h.config.JWT.AdminCookieName, response)
	respond(c, http.StatusOK, "Admin login successful", response)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req user.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}

	response, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, err)
		return
	}

	cookie := h.config.JWT.UserCookieName
	if response.User != nil && response.User.IsAdmin {
		if _, err := c.Cookie(h.config.JWT.AdminCookieName); err == nil {
			cookie = h.config.JWT.AdminCookieName
		}
	}
	h.setSessionCookie(c, cookie, response)
	respond(c, http.StatusOK, "Token refreshed successfully", response)
}

// Logout clears both session cookies. Tokens are stateless and simply expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	for _, name := range []string{h.config.JWT.UserCookieName, h.config.JWT.AdminCookieName} {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(name, "", -1, "/", h.config.JWT.CookieDomain, h.config.JWT.CookieSecure, true)
	}
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, name string, response *user.AuthResponse) {
	maxAge := int(response.ExpiresIn)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, response.AccessToken, maxAge, "/", h.config.JWT.CookieDomain, h.config.JWT.CookieSecure, true)
}
