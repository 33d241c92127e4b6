package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/launchpad/internal/config"
	"github.com/smallbiznis/launchpad/internal/http/middleware"
	"github.com/smallbiznis/launchpad/internal/service"
)

const refreshCookieName = "lp_refresh_token"

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	cfg  config.Config
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, cfg: cfg}
}

// Register creates a new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and password are required."})
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName, c.ClientIP())
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "message": "User registered successfully"})
}

// Login authenticates with email/password and issues a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and password are required."})
		return
	}

	resp, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, resp.RefreshToken)
	c.JSON(http.StatusOK, resp)
}

// Refresh rotates the presented refresh token. The secret is taken from the
// JSON body, falling back to the refresh cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	resp, err := h.Auth.Refresh(c.Request.Context(), h.refreshSecret(c), c.ClientIP())
	if err != nil {
		h.clearRefreshCookie(c)
		respondAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, resp.RefreshToken)
	c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	ok := h.Auth.Logout(c.Request.Context(), h.refreshSecret(c), c.ClientIP())
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// RevokeAll severs every session of the authenticated user.
func (h *AuthHandler) RevokeAll(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Missing subject claim."})
		return
	}

	success := h.Auth.RevokeAll(c.Request.Context(), userID, c.ClientIP())
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": success})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Missing subject claim."})
		return
	}

	user, err := h.Auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) refreshSecret(c *gin.Context) string {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && strings.TrimSpace(req.RefreshToken) != "" {
		return strings.TrimSpace(req.RefreshToken)
	}
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		return cookie
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, secret string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, secret, int(h.cfg.RefreshTokenTTL.Seconds()), "/auth", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, "/auth", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}

func respondAuthError(c *gin.Context, err error) {
	if authErr, ok := err.(*service.AuthError); ok {
		c.JSON(authErr.Status, gin.H{"error": authErr.Code, "error_description": authErr.Description})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal error."})
}
