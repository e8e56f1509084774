package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/session"
	"github.com/sparkpad-app/sparkpad/backend/pkg/auth"
	"github.com/sparkpad-app/sparkpad/backend/pkg/useragent"
)

const sessionLifetime = 30 * 24 * time.Hour

type AuthHandler struct {
	UserRepo    *postgres.UserRepo
	AuthService *session.AuthService
	Cache       session.CacheRepository
}

func NewAuthHandler(userRepo *postgres.UserRepo, authService *session.AuthService, cache session.CacheRepository) *AuthHandler {
	return &AuthHandler{
		UserRepo:    userRepo,
		AuthService: authService,
		Cache:       cache,
	}
}

// tokenPairResponse is the payload of every endpoint that issues credentials.
// Both tokens always travel together.
type tokenPairResponse struct {
	AccessToken  string                 `json:"accessToken"`
	RefreshToken string                 `json:"refreshToken"`
	User         map[string]interface{} `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid input")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid email format")
		return
	}

	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, err.Error())
		return
	}

	existing, _ := h.UserRepo.GetUserByEmail(req.Email)
	if existing != nil {
		sendError(c, http.StatusConflict, domain.CodeBadRequest, "Email already registered")
		return
	}

	hashedPwd, err := auth.HashPassword(req.Password)
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Internal server error")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	userID, err := h.UserRepo.CreateUser(req.Email, req.Name, hashedPwd, "", "")
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to create user")
		return
	}

	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load user")
		return
	}

	pair, err := h.startSession(c, user)
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to create session")
		return
	}

	sendSuccess(c, http.StatusCreated, pair)
}

// verifyCredentials checks a password login attempt. An unknown email and a
// wrong password are indistinguishable to the caller; users created through
// OAuth have no password hash and can never pass here.
func verifyCredentials(user *domain.User, password string) error {
	if user == nil || user.PasswordHash == "" || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid input")
		return
	}

	user, err := h.UserRepo.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Internal server error")
		return
	}

	if err := verifyCredentials(user, req.Password); errors.Is(err, domain.ErrInvalidCredentials) {
		sendError(c, http.StatusUnauthorized, domain.CodeAuthRequired, "Invalid credentials")
		return
	}

	pair, err := h.startSession(c, user)
	if err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to create session")
		return
	}

	sendSuccess(c, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a fresh pair. This endpoint is the
// only one the client SDK calls without a bearer header.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Refresh token is required")
		return
	}

	getEmail := func(userID int64) (string, error) {
		user, err := h.UserRepo.GetUserByID(userID)
		if err != nil {
			return "", err
		}
		if user == nil {
			return "", domain.ErrUserNotFound
		}
		return user.Email, nil
	}

	accessToken, refreshToken, userID, err := h.AuthService.ValidateAndRefresh(req.RefreshToken, getEmail)
	if err != nil {
		log.Printf("[AUTH] Refresh rejected: %v", err)
		sendError(c, http.StatusUnauthorized, domain.CodeAuthRequired, "Refresh token invalid or expired")
		return
	}

	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to load user")
		return
	}

	sendSuccess(c, http.StatusOK, tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.UserResponse(),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetInt64("user_id")
	sessionID := c.GetString("session_id")

	if err := h.AuthService.InvalidateSession(sessionID); err != nil {
		log.Printf("[AUTH] Logout: failed to invalidate session %s: %v", sessionID, err)
	}
	if err := h.AuthService.RevokeAllUserRefreshTokens(userID); err != nil {
		log.Printf("[AUTH] Logout: failed to revoke refresh tokens for user %d: %v", userID, err)
	}

	sendSuccess(c, http.StatusOK, gin.H{"loggedOut": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetInt64("user_id")

	// Try cache first
	if h.Cache != nil {
		cacheKey := fmt.Sprintf("user_profile:%d", userID)
		cachedData, err := h.Cache.Get(c.Request.Context(), cacheKey)
		if err == nil && cachedData != "" {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json", []byte(cachedData))
			return
		}
	}

	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusNotFound, domain.CodeNotFound, "User not found")
		return
	}

	body := Response{Success: true, Data: gin.H{"user": user.UserResponse()}}

	if h.Cache != nil {
		cacheKey := fmt.Sprintf("user_profile:%d", userID)
		if data, err := marshalJSON(body); err == nil {
			h.Cache.Set(c.Request.Context(), cacheKey, data, time.Hour)
		}
	}

	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, body)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		Name string `json:"name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Invalid input")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if len(req.Name) > 100 {
		sendError(c, http.StatusBadRequest, domain.CodeBadRequest, "Name must be at most 100 characters")
		return
	}

	if err := h.UserRepo.UpdateProfile(userID, req.Name); err != nil {
		sendError(c, http.StatusInternalServerError, domain.CodeInternal, "Failed to update profile")
		return
	}

	h.invalidateProfileCache(c, userID)

	user, err := h.UserRepo.GetUserByID(userID)
	if err != nil || user == nil {
		sendError(c, http.StatusNotFound, domain.CodeNotFound, "User not found")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{"user": user.UserResponse()})
}

// startSession rotates out any previous device session and issues a fresh
// token pair for the user.
func (h *AuthHandler) startSession(c *gin.Context, user *domain.User) (*tokenPairResponse, error) {
	if err := h.AuthService.InvalidateAllUserSessions(user.ID); err != nil {
		log.Printf("[AUTH] Warning: failed to invalidate previous sessions for user %d: %v", user.ID, err)
	}

	sessionID := auth.GenerateToken()
	sess := &domain.UserSession{
		UserID:     user.ID,
		SessionID:  sessionID,
		DeviceInfo: useragent.ExtractDeviceInfo(c.Request),
		IPAddress:  useragent.ExtractIPAddress(c.Request),
		ExpiresAt:  time.Now().Add(sessionLifetime),
		IsActive:   true,
	}
	if err := h.AuthService.SetSession(sess); err != nil {
		return nil, err
	}

	accessToken, refreshToken, err := h.AuthService.GenerateTokenPair(user.ID, user.Email, sessionID)
	if err != nil {
		return nil, err
	}

	return &tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.UserResponse(),
	}, nil
}

func (h *AuthHandler) invalidateProfileCache(c *gin.Context, userID int64) {
	if h.Cache != nil {
		h.Cache.Del(c.Request.Context(), fmt.Sprintf("user_profile:%d", userID))
	}
}
