package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sparkpad-app/sparkpad/backend/internal/config"
	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/internal/repository/postgres"
	"github.com/sparkpad-app/sparkpad/backend/internal/service/session"
	"github.com/sparkpad-app/sparkpad/backend/pkg/auth"
	"github.com/sparkpad-app/sparkpad/backend/pkg/useragent"
)

type OAuthHandler struct {
	UserRepo    *postgres.UserRepo
	Config      *config.OAuthConfig
	AuthService *session.AuthService
}

func NewOAuthHandler(userRepo *postgres.UserRepo, cfg *config.OAuthConfig, authSvc *session.AuthService) *OAuthHandler {
	return &OAuthHandler{
		UserRepo:    userRepo,
		Config:      cfg,
		AuthService: authSvc,
	}
}

// GoogleLogin redirects the user to Google's consent screen.
func (h *OAuthHandler) GoogleLogin(c *gin.Context) {
	url := h.Config.GoogleLoginConfig.AuthCodeURL("state")
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback handles the response from Google. Existing accounts get
// auto-linked by email; new accounts are created on the spot with the
// profile Google reports. Either way the app receives a token pair via
// the frontend redirect.
func (h *OAuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	token, err := h.Config.GoogleLoginConfig.Exchange(context.Background(), code)
	if err != nil {
		log.Printf("[OAUTH] Failed to exchange token: %v", err)
		h.redirectError(c, "auth_failed")
		return
	}

	userInfo, err := config.GetGoogleUserInfo(token.AccessToken)
	if err != nil {
		log.Printf("[OAUTH] Failed to get user info: %v", err)
		h.redirectError(c, "user_info_failed")
		return
	}

	user, _ := h.UserRepo.GetUserByEmail(userInfo.Email)

	if user == nil {
		userID, err := h.UserRepo.CreateUser(userInfo.Email, userInfo.Name, "", userInfo.ID, userInfo.Picture)
		if err != nil {
			log.Printf("[OAUTH] Failed to create user: %v", err)
			h.redirectError(c, "server_error")
			return
		}
		user, err = h.UserRepo.GetUserByID(userID)
		if err != nil || user == nil {
			h.redirectError(c, "server_error")
			return
		}
	} else if !user.GoogleID.Valid {
		// Account registered with a password first; link the Google ID now.
		if err := h.UserRepo.UpdateUserGoogleID(userInfo.Email, userInfo.ID); err != nil {
			log.Printf("[OAUTH] Failed to link Google ID: %v", err)
		}
	}

	if err := h.AuthService.InvalidateAllUserSessions(user.ID); err != nil {
		log.Printf("[OAUTH] Warning: failed to invalidate previous sessions for user %d: %v", user.ID, err)
	}
	h.AuthService.RevokeAllUserRefreshTokens(user.ID)

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
		log.Printf("[OAUTH] Failed to create session: %v", err)
		h.redirectError(c, "server_error")
		return
	}

	accessToken, refreshToken, err := h.AuthService.GenerateTokenPair(user.ID, user.Email, sessionID)
	if err != nil {
		h.redirectError(c, "token_error")
		return
	}

	// Tokens travel in the fragment so they never hit server logs.
	redirectURL := fmt.Sprintf("%s/auth/callback#accessToken=%s&refreshToken=%s",
		config.AppConfig.FrontendURL,
		url.QueryEscape(accessToken),
		url.QueryEscape(refreshToken))
	c.Redirect(http.StatusTemporaryRedirect, redirectURL)
}

func (h *OAuthHandler) redirectError(c *gin.Context, reason string) {
	c.Redirect(http.StatusTemporaryRedirect, config.AppConfig.FrontendURL+"/login?error="+reason)
}
