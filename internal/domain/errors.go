package domain

import "errors"

// Business errors shared across services and transports.
var (
	ErrQuotaExceeded       = errors.New("reply quota exceeded for current plan")
	ErrIdeaNotFound        = errors.New("idea not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrNotIdeaOwner        = errors.New("idea belongs to another user")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or revoked")
	ErrIdeaLimitReached    = errors.New("idea limit reached for current plan")
)

// API error codes returned inside the response envelope. The mobile client
// switches on these, so they are part of the wire contract.
const (
	CodeAuthExpired   = "AUTH_EXPIRED"
	CodeAuthRequired  = "AUTH_REQUIRED"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeNotFound      = "NOT_FOUND"
	CodeBadRequest    = "BAD_REQUEST"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternal      = "INTERNAL"
)
