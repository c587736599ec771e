package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service is the security gate in front of every public alert surface.
type Service interface {
	// Validate runs the full check pipeline against a presented token.
	// Every rejection is recorded as a typed violation against the
	// token and bumps its last-audit timestamp.
	Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error)

	// EnsureSettings creates the settings record (with a fresh token
	// and secret) for a streamer that has none yet.
	EnsureSettings(ctx context.Context, streamerID string) (*AlertSettings, error)
	// Regenerate mints a new token and signing secret atomically and
	// clears any revocation. The old token stops working immediately.
	Regenerate(ctx context.Context, streamerID string) (*TokenResponse, error)
	// Revoke disables the token without deleting the record.
	Revoke(ctx context.Context, streamerID, reason string) error
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*AlertSettings, error)
	GetByStreamerID(ctx context.Context, streamerID string) (*AlertSettings, error)

	ListViolations(ctx context.Context, streamerID string, limit int) ([]SecurityViolation, error)
	// PurgeViolations removes violation records older than maxAge
	// across all tokens and reports how many were dropped.
	PurgeViolations(ctx context.Context, maxAge time.Duration) (int64, error)
}

type ValidateRequest struct {
	Token     string
	ClientIP  string
	UserAgent string
	Signature string
	Nonce     string
	// Timestamp is unix milliseconds from the signed request.
	Timestamp int64
}

type ValidateResult struct {
	StreamerID snowflake.ID
	Settings   AlertSettings
}

type TokenResponse struct {
	Token           string `json:"token"`
	SignatureSecret string `json:"signature_secret"`
}

type UpdateSettingsRequest struct {
	StreamerID          string            `json:"streamer_id"`
	AllowedIPs          []string          `json:"allowed_ips"`
	MaxConnections      int               `json:"max_connections"`
	RequireIPValidation bool              `json:"require_ip_validation"`
	RequireSignature    bool              `json:"require_signature"`
	TokenExpiresAt      *time.Time        `json:"token_expires_at"`
	Media               map[string]string `json:"media"`
}

var (
	ErrInvalidTokenFormat = errors.New("invalid_token_format")
	ErrUnknownToken       = errors.New("unknown_token")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrTokenExpired       = errors.New("token_expired")
	ErrIPNotAllowed       = errors.New("ip_not_allowed")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrReplayDetected     = errors.New("replay_detected")
	ErrRateLimited        = errors.New("rate_limited")
	ErrInvalidStreamerID  = errors.New("invalid_streamer_id")
	ErrSettingsNotFound   = errors.New("alert_settings_not_found")
	ErrSettingsTooLarge   = errors.New("alert_settings_too_large")
)
