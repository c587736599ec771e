package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AlertSettings is the per-streamer capability record gating the public
// donation-alert surface. The token is 64 lowercase hex characters
// (256 bits); regenerating it also rotates the signing secret.
type AlertSettings struct {
	ID                  snowflake.ID   `json:"id" gorm:"primaryKey"`
	StreamerID          snowflake.ID   `json:"streamer_id" gorm:"column:streamer_id;not null;uniqueIndex:ux_alert_settings_streamer"`
	Token               string         `json:"-" gorm:"type:varchar(64);not null;uniqueIndex:ux_alert_settings_token"`
	TokenExpiresAt      *time.Time     `json:"token_expires_at" gorm:"column:token_expires_at"`
	Revoked             bool           `json:"revoked" gorm:"not null;default:false"`
	RevokedReason       string         `json:"revoked_reason" gorm:"type:text;not null;default:''"`
	RevokedAt           *time.Time     `json:"revoked_at"`
	AllowedIPs          datatypes.JSON `json:"allowed_ips" gorm:"column:allowed_ips"`
	MaxConnections      int            `json:"max_connections" gorm:"not null;default:0"`
	RequireIPValidation bool           `json:"require_ip_validation" gorm:"not null;default:false"`
	RequireSignature    bool           `json:"require_signature" gorm:"not null;default:false"`
	SignatureSecret     string         `json:"-" gorm:"type:varchar(64);not null"`
	Media               datatypes.JSON `json:"media" gorm:"column:media"`
	LastAuditAt         *time.Time     `json:"last_audit_at"`
	CreatedAt           time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AlertSettings) TableName() string { return "alert_settings" }

// SecurityViolation is one rejected request recorded against a token.
type SecurityViolation struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingsID snowflake.ID `json:"settings_id" gorm:"column:settings_id;not null;index:ix_security_violations_settings"`
	StreamerID snowflake.ID `json:"streamer_id" gorm:"column:streamer_id;not null"`
	Type       string       `json:"type" gorm:"type:text;not null"`
	IP         string       `json:"ip" gorm:"type:text;not null;default:''"`
	UserAgent  string       `json:"user_agent" gorm:"type:text;not null;default:''"`
	Detail     string       `json:"detail" gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_security_violations_created"`
}

// TableName sets the database table name.
func (SecurityViolation) TableName() string { return "security_violations" }

// Violation types recorded by the gate.
const (
	ViolationInvalidFormat    = "invalid_token_format"
	ViolationUnknownToken     = "unknown_token"
	ViolationRevoked          = "token_revoked"
	ViolationExpired          = "token_expired"
	ViolationIPBlocked        = "ip_blocked"
	ViolationInvalidSignature = "invalid_signature"
	ViolationReplay           = "replay_detected"
	ViolationRateLimited      = "rate_limited"
)
