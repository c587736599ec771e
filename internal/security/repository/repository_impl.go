package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() securitydomain.Repository {
	return &repo{}
}

const settingsColumns = `id, streamer_id, token, token_expires_at, revoked, revoked_reason, revoked_at,
	allowed_ips, max_connections, require_ip_validation, require_signature, signature_secret,
	media, last_audit_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *securitydomain.AlertSettings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO alert_settings (`+settingsColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.StreamerID,
		s.Token,
		s.TokenExpiresAt,
		s.Revoked,
		s.RevokedReason,
		s.RevokedAt,
		s.AllowedIPs,
		s.MaxConnections,
		s.RequireIPValidation,
		s.RequireSignature,
		s.SignatureSecret,
		s.Media,
		s.LastAuditAt,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, s *securitydomain.AlertSettings) error {
	return db.WithContext(ctx).Exec(
		`UPDATE alert_settings
		 SET token = ?, token_expires_at = ?, revoked = ?, revoked_reason = ?, revoked_at = ?,
		     allowed_ips = ?, max_connections = ?, require_ip_validation = ?, require_signature = ?,
		     signature_secret = ?, media = ?, last_audit_at = ?, updated_at = ?
		 WHERE id = ?`,
		s.Token,
		s.TokenExpiresAt,
		s.Revoked,
		s.RevokedReason,
		s.RevokedAt,
		s.AllowedIPs,
		s.MaxConnections,
		s.RequireIPValidation,
		s.RequireSignature,
		s.SignatureSecret,
		s.Media,
		s.LastAuditAt,
		s.UpdatedAt,
		s.ID,
	).Error
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*securitydomain.AlertSettings, error) {
	var settings securitydomain.AlertSettings
	err := db.WithContext(ctx).Raw(
		`SELECT `+settingsColumns+` FROM alert_settings WHERE token = ?`,
		token,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == 0 {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) FindByStreamerID(ctx context.Context, db *gorm.DB, streamerID snowflake.ID) (*securitydomain.AlertSettings, error) {
	var settings securitydomain.AlertSettings
	err := db.WithContext(ctx).Raw(
		`SELECT `+settingsColumns+` FROM alert_settings WHERE streamer_id = ?`,
		streamerID,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == 0 {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) TouchAudit(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE alert_settings SET last_audit_at = ?, updated_at = ? WHERE id = ?`,
		at,
		at,
		id,
	).Error
}

func (r *repo) AppendViolation(ctx context.Context, db *gorm.DB, v *securitydomain.SecurityViolation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO security_violations (id, settings_id, streamer_id, type, ip, user_agent, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		v.SettingsID,
		v.StreamerID,
		v.Type,
		v.IP,
		v.UserAgent,
		v.Detail,
		v.CreatedAt,
	).Error
}

func (r *repo) ListViolations(ctx context.Context, db *gorm.DB, streamerID snowflake.ID, limit int) ([]securitydomain.SecurityViolation, error) {
	var violations []securitydomain.SecurityViolation
	err := db.WithContext(ctx).Raw(
		`SELECT id, settings_id, streamer_id, type, ip, user_agent, detail, created_at
		 FROM security_violations WHERE streamer_id = ? ORDER BY created_at DESC LIMIT ?`,
		streamerID,
		limit,
	).Scan(&violations).Error
	if err != nil {
		return nil, err
	}
	return violations, nil
}

func (r *repo) DeleteViolationsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM security_violations WHERE created_at < ?`,
		cutoff,
	)
	return res.RowsAffected, res.Error
}
