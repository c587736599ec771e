package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tipcast/tipcast/internal/clock"
	"github.com/tipcast/tipcast/internal/config"
	"github.com/tipcast/tipcast/internal/metrics"
	"github.com/tipcast/tipcast/internal/security/cache"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    securitydomain.Repository
	Replay  cache.ReplayCache
	Limiter cache.RateLimiter
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.SecurityConfig
	genID   *snowflake.Node
	clock   clock.Clock
	repo    securitydomain.Repository
	replay  cache.ReplayCache
	limiter cache.RateLimiter
	metrics *metrics.Metrics
}

func New(p Params) securitydomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("security.service"),
		cfg:     p.Cfg.Security,
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		replay:  p.Replay,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

// Validate runs the gate checks in order, short-circuiting on the first
// failure. The rate-limit check counts every request that reached a
// known token, so exceeding the window rejects regardless of the other
// checks passing.
func (s *Service) Validate(ctx context.Context, req securitydomain.ValidateRequest) (*securitydomain.ValidateResult, error) {
	token := strings.TrimSpace(req.Token)

	if !validTokenFormat(token) {
		s.countViolation(securitydomain.ViolationInvalidFormat)
		s.log.Warn("alert token rejected",
			zap.String("violation", securitydomain.ViolationInvalidFormat),
			zap.String("ip", req.ClientIP),
		)
		return nil, securitydomain.ErrInvalidTokenFormat
	}

	settings, err := s.repo.FindByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		s.countViolation(securitydomain.ViolationUnknownToken)
		s.log.Warn("alert token rejected",
			zap.String("violation", securitydomain.ViolationUnknownToken),
			zap.String("ip", req.ClientIP),
		)
		return nil, securitydomain.ErrUnknownToken
	}

	now := s.clock.Now()

	if settings.Revoked {
		s.recordViolation(ctx, settings, securitydomain.ViolationRevoked, req, settings.RevokedReason)
		return nil, securitydomain.ErrTokenRevoked
	}

	if settings.TokenExpiresAt != nil && now.After(*settings.TokenExpiresAt) {
		s.recordViolation(ctx, settings, securitydomain.ViolationExpired, req,
			fmt.Sprintf("expired at %s", settings.TokenExpiresAt.Format(time.RFC3339)))
		return nil, securitydomain.ErrTokenExpired
	}

	if settings.RequireIPValidation {
		if !ipAllowed(req.ClientIP, decodeStringList(settings.AllowedIPs)) {
			s.recordViolation(ctx, settings, securitydomain.ViolationIPBlocked, req,
				fmt.Sprintf("ip %s not in allow-list", req.ClientIP))
			return nil, securitydomain.ErrIPNotAllowed
		}
	}

	if settings.RequireSignature && req.Signature != "" {
		drift := now.UnixMilli() - req.Timestamp
		if drift < 0 {
			drift = -drift
		}
		if time.Duration(drift)*time.Millisecond > s.cfg.SignatureWindow {
			s.recordViolation(ctx, settings, securitydomain.ViolationInvalidSignature, req, "timestamp outside signing window")
			return nil, securitydomain.ErrInvalidSignature
		}
		expected := computeSignature(settings.SignatureSecret, req.Timestamp, req.Nonce)
		if !signatureEqual(req.Signature, expected) {
			s.recordViolation(ctx, settings, securitydomain.ViolationInvalidSignature, req, "signature mismatch")
			return nil, securitydomain.ErrInvalidSignature
		}
	}

	if req.Nonce != "" {
		fresh, err := s.replay.MarkNonce(ctx, token, req.Nonce, s.cfg.ReplayTTL)
		if err != nil {
			return nil, err
		}
		if !fresh {
			s.recordViolation(ctx, settings, securitydomain.ViolationReplay, req,
				fmt.Sprintf("nonce %s already seen", req.Nonce))
			return nil, securitydomain.ErrReplayDetected
		}
	}

	allowed, err := s.limiter.Allow(ctx, token+":"+req.ClientIP, s.cfg.RateLimitMax, s.cfg.RateLimitWindow)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.recordViolation(ctx, settings, securitydomain.ViolationRateLimited, req,
			fmt.Sprintf("more than %d requests in %s", s.cfg.RateLimitMax, s.cfg.RateLimitWindow))
		return nil, securitydomain.ErrRateLimited
	}

	return &securitydomain.ValidateResult{
		StreamerID: settings.StreamerID,
		Settings:   *settings,
	}, nil
}

func (s *Service) EnsureSettings(ctx context.Context, rawID string) (*securitydomain.AlertSettings, error) {
	streamerID, err := parseStreamerID(rawID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByStreamerID(ctx, s.db, streamerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	token, err := mintToken()
	if err != nil {
		return nil, err
	}
	secret, err := mintToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	settings := &securitydomain.AlertSettings{
		ID:              s.genID.Generate(),
		StreamerID:      streamerID,
		Token:           token,
		SignatureSecret: secret,
		AllowedIPs:      datatypes.JSON([]byte(`[]`)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, s.db, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Service) Regenerate(ctx context.Context, rawID string) (*securitydomain.TokenResponse, error) {
	settings, err := s.mustFindByStreamerID(ctx, rawID)
	if err != nil {
		return nil, err
	}

	token, err := mintToken()
	if err != nil {
		return nil, err
	}
	secret, err := mintToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	settings.Token = token
	settings.SignatureSecret = secret
	settings.Revoked = false
	settings.RevokedReason = ""
	settings.RevokedAt = nil
	settings.LastAuditAt = &now
	settings.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, settings); err != nil {
		return nil, err
	}

	s.log.Info("alert token regenerated", zap.String("streamer_id", settings.StreamerID.String()))
	return &securitydomain.TokenResponse{Token: token, SignatureSecret: secret}, nil
}

func (s *Service) Revoke(ctx context.Context, rawID, reason string) error {
	settings, err := s.mustFindByStreamerID(ctx, rawID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	settings.Revoked = true
	settings.RevokedReason = strings.TrimSpace(reason)
	settings.RevokedAt = &now
	settings.LastAuditAt = &now
	settings.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, settings); err != nil {
		return err
	}

	s.log.Info("alert token revoked",
		zap.String("streamer_id", settings.StreamerID.String()),
		zap.String("reason", settings.RevokedReason),
	)
	return nil
}

func (s *Service) UpdateSettings(ctx context.Context, req securitydomain.UpdateSettingsRequest) (*securitydomain.AlertSettings, error) {
	settings, err := s.mustFindByStreamerID(ctx, req.StreamerID)
	if err != nil {
		return nil, err
	}

	allowedIPs, err := json.Marshal(normalizeStringList(req.AllowedIPs))
	if err != nil {
		return nil, err
	}

	media, err := s.encodeMedia(req.Media)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	settings.AllowedIPs = datatypes.JSON(allowedIPs)
	settings.MaxConnections = req.MaxConnections
	settings.RequireIPValidation = req.RequireIPValidation
	settings.RequireSignature = req.RequireSignature
	settings.TokenExpiresAt = req.TokenExpiresAt
	settings.Media = media
	settings.LastAuditAt = &now
	settings.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Service) GetByStreamerID(ctx context.Context, rawID string) (*securitydomain.AlertSettings, error) {
	return s.mustFindByStreamerID(ctx, rawID)
}

func (s *Service) ListViolations(ctx context.Context, rawID string, limit int) ([]securitydomain.SecurityViolation, error) {
	streamerID, err := parseStreamerID(rawID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListViolations(ctx, s.db, streamerID, limit)
}

func (s *Service) PurgeViolations(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		maxAge = s.cfg.ViolationMaxAge
	}
	cutoff := s.clock.Now().Add(-maxAge)
	removed, err := s.repo.DeleteViolationsBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("purged security violations",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

// encodeMedia serializes embedded media overrides. Past the soft limit,
// oversized entries (above the per-entry threshold) are dropped largest
// first; small entries are never sacrificed. When reduction runs out of
// droppable entries the hard ceiling decides: a document still over it
// is refused outright.
func (s *Service) encodeMedia(media map[string]string) (datatypes.JSON, error) {
	if len(media) == 0 {
		return datatypes.JSON([]byte(`{}`)), nil
	}

	kept := make(map[string]string, len(media))
	for k, v := range media {
		kept[k] = v
	}

	for {
		encoded, err := json.Marshal(kept)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= s.cfg.SettingsSoftByte {
			return datatypes.JSON(encoded), nil
		}

		largestKey := ""
		largestLen := -1
		for k, v := range kept {
			if len(v) > largestLen {
				largestKey = k
				largestLen = len(v)
			}
		}
		if largestLen <= s.cfg.SettingsEntryByte {
			// Nothing oversized left to shed.
			if len(encoded) > s.cfg.SettingsHardByte {
				return nil, securitydomain.ErrSettingsTooLarge
			}
			s.log.Warn("settings document over soft limit",
				zap.Int("bytes", len(encoded)),
			)
			return datatypes.JSON(encoded), nil
		}

		s.log.Warn("dropping oversized media override",
			zap.String("key", largestKey),
			zap.Int("bytes", largestLen),
		)
		delete(kept, largestKey)
	}
}

func (s *Service) mustFindByStreamerID(ctx context.Context, rawID string) (*securitydomain.AlertSettings, error) {
	streamerID, err := parseStreamerID(rawID)
	if err != nil {
		return nil, err
	}
	settings, err := s.repo.FindByStreamerID(ctx, s.db, streamerID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, securitydomain.ErrSettingsNotFound
	}
	return settings, nil
}

// recordViolation appends to the token's audit trail and bumps its
// last-audit timestamp. Best-effort: a write failure must not mask the
// rejection itself.
func (s *Service) recordViolation(ctx context.Context, settings *securitydomain.AlertSettings, vtype string, req securitydomain.ValidateRequest, detail string) {
	now := s.clock.Now()
	violation := &securitydomain.SecurityViolation{
		ID:         s.genID.Generate(),
		SettingsID: settings.ID,
		StreamerID: settings.StreamerID,
		Type:       vtype,
		IP:         req.ClientIP,
		UserAgent:  req.UserAgent,
		Detail:     detail,
		CreatedAt:  now,
	}
	if err := s.repo.AppendViolation(ctx, s.db, violation); err != nil {
		s.log.Error("append security violation", zap.Error(err))
	}
	if err := s.repo.TouchAudit(ctx, s.db, settings.ID, now); err != nil {
		s.log.Error("touch settings audit", zap.Error(err))
	}

	s.countViolation(vtype)
	s.log.Warn("alert token rejected",
		zap.String("streamer_id", settings.StreamerID.String()),
		zap.String("violation", vtype),
		zap.String("ip", req.ClientIP),
		zap.String("detail", detail),
	)
}

func (s *Service) countViolation(vtype string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SecurityViolations.WithLabelValues(vtype).Inc()
}

func parseStreamerID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, securitydomain.ErrInvalidStreamerID
	}
	return id, nil
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func normalizeStringList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}
