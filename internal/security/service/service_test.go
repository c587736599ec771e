package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipcast/tipcast/internal/clock"
	"github.com/tipcast/tipcast/internal/config"
	"github.com/tipcast/tipcast/internal/security/cache"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	securityrepo "github.com/tipcast/tipcast/internal/security/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type gateFixture struct {
	svc   *Service
	db    *gorm.DB
	clock *clock.FakeClock
	repo  securitydomain.Repository
}

func newGateFixture(t *testing.T, cfg config.SecurityConfig) *gateFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&securitydomain.AlertSettings{},
		&securitydomain.SecurityViolation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := securityrepo.Provide()

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Cfg:     config.Config{Security: cfg},
		GenID:   node,
		Clock:   clk,
		Repo:    repo,
		Replay:  cache.NewMemoryReplayCache(clk),
		Limiter: cache.NewMemorySlidingWindow(clk),
	}).(*Service)

	return &gateFixture{svc: svc, db: db, clock: clk, repo: repo}
}

func defaultGateConfig() config.SecurityConfig {
	return config.SecurityConfig{
		SignatureWindow:   5 * time.Minute,
		ReplayTTL:         time.Hour,
		RateLimitWindow:   time.Minute,
		RateLimitMax:      10,
		ViolationMaxAge:   30 * 24 * time.Hour,
		SettingsSoftByte:  1 << 20,
		SettingsHardByte:  4 << 20,
		SettingsEntryByte: 256 << 10,
	}
}

func (f *gateFixture) mustSettings(t *testing.T, streamerID string) *securitydomain.AlertSettings {
	t.Helper()
	settings, err := f.svc.EnsureSettings(context.Background(), streamerID)
	require.NoError(t, err)
	return settings
}

func (f *gateFixture) violations(t *testing.T, streamerID string) []securitydomain.SecurityViolation {
	t.Helper()
	list, err := f.svc.ListViolations(context.Background(), streamerID, 100)
	require.NoError(t, err)
	return list
}

func TestEnsureSettingsMintsToken(t *testing.T) {
	f := newGateFixture(t, defaultGateConfig())
	streamerID := "9007199254740993"

	settings := f.mustSettings(t, streamerID)
	assert.True(t, validTokenFormat(settings.Token), "token should be 64 hex chars")
	assert.True(t, validTokenFormat(settings.SignatureSecret))
	assert.NotEqual(t, settings.Token, settings.SignatureSecret)

	again := f.mustSettings(t, streamerID)
	assert.Equal(t, settings.Token, again.Token, "second call must not rotate the token")
}

func TestValidateHappyPath(t *testing.T) {
	f := newGateFixture(t, defaultGateConfig())
	settings := f.mustSettings(t, "9007199254740993")

	res, err := f.svc.Validate(context.Background(), securitydomain.ValidateRequest{
		Token:    settings.Token,
		ClientIP: "203.0.113.9",
	})
	require.NoError(t, err)
	assert.Equal(t, settings.StreamerID, res.StreamerID)
	assert.Empty(t, f.violations(t, settings.StreamerID.String()))
}

func TestValidateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed token", func(t *testing.T) {
		f := newGateFixture(t, defaultGateConfig())
		_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: "not-a-token"})
		assert.ErrorIs(t, err, securitydomain.ErrInvalidTokenFormat)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newGateFixture(t, defaultGateConfig())
		_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{
			Token: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		})
		assert.ErrorIs(t, err, securitydomain.ErrUnknownToken)
	})

	t.Run("revoked token", func(t *testing.T) {
		f := newGateFixture(t, defaultGateConfig())
		settings := f.mustSettings(t, "9007199254740993")
		require.NoError(t, f.svc.Revoke(ctx, settings.StreamerID.String(), "compromised"))

		_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: settings.Token})
		assert.ErrorIs(t, err, securitydomain.ErrTokenRevoked)

		list := f.violations(t, settings.StreamerID.String())
		require.Len(t, list, 1)
		assert.Equal(t, securitydomain.ViolationRevoked, list[0].Type)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newGateFixture(t, defaultGateConfig())
		settings := f.mustSettings(t, "9007199254740993")

		expires := f.clock.Now().Add(time.Hour)
		_, err := f.svc.UpdateSettings(ctx, securitydomain.UpdateSettingsRequest{
			StreamerID:     settings.StreamerID.String(),
			TokenExpiresAt: &expires,
		})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		_, err = f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: settings.Token})
		assert.ErrorIs(t, err, securitydomain.ErrTokenExpired)
	})

	t.Run("replayed nonce", func(t *testing.T) {
		f := newGateFixture(t, defaultGateConfig())
		settings := f.mustSettings(t, "9007199254740993")

		first, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{
			Token: settings.Token,
			Nonce: "nonce-1",
		})
		require.NoError(t, err)
		require.NotNil(t, first)

		_, err = f.svc.Validate(ctx, securitydomain.ValidateRequest{
			Token: settings.Token,
			Nonce: "nonce-1",
		})
		assert.ErrorIs(t, err, securitydomain.ErrReplayDetected)

		list := f.violations(t, settings.StreamerID.String())
		require.Len(t, list, 1)
		assert.Equal(t, securitydomain.ViolationReplay, list[0].Type)
	})
}

func TestValidateIPAllowList(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		allowed   []string
		clientIP  string
		wantAllow bool
	}{
		{"inside cidr", []string{"192.168.1.0/24"}, "192.168.1.5", true},
		{"outside cidr", []string{"192.168.2.0/24"}, "192.168.1.5", false},
		{"exact match", []string{"203.0.113.9"}, "203.0.113.9", true},
		{"no match", []string{"203.0.113.9"}, "203.0.113.10", false},
		{"second entry matches", []string{"10.0.0.0/8", "192.168.1.0/24"}, "192.168.1.200", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGateFixture(t, defaultGateConfig())
			settings := f.mustSettings(t, "9007199254740993")

			_, err := f.svc.UpdateSettings(ctx, securitydomain.UpdateSettingsRequest{
				StreamerID:          settings.StreamerID.String(),
				AllowedIPs:          tc.allowed,
				RequireIPValidation: true,
			})
			require.NoError(t, err)

			_, err = f.svc.Validate(ctx, securitydomain.ValidateRequest{
				Token:    settings.Token,
				ClientIP: tc.clientIP,
			})
			if tc.wantAllow {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, securitydomain.ErrIPNotAllowed)
			}
		})
	}
}

func TestValidateSignature(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t, defaultGateConfig())
	settings := f.mustSettings(t, "9007199254740993")

	_, err := f.svc.UpdateSettings(ctx, securitydomain.UpdateSettingsRequest{
		StreamerID:       settings.StreamerID.String(),
		RequireSignature: true,
	})
	require.NoError(t, err)

	ts := f.clock.Now().UnixMilli()

	t.Run("valid signature accepted", func(t *testing.T) {
		_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{
			Token:     settings.Token,
			Nonce:     "sig-nonce-1",
			Timestamp: ts,
			Signature: computeSignature(settings.SignatureSecret, ts, "sig-nonce-1"),
		})
		assert.NoError(t, err)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{
			Token:     settings.Token,
			Nonce:     "sig-nonce-2",
			Timestamp: ts,
			Signature: computeSignature("0000", ts, "sig-nonce-2"),
		})
		assert.ErrorIs(t, err, securitydomain.ErrInvalidSignature)
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		stale := ts - (10 * time.Minute).Milliseconds()
		_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{
			Token:     settings.Token,
			Nonce:     "sig-nonce-3",
			Timestamp: stale,
			Signature: computeSignature(settings.SignatureSecret, stale, "sig-nonce-3"),
		})
		assert.ErrorIs(t, err, securitydomain.ErrInvalidSignature)
	})
}

func TestValidateRateLimit(t *testing.T) {
	ctx := context.Background()
	cfg := defaultGateConfig()
	cfg.RateLimitMax = 3
	f := newGateFixture(t, cfg)
	settings := f.mustSettings(t, "9007199254740993")

	for i := 0; i < cfg.RateLimitMax; i++ {
		_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{
			Token:    settings.Token,
			ClientIP: "203.0.113.9",
		})
		require.NoError(t, err, "request %d should pass", i+1)
	}

	_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{
		Token:    settings.Token,
		ClientIP: "203.0.113.9",
	})
	assert.ErrorIs(t, err, securitydomain.ErrRateLimited)

	// Another client IP keeps its own budget.
	_, err = f.svc.Validate(ctx, securitydomain.ValidateRequest{
		Token:    settings.Token,
		ClientIP: "203.0.113.10",
	})
	assert.NoError(t, err)

	// The window slides: after it passes, the first IP recovers.
	f.clock.Advance(cfg.RateLimitWindow + time.Second)
	_, err = f.svc.Validate(ctx, securitydomain.ValidateRequest{
		Token:    settings.Token,
		ClientIP: "203.0.113.9",
	})
	assert.NoError(t, err)
}

func TestRegenerateRotatesAndClearsRevocation(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t, defaultGateConfig())
	settings := f.mustSettings(t, "9007199254740993")
	oldToken := settings.Token

	require.NoError(t, f.svc.Revoke(ctx, settings.StreamerID.String(), "rotation drill"))

	resp, err := f.svc.Regenerate(ctx, settings.StreamerID.String())
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, resp.Token)
	assert.True(t, validTokenFormat(resp.Token))

	_, err = f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: oldToken})
	assert.ErrorIs(t, err, securitydomain.ErrUnknownToken, "old token must stop working")

	res, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: resp.Token})
	require.NoError(t, err)
	assert.False(t, res.Settings.Revoked)
}

func TestUpdateSettingsMediaLimits(t *testing.T) {
	ctx := context.Background()
	cfg := defaultGateConfig()
	cfg.SettingsSoftByte = 256
	cfg.SettingsHardByte = 1024
	cfg.SettingsEntryByte = 128
	f := newGateFixture(t, cfg)
	settings := f.mustSettings(t, "9007199254740993")

	t.Run("oversized entries dropped past soft limit", func(t *testing.T) {
		big := make([]byte, 300)
		for i := range big {
			big[i] = 'x'
		}
		updated, err := f.svc.UpdateSettings(ctx, securitydomain.UpdateSettingsRequest{
			StreamerID: settings.StreamerID.String(),
			Media: map[string]string{
				"sound": "ding.mp3",
				"image": string(big),
			},
		})
		require.NoError(t, err)

		var media map[string]string
		require.NoError(t, json.Unmarshal(updated.Media, &media))
		assert.Contains(t, media, "sound")
		assert.NotContains(t, media, "image", "oversized entry should be dropped")
	})

	t.Run("small entries between soft and hard limit kept", func(t *testing.T) {
		media := make(map[string]string)
		for i := 0; i < 30; i++ {
			media[fmt.Sprintf("k%03d", i)] = "0123456789"
		}
		updated, err := f.svc.UpdateSettings(ctx, securitydomain.UpdateSettingsRequest{
			StreamerID: settings.StreamerID.String(),
			Media:      media,
		})
		require.NoError(t, err)

		var kept map[string]string
		require.NoError(t, json.Unmarshal(updated.Media, &kept))
		assert.Len(t, kept, 30, "small entries must never be sacrificed")
	})

	t.Run("many small entries past hard limit refused", func(t *testing.T) {
		media := make(map[string]string)
		for i := 0; i < 200; i++ {
			media[fmt.Sprintf("k%03d", i)] = "0123456789"
		}
		_, err := f.svc.UpdateSettings(ctx, securitydomain.UpdateSettingsRequest{
			StreamerID: settings.StreamerID.String(),
			Media:      media,
		})
		assert.ErrorIs(t, err, securitydomain.ErrSettingsTooLarge)
	})
}

func TestPurgeViolations(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t, defaultGateConfig())
	settings := f.mustSettings(t, "9007199254740993")

	// One rejection now, one much later.
	_, _ = f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: settings.Token, Nonce: "n1"})
	_, err := f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: settings.Token, Nonce: "n1"})
	require.ErrorIs(t, err, securitydomain.ErrReplayDetected)

	f.clock.Set(f.clock.Now().AddDate(0, 0, 40))
	_, _ = f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: settings.Token, Nonce: "n2"})
	_, err = f.svc.Validate(ctx, securitydomain.ValidateRequest{Token: settings.Token, Nonce: "n2"})
	require.ErrorIs(t, err, securitydomain.ErrReplayDetected)

	removed, err := f.svc.PurgeViolations(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed, "only the violation older than the retention window goes")

	list := f.violations(t, settings.StreamerID.String())
	assert.Len(t, list, 1)
}
