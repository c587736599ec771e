package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipcast/tipcast/internal/alertqueue"
	"github.com/tipcast/tipcast/internal/bank"
	"github.com/tipcast/tipcast/internal/clock"
	"github.com/tipcast/tipcast/internal/config"
	"github.com/tipcast/tipcast/internal/security/cache"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	securityrepo "github.com/tipcast/tipcast/internal/security/repository"
	securityservice "github.com/tipcast/tipcast/internal/security/service"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
	streamerrepo "github.com/tipcast/tipcast/internal/streamer/repository"
	streamerservice "github.com/tipcast/tipcast/internal/streamer/service"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	txrepo "github.com/tipcast/tipcast/internal/transaction/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturedAlert struct {
	alert alertqueue.Alert
}

type recordingDispatcher struct {
	alerts chan capturedAlert
}

func (d *recordingDispatcher) DeliverAlert(alert alertqueue.Alert) {
	d.alerts <- capturedAlert{alert: alert}
}

func (d *recordingDispatcher) RefreshTotals(string) {}

type syncFixture struct {
	syncer     *Syncer
	db         *gorm.DB
	dispatcher *recordingDispatcher
	streamer   *streamerdomain.Streamer
	txRepo     txdomain.Repository
}

func newSyncFixture(t *testing.T, bankHandler http.HandlerFunc) *syncFixture {
	t.Helper()

	srv := httptest.NewServer(bankHandler)
	t.Cleanup(srv.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&streamerdomain.Streamer{},
		&txdomain.BankTransaction{},
		&securitydomain.AlertSettings{},
		&securitydomain.SecurityViolation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		Bank: config.BankConfig{
			Endpoint:   srv.URL,
			Timeout:    2 * time.Second,
			MaxRetries: 1,
			RetryDelay: 10 * time.Millisecond,
			Currency:   "VND",
		},
		Alert: config.AlertConfig{Delay: 10 * time.Millisecond},
		Security: config.SecurityConfig{
			SignatureWindow: 5 * time.Minute,
			ReplayTTL:       time.Hour,
			RateLimitWindow: time.Minute,
			RateLimitMax:    100,
			ViolationMaxAge: 30 * 24 * time.Hour,
		},
	}
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	streamers := streamerservice.New(streamerservice.Params{
		DB: db, Log: log, GenID: node, Repo: streamerrepo.Provide(),
	})
	st, err := streamers.Create(context.Background(), streamerdomain.CreateRequest{DisplayName: "streamer one"})
	require.NoError(t, err)
	require.NoError(t, streamers.UpdateBankCredentials(context.Background(), streamerdomain.UpdateBankCredentialsRequest{
		StreamerID: st.ID.String(),
		BankCode:   "0123456789",
		BankToken:  "bank-token",
	}))

	dispatcher := &recordingDispatcher{alerts: make(chan capturedAlert, 16)}
	queue := alertqueue.New(alertqueue.Params{Cfg: cfg, Log: log, Dispatcher: dispatcher})

	gate := securityservice.New(securityservice.Params{
		DB:      db,
		Log:     log,
		Cfg:     cfg,
		GenID:   node,
		Clock:   clk,
		Repo:    securityrepo.Provide(),
		Replay:  cache.NewMemoryReplayCache(clk),
		Limiter: cache.NewMemorySlidingWindow(clk),
	})

	repo := txrepo.Provide()
	s := New(Params{
		DB:        db,
		Log:       log,
		Cfg:       cfg,
		GenID:     node,
		Clock:     clk,
		Streamers: streamers,
		Bank: bank.NewClient(bank.ClientParams{
			Cfg: cfg,
			Log: log,
		}),
		TxRepo:   repo,
		Queue:    queue,
		Security: gate,
	})

	return &syncFixture{syncer: s, db: db, dispatcher: dispatcher, streamer: st, txRepo: repo}
}

func bankFeed(lines []bank.RawTransaction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transactionHistoryList": lines,
		})
	}
}

func (f *syncFixture) waitAlert(t *testing.T) alertqueue.Alert {
	t.Helper()
	select {
	case got := <-f.dispatcher.alerts:
		return got.alert
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert delivery")
		return alertqueue.Alert{}
	}
}

func (f *syncFixture) requireNoAlert(t *testing.T) {
	t.Helper()
	select {
	case got := <-f.dispatcher.alerts:
		t.Fatalf("unexpected alert for reference %s", got.alert.Reference)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRunCycleIngestsCreditsOnce(t *testing.T) {
	f := newSyncFixture(t, bankFeed([]bank.RawTransaction{
		{
			Reference:       "FT24153001",
			Description:     "MBVCB.449234.123456.NGUYEN VAN A chuyen tien cam on stream.CT tu 012 toi 034",
			CreditAmount:    "1.000.000,00",
			Direction:       "+",
			TransactionDate: "01/06/2024 11:58:03",
		},
		{
			// outbound transfer, never a donation
			Reference:   "FT24153002",
			Description: "rut tien ATM",
			DebitAmount: "200.000,00",
			Direction:   "-",
		},
		{
			// credit with no parseable amount
			Reference:    "FT24153003",
			Description:  "dieu chinh",
			CreditAmount: "",
			Direction:    "+",
		},
	}))

	f.syncer.RunCycle(context.Background())

	alert := f.waitAlert(t)
	assert.Equal(t, f.streamer.ID.String(), alert.StreamerID)
	assert.Equal(t, "Anonymous", alert.DonorName)
	assert.Equal(t, int64(100000000), alert.Amount)
	assert.Equal(t, "VND", alert.Currency)
	assert.Equal(t, "FT24153001", alert.Reference)
	assert.Equal(t, "NGUYEN VAN A chuyen tien", alert.Message)

	rows, err := f.txRepo.ListRecent(context.Background(), f.db, f.streamer.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "FT24153001", rows[0].Reference)
	assert.Equal(t, int64(100000000), rows[0].Amount)
	assert.Equal(t, time.Date(2024, 6, 1, 11, 58, 3, 0, time.UTC), rows[0].TransactedAt.UTC())

	// Re-polling the same statement must not duplicate anything.
	f.syncer.RunCycle(context.Background())
	f.requireNoAlert(t)

	rows, err = f.txRepo.ListRecent(context.Background(), f.db, f.streamer.ID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRunCycleSurvivesBankFailure(t *testing.T) {
	f := newSyncFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	})

	// Must not panic or deliver anything.
	f.syncer.RunCycle(context.Background())
	f.requireNoAlert(t)

	rows, err := f.txRepo.ListRecent(context.Background(), f.db, f.streamer.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRunCycleFollowUpLinesQueueBehindFirst(t *testing.T) {
	f := newSyncFixture(t, bankFeed([]bank.RawTransaction{
		{
			Reference:       "FT24153010",
			Description:     "TRAN B chuyen tien",
			CreditAmount:    "50.000,00",
			Direction:       "+",
			TransactionDate: "01/06/2024 11:50:00",
		},
		{
			Reference:       "FT24153011",
			Description:     "LE C chuyen tien",
			CreditAmount:    "75.000,00",
			Direction:       "+",
			TransactionDate: "01/06/2024 11:55:00",
		},
	}))

	f.syncer.RunCycle(context.Background())

	first := f.waitAlert(t)
	second := f.waitAlert(t)
	assert.Equal(t, "FT24153010", first.Reference)
	assert.Equal(t, "FT24153011", second.Reference)
}
