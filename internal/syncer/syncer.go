package syncer

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/tipcast/tipcast/internal/alertqueue"
	"github.com/tipcast/tipcast/internal/bank"
	"github.com/tipcast/tipcast/internal/clock"
	"github.com/tipcast/tipcast/internal/config"
	"github.com/tipcast/tipcast/internal/metrics"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	GenID     *snowflake.Node
	Clock     clock.Clock
	Streamers streamerdomain.Service
	Bank      *bank.Client
	TxRepo    txdomain.Repository
	Queue     *alertqueue.Queue
	Security  securitydomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

// Syncer polls every configured streamer's bank feed and turns new
// credits into stored transactions and queued alerts. Cycles are
// idempotent: the unique (streamer, reference) index swallows lines
// the previous cycle already stored.
type Syncer struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       config.Config
	genID     *snowflake.Node
	clock     clock.Clock
	streamers streamerdomain.Service
	bank      *bank.Client
	txRepo    txdomain.Repository
	queue     *alertqueue.Queue
	security  securitydomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) *Syncer {
	return &Syncer{
		db:        p.DB,
		log:       p.Log.Named("syncer"),
		cfg:       p.Cfg,
		genID:     p.GenID,
		clock:     p.Clock,
		streamers: p.Streamers,
		bank:      p.Bank,
		txRepo:    p.TxRepo,
		queue:     p.Queue,
		security:  p.Security,
		metrics:   p.Metrics,
	}
}

// RunCycle syncs all streamers with bank credentials, one goroutine
// each. A streamer failing never blocks the others; load failure aborts
// the whole cycle.
func (s *Syncer) RunCycle(ctx context.Context) {
	streamers, err := s.streamers.ListWithBankToken(ctx)
	if err != nil {
		s.log.Error("load streamers for sync", zap.Error(err))
		s.countFailure("load_streamers")
		return
	}
	if len(streamers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for i := range streamers {
		st := streamers[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.syncStreamer(ctx, st)
		}()
	}
	wg.Wait()

	if s.metrics != nil {
		s.metrics.SyncCycles.Inc()
	}
}

func (s *Syncer) syncStreamer(ctx context.Context, st streamerdomain.Streamer) {
	log := s.log.With(zap.String("streamer_id", st.ID.String()))

	raws, err := s.bank.FetchTransactions(ctx, bank.Credentials{
		Code:   st.BankCode,
		Token:  st.BankToken,
		Cookie: st.BankCookie,
	})
	if err != nil {
		log.Error("fetch bank transactions", zap.Error(err))
		s.countFailure("fetch")
		return
	}

	now := s.clock.Now()
	for _, raw := range raws {
		if !bank.IsCredit(raw) {
			continue
		}
		amount := bank.ParseAmount(raw.CreditAmount)
		if amount <= 0 {
			continue
		}
		reference := strings.TrimSpace(raw.Reference)
		if reference == "" {
			continue
		}

		message, confidence := bank.ExtractTransferMessage(raw.Description)

		payload, err := json.Marshal(raw)
		if err != nil {
			payload = nil
		}
		record := &txdomain.BankTransaction{
			ID:           s.genID.Generate(),
			StreamerID:   st.ID,
			Reference:    reference,
			Description:  raw.Description,
			Amount:       amount,
			Currency:     s.cfg.Bank.Currency,
			TransactedAt: bank.ParseTransactionDate(raw.TransactionDate, now),
			RawPayload:   payload,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		created, err := s.txRepo.InsertIgnoreDuplicate(ctx, s.db, record)
		if err != nil {
			log.Error("store bank transaction",
				zap.String("reference", reference),
				zap.Error(err),
			)
			s.countFailure("store")
			continue
		}
		if !created {
			if s.metrics != nil {
				s.metrics.DuplicatesSkipped.Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.TransactionsIngested.Inc()
		}

		queued := s.queue.Enqueue(alertqueue.Alert{
			StreamerID: st.ID.String(),
			DonorName:  "Anonymous",
			Amount:     amount,
			Currency:   s.cfg.Bank.Currency,
			Message:    message,
			Reference:  reference,
		})
		if queued && s.metrics != nil {
			s.metrics.AlertsEnqueued.Inc()
		}
		log.Info("bank donation ingested",
			zap.String("reference", reference),
			zap.Int64("amount", amount),
			zap.String("message_confidence", string(confidence)),
		)
	}
}

// PurgeViolations drops security audit rows past the retention window.
func (s *Syncer) PurgeViolations(ctx context.Context) {
	if _, err := s.security.PurgeViolations(ctx, 0); err != nil {
		s.log.Error("purge security violations", zap.Error(err))
	}
}

func (s *Syncer) countFailure(reason string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncFailures.WithLabelValues(reason).Inc()
}
