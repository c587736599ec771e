package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tipcast/tipcast/internal/clock"
	"github.com/tipcast/tipcast/internal/config"
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
	Clock     clock.Clock
	Repo      txdomain.Repository
	Publisher txdomain.TotalPublisher `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	currency  string
	clock     clock.Clock
	repo      txdomain.Repository
	publisher txdomain.TotalPublisher
}

func New(p Params) txdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("transaction.service"),
		currency:  p.Cfg.Bank.Currency,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
	}
}

func (s *Service) Totals(ctx context.Context, rawID string) (*txdomain.DonationTotals, error) {
	streamerID, err := parseStreamerID(rawID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -mondayOffset(dayStart.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	allTime, err := s.repo.SumAll(ctx, s.db, streamerID)
	if err != nil {
		return nil, err
	}
	today, err := s.repo.SumSince(ctx, s.db, streamerID, dayStart)
	if err != nil {
		return nil, err
	}
	week, err := s.repo.SumSince(ctx, s.db, streamerID, weekStart)
	if err != nil {
		return nil, err
	}
	month, err := s.repo.SumSince(ctx, s.db, streamerID, monthStart)
	if err != nil {
		return nil, err
	}

	var average int64
	if allTime.Count > 0 {
		average = allTime.Sum / allTime.Count
	}

	return &txdomain.DonationTotals{
		StreamerID:    streamerID.String(),
		Currency:      s.currency,
		AllTime:       allTime,
		Today:         today,
		ThisWeek:      week,
		ThisMonth:     month,
		AverageAmount: average,
		GeneratedAt:   now,
	}, nil
}

func (s *Service) Broadcast(ctx context.Context, streamerID string) error {
	totals, err := s.Totals(ctx, streamerID)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return nil
	}
	s.publisher.BroadcastBankTotal(totals.StreamerID, totals)
	return nil
}

func (s *Service) ListRecent(ctx context.Context, rawID string, limit int) ([]txdomain.BankTransaction, error) {
	streamerID, err := parseStreamerID(rawID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListRecent(ctx, s.db, streamerID, limit)
}

func parseStreamerID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, txdomain.ErrInvalidStreamerID
	}
	return id, nil
}

// mondayOffset returns days since the start of the ISO week.
func mondayOffset(day time.Weekday) int {
	if day == time.Sunday {
		return 6
	}
	return int(day) - 1
}
