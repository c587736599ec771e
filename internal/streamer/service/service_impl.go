package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  streamerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  streamerdomain.Repository
	genID *snowflake.Node
}

func New(p Params) streamerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("streamer.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req streamerdomain.CreateRequest) (*streamerdomain.Streamer, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, streamerdomain.ErrInvalidDisplayName
	}

	now := time.Now().UTC()
	streamer := &streamerdomain.Streamer{
		ID:          s.genID.Generate(),
		DisplayName: name,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, streamer); err != nil {
		return nil, err
	}
	return streamer, nil
}

func (s *Service) UpdateBankCredentials(ctx context.Context, req streamerdomain.UpdateBankCredentialsRequest) error {
	id, err := parseStreamerID(req.StreamerID)
	if err != nil {
		return err
	}

	streamer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if streamer == nil {
		return streamerdomain.ErrNotFound
	}

	streamer.BankCode = strings.TrimSpace(req.BankCode)
	streamer.BankToken = strings.TrimSpace(req.BankToken)
	streamer.BankCookie = strings.TrimSpace(req.BankCookie)
	streamer.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, s.db, streamer)
}

func (s *Service) GetByID(ctx context.Context, rawID string) (*streamerdomain.Streamer, error) {
	id, err := parseStreamerID(rawID)
	if err != nil {
		return nil, err
	}
	streamer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if streamer == nil {
		return nil, streamerdomain.ErrNotFound
	}
	return streamer, nil
}

func (s *Service) ListWithBankToken(ctx context.Context) ([]streamerdomain.Streamer, error) {
	return s.repo.ListWithBankToken(ctx, s.db)
}

func parseStreamerID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, streamerdomain.ErrInvalidStreamerID
	}
	return id, nil
}
