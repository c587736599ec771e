package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() streamerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *streamerdomain.Streamer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO streamers (id, display_name, bank_code, bank_token, bank_cookie, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.DisplayName,
		s.BankCode,
		s.BankToken,
		s.BankCookie,
		s.Active,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, s *streamerdomain.Streamer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE streamers
		 SET display_name = ?, bank_code = ?, bank_token = ?, bank_cookie = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		s.DisplayName,
		s.BankCode,
		s.BankToken,
		s.BankCookie,
		s.Active,
		s.UpdatedAt,
		s.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*streamerdomain.Streamer, error) {
	var streamer streamerdomain.Streamer
	err := db.WithContext(ctx).Raw(
		`SELECT id, display_name, bank_code, bank_token, bank_cookie, active, created_at, updated_at
		 FROM streamers WHERE id = ?`,
		id,
	).Scan(&streamer).Error
	if err != nil {
		return nil, err
	}
	if streamer.ID == 0 {
		return nil, nil
	}
	return &streamer, nil
}

func (r *repo) ListWithBankToken(ctx context.Context, db *gorm.DB) ([]streamerdomain.Streamer, error) {
	var streamers []streamerdomain.Streamer
	err := db.WithContext(ctx).Raw(
		`SELECT id, display_name, bank_code, bank_token, bank_cookie, active, created_at, updated_at
		 FROM streamers WHERE active = ? AND bank_token <> '' ORDER BY created_at ASC`,
		true,
	).Scan(&streamers).Error
	if err != nil {
		return nil, err
	}
	return streamers, nil
}
