package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, streamer *Streamer) error
	Update(ctx context.Context, db *gorm.DB, streamer *Streamer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Streamer, error)
	ListWithBankToken(ctx context.Context, db *gorm.DB) ([]Streamer, error)
}
