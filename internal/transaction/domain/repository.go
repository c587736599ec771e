package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIgnoreDuplicate inserts tx unless a row with the same
	// (streamer_id, reference) already exists. Reports whether a row
	// was created. Dedupe rides the unique index, not a prior read.
	InsertIgnoreDuplicate(ctx context.Context, db *gorm.DB, tx *BankTransaction) (bool, error)
	SumAll(ctx context.Context, db *gorm.DB, streamerID snowflake.ID) (TotalsWindow, error)
	SumSince(ctx context.Context, db *gorm.DB, streamerID snowflake.ID, since time.Time) (TotalsWindow, error)
	ListRecent(ctx context.Context, db *gorm.DB, streamerID snowflake.ID, limit int) ([]BankTransaction, error)
}
