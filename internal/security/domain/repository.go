package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, settings *AlertSettings) error
	Update(ctx context.Context, db *gorm.DB, settings *AlertSettings) error
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*AlertSettings, error)
	FindByStreamerID(ctx context.Context, db *gorm.DB, streamerID snowflake.ID) (*AlertSettings, error)
	TouchAudit(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	AppendViolation(ctx context.Context, db *gorm.DB, violation *SecurityViolation) error
	ListViolations(ctx context.Context, db *gorm.DB, streamerID snowflake.ID, limit int) ([]SecurityViolation, error)
	DeleteViolationsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}
