package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() txdomain.Repository {
	return &repo{}
}

func (r *repo) InsertIgnoreDuplicate(ctx context.Context, db *gorm.DB, tx *txdomain.BankTransaction) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO bank_transactions (id, streamer_id, reference, description, amount, currency, transacted_at, raw_payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (streamer_id, reference) DO NOTHING`,
		tx.ID,
		tx.StreamerID,
		tx.Reference,
		tx.Description,
		tx.Amount,
		tx.Currency,
		tx.TransactedAt,
		tx.RawPayload,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type totalsRow struct {
	Sum   int64
	Count int64
}

// latestRow takes the newest transacted_at through a time.Time field so the
// driver converts it like a model scan. Aggregating with MAX() instead hands
// back a raw string on some drivers.
type latestRow struct {
	TransactedAt time.Time
}

func (r *repo) SumAll(ctx context.Context, db *gorm.DB, streamerID snowflake.ID) (txdomain.TotalsWindow, error) {
	var row totalsRow
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS sum, COUNT(*) AS count
		 FROM bank_transactions WHERE streamer_id = ?`,
		streamerID,
	).Scan(&row).Error
	if err != nil {
		return txdomain.TotalsWindow{}, err
	}
	window := txdomain.TotalsWindow{Sum: row.Sum, Count: row.Count}
	if row.Count > 0 {
		var latest latestRow
		err = db.WithContext(ctx).Raw(
			`SELECT transacted_at FROM bank_transactions
			 WHERE streamer_id = ? ORDER BY transacted_at DESC LIMIT 1`,
			streamerID,
		).Scan(&latest).Error
		if err != nil {
			return txdomain.TotalsWindow{}, err
		}
		window.LastAt = &latest.TransactedAt
	}
	return window, nil
}

func (r *repo) SumSince(ctx context.Context, db *gorm.DB, streamerID snowflake.ID, since time.Time) (txdomain.TotalsWindow, error) {
	var row totalsRow
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS sum, COUNT(*) AS count
		 FROM bank_transactions WHERE streamer_id = ? AND transacted_at >= ?`,
		streamerID,
		since,
	).Scan(&row).Error
	if err != nil {
		return txdomain.TotalsWindow{}, err
	}
	window := txdomain.TotalsWindow{Sum: row.Sum, Count: row.Count}
	if row.Count > 0 {
		var latest latestRow
		err = db.WithContext(ctx).Raw(
			`SELECT transacted_at FROM bank_transactions
			 WHERE streamer_id = ? AND transacted_at >= ? ORDER BY transacted_at DESC LIMIT 1`,
			streamerID,
			since,
		).Scan(&latest).Error
		if err != nil {
			return txdomain.TotalsWindow{}, err
		}
		window.LastAt = &latest.TransactedAt
	}
	return window, nil
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, streamerID snowflake.ID, limit int) ([]txdomain.BankTransaction, error) {
	var rows []txdomain.BankTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, streamer_id, reference, description, amount, currency, transacted_at, created_at, updated_at
		 FROM bank_transactions WHERE streamer_id = ? ORDER BY transacted_at DESC LIMIT ?`,
		streamerID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
