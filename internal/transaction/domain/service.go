package domain

import (
	"context"
	"errors"
)

// Service computes donation totals over the stored ledger. Every call
// recomputes from source rows; nothing is cached.
type Service interface {
	Totals(ctx context.Context, streamerID string) (*DonationTotals, error)
	// Broadcast recomputes totals and pushes them to the streamer's
	// bank-total widget room.
	Broadcast(ctx context.Context, streamerID string) error
	ListRecent(ctx context.Context, streamerID string, limit int) ([]BankTransaction, error)
}

// TotalPublisher delivers a recomputed totals payload to connected
// widgets. Satisfied by the realtime hub.
type TotalPublisher interface {
	BroadcastBankTotal(streamerID string, totals *DonationTotals)
}

var (
	ErrInvalidStreamerID = errors.New("invalid_streamer_id")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidReference  = errors.New("invalid_reference")
)
