package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BankTransaction is one accepted credit line from a streamer's bank
// statement. Rows are append-only: created once by the sync orchestrator,
// never mutated, never deleted.
type BankTransaction struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	StreamerID   snowflake.ID   `json:"streamer_id" gorm:"column:streamer_id;not null;uniqueIndex:ux_bank_transactions_streamer_ref,priority:1"`
	Reference    string         `json:"reference" gorm:"type:text;not null;uniqueIndex:ux_bank_transactions_streamer_ref,priority:2"`
	Description  string         `json:"description" gorm:"type:text;not null"`
	Amount       int64          `json:"amount" gorm:"not null"`
	Currency     string         `json:"currency" gorm:"type:text;not null"`
	TransactedAt time.Time      `json:"transacted_at" gorm:"not null"`
	RawPayload   datatypes.JSON `json:"-" gorm:"column:raw_payload"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BankTransaction) TableName() string { return "bank_transactions" }

// TotalsWindow is an aggregate over one time range.
type TotalsWindow struct {
	Sum    int64      `json:"sum"`
	Count  int64      `json:"count"`
	LastAt *time.Time `json:"last_at,omitempty"`
}

// DonationTotals is the payload behind the "total donations" widget.
type DonationTotals struct {
	StreamerID    string       `json:"streamer_id"`
	Currency      string       `json:"currency"`
	AllTime       TotalsWindow `json:"all_time"`
	Today         TotalsWindow `json:"today"`
	ThisWeek      TotalsWindow `json:"this_week"`
	ThisMonth     TotalsWindow `json:"this_month"`
	AverageAmount int64        `json:"average_amount"`
	GeneratedAt   time.Time    `json:"generated_at"`
}
