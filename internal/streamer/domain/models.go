package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Streamer holds a channel owner and their bank polling credentials.
// BankToken empty means bank sync is not configured for this streamer.
type Streamer struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	DisplayName string       `json:"display_name" gorm:"type:text;not null"`
	BankCode    string       `json:"-" gorm:"column:bank_code;type:text;not null;default:''"`
	BankToken   string       `json:"-" gorm:"column:bank_token;type:text;not null;default:''"`
	BankCookie  string       `json:"-" gorm:"column:bank_cookie;type:text;not null;default:''"`
	Active      bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Streamer) TableName() string { return "streamers" }
