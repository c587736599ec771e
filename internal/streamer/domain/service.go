package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Streamer, error)
	UpdateBankCredentials(ctx context.Context, req UpdateBankCredentialsRequest) error
	GetByID(ctx context.Context, id string) (*Streamer, error)
	ListWithBankToken(ctx context.Context) ([]Streamer, error)
}

type CreateRequest struct {
	DisplayName string `json:"display_name"`
}

type UpdateBankCredentialsRequest struct {
	StreamerID string `json:"streamer_id"`
	BankCode   string `json:"bank_code"`
	BankToken  string `json:"bank_token"`
	BankCookie string `json:"bank_cookie"`
}

var (
	ErrInvalidStreamerID  = errors.New("invalid_streamer_id")
	ErrInvalidDisplayName = errors.New("invalid_display_name")
	ErrNotFound           = errors.New("streamer_not_found")
)
