package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tipcast/tipcast/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const operationListTransactions = "lsgd"

// Client fetches a streamer's recent transactions from the bank's
// private statement API.
type Client struct {
	endpoint   string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	log        *zap.Logger
}

type ClientParams struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func NewClient(p ClientParams) *Client {
	return &Client{
		endpoint:   p.Cfg.Bank.Endpoint,
		maxRetries: p.Cfg.Bank.MaxRetries,
		retryDelay: p.Cfg.Bank.RetryDelay,
		httpClient: &http.Client{Timeout: p.Cfg.Bank.Timeout},
		log:        p.Log.Named("bank.client"),
	}
}

// FetchTransactions calls the bank statement endpoint. Transport-level
// failures (timeout, connection refused) are retried up to the
// configured limit with a fixed delay; a response that reached the
// server, 2xx or not, is never retried.
func (c *Client) FetchTransactions(ctx context.Context, creds Credentials) ([]RawTransaction, error) {
	if strings.TrimSpace(c.endpoint) == "" {
		return nil, ErrMissingEndpoint
	}
	if strings.TrimSpace(creds.Token) == "" {
		return nil, ErrMissingCredentials
	}

	var lastErr error
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		transactions, retryable, err := c.fetchOnce(ctx, creds)
		if err == nil {
			return transactions, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn("bank fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, creds Credentials) ([]RawTransaction, bool, error) {
	form := url.Values{}
	form.Set("Loai_api", operationListTransactions)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Code", creds.Code)
	req.Header.Set("Token", creds.Token)
	if creds.Cookie != "" {
		req.Header.Set("Cookie", creds.Cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// no response received: transient, worth another attempt
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, &HTTPError{StatusCode: resp.StatusCode}
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode bank response: %w", err)
	}
	return body.TransactionHistoryList, false, nil
}

// ParseTransactionDate reads the bank's timestamp format, falling back
// to the supplied time when the field is absent or malformed.
func ParseTransactionDate(raw string, fallback time.Time) time.Time {
	parsed, err := time.Parse(transactionDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return parsed.UTC()
}
