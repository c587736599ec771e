package bank

import (
	"errors"
	"fmt"
)

var (
	ErrMissingEndpoint    = errors.New("bank_endpoint_not_configured")
	ErrMissingCredentials = errors.New("bank_credentials_missing")
)

// HTTPError is a non-2xx response from the bank. It is never retried:
// the server answered, so repeating the call will not change the verdict.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("bank gateway returned status %d", e.StatusCode)
}
