package deepsight

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoEndpoint is returned when the client has no base URL configured.
	ErrNoEndpoint = errors.New("deepsight: endpoint required")

	// ErrNoImage is returned when an analysis request carries no payload.
	ErrNoImage = errors.New("deepsight: image payload required")

	// ErrServiceFailure is returned when the service answered but reported
	// an unsuccessful analysis.
	ErrServiceFailure = errors.New("deepsight: analysis unsuccessful")
)

// APIError represents an HTTP error response from the deep-analysis service.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("deepsight: API error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true for HTTP 429.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == 429 }

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}
