package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnauthorized means the platform rejected the credential. Retrying with
// the same token cannot help.
var ErrUnauthorized = errors.New("platform rejected the access token")

// APIError is any other non-2xx answer from the platform.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform http %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrUnauthorized) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
