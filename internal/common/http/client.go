// internal/common/http/client.go
package http

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// NewClient returns a resty client for outbound partner calls. Retries are
// disabled: the orchestrator owns the retry policy.
func NewClient(timeout time.Duration, userAgent string) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeader("Accept", "application/json")
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return client
}

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
