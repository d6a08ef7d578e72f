package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/attendobot/core/httpx"
)

const (
	telegramClientTimeout = 30 * time.Second
	telegramRetryAttempts = 3
	telegramRetryBackoff  = 2 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Long polling needs the client timeout to exceed the poll timeout.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	timeout := telegramClientTimeout
	if pollTimeout+10*time.Second > timeout {
		timeout = pollTimeout + 10*time.Second
	}
	return httpx.NewClient(httpx.Options{
		Timeout:               timeout,
		ResponseHeaderTimeout: timeout,
		Retries:               telegramRetryAttempts,
		RetryBackoff:          telegramRetryBackoff,
	})
}
