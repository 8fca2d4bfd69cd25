package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// RetryAfterer is implemented by upstream errors that carried a Retry-After hint.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// IsRateLimited reports an upstream 429 anywhere in the chain.
func IsRateLimited(err error) bool {
	var sc HTTPStatusCoder
	return errors.As(err, &sc) && sc.HTTPStatusCode() == http.StatusTooManyRequests
}

// RetryAfterDuration reads a delay-seconds Retry-After header, returning
// fallback when it is absent or unparseable and capping at max when max > 0.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}
