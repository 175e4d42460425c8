package gemini

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RateLimitError marks upstream quota exhaustion, which callers must be
// able to tell apart from every other service failure: further calls
// would also fail, so the run should stop instead of retrying.
type RateLimitError struct {
	// RetryAfter is the wait the service suggested, zero when it gave none.
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("transcription service rate limited (retry in %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("transcription service rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err carries a rate-limit condition.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

var retryHintRe = regexp.MustCompile(`retry in (\d+\.?\d*)s`)

// classifyError wraps quota-exhaustion responses in a RateLimitError,
// extracting the "retry in N.NNs" hint when the service includes one.
// Other errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "429") &&
		!strings.Contains(msg, "RESOURCE_EXHAUSTED") &&
		!strings.Contains(strings.ToLower(msg), "quota") {
		return err
	}

	rl := &RateLimitError{Err: err}
	if m := retryHintRe.FindStringSubmatch(msg); m != nil {
		if seconds, parseErr := strconv.ParseFloat(m[1], 64); parseErr == nil {
			rl.RetryAfter = time.Duration(seconds * float64(time.Second))
		}
	}
	return rl
}
