package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StatusError is an upstream HTTP failure.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Code)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Code, e.Body)
}

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }

var statusInMessage = regexp.MustCompile(`\b(429|502|503)\b`)

// ShouldRetry reports whether err is transient: a network failure, a
// rate-limit message, or an HTTP status of 429, 502 or 503.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return IsRetryableStatus(sc.StatusCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection reset"), strings.Contains(msg, "fetch failed"):
		return true
	}
	return statusInMessage.MatchString(msg)
}

// IsRetryableStatus classifies retryable HTTP status codes.
func IsRetryableStatus(code int) bool {
	switch code {
	case 429, 502, 503:
		return true
	default:
		return false
	}
}
