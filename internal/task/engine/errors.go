package engine

import (
	"errors"
	"time"
)

var (
	ErrStopped     = errors.New("task engine stopped")
	ErrStopping    = errors.New("task engine stopping")
	ErrQueueFull   = errors.New("task engine queue full")
	ErrOverlapSkip = errors.New("task skipped: previous run still pending")
)

// RetryAfterError is satisfied by task errors that suggest their own delay
// before the next attempt.
type RetryAfterError interface {
	error
	RetryAfter() time.Duration
}

// retryHint annotates a task error with how the worker should retry it.
type retryHint struct {
	cause     error
	permanent bool
	after     time.Duration
}

func (h *retryHint) Error() string { return h.cause.Error() }
func (h *retryHint) Unwrap() error { return h.cause }

// NoRetry makes the worker give up after this attempt.
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return &retryHint{cause: err, permanent: true}
}

// IsNoRetry reports whether err carries a NoRetry mark.
func IsNoRetry(err error) bool {
	_, ok := permanentCause(err)
	return ok
}

// RetryAfter asks for the next attempt after d instead of the exponential
// delay. The worker still jitters it and caps it at RetryMaxDelay.
func RetryAfter(err error, d time.Duration) error {
	if err == nil {
		return nil
	}
	return &hintedDelay{retryHint{cause: err, after: max(d, 0)}}
}

type hintedDelay struct{ retryHint }

func (h *hintedDelay) RetryAfter() time.Duration { return h.after }

// permanentCause unwraps a NoRetry mark, returning the original error.
func permanentCause(err error) (error, bool) {
	var h *retryHint
	if errors.As(err, &h) && h.permanent {
		return h.cause, true
	}
	return err, false
}
