package engine

import (
	"errors"
	"math/rand"
	"time"
)

// ExpBackoff returns base * 2^(attempt-1), capped at maxDelay. attempt starts at 1.
func ExpBackoff(base, maxDelay time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if maxDelay > 0 && d >= maxDelay {
			return maxDelay
		}
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d
}

func backoffDelayWithHint(opt TaskOptions, retry int, err error, rng *rand.Rand) time.Duration {
	d := ExpBackoff(opt.RetryBase, opt.RetryMaxDelay, retry)
	var ra RetryAfterError
	if err != nil && errors.As(err, &ra) {
		d = max(ra.RetryAfter(), 0)
	}
	return jitter(d, opt.RetryJitter, opt.RetryMaxDelay, rng)
}

func jitter(d time.Duration, j float64, maxDelay time.Duration, rng *rand.Rand) time.Duration {
	if j > 0 && d > 0 && rng != nil {
		r := (rng.Float64()*2 - 1) * j
		d = time.Duration(float64(d) * (1 + r))
	}
	if d < 0 {
		d = 0
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d
}
