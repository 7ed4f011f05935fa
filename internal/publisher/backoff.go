package publisher

import (
	"math/rand/v2"
	"time"
)

type BackoffConfig struct {
	BaseDelay time.Duration // e.g. 1s
	MaxDelay  time.Duration // e.g. 60s
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		BaseDelay: 1 * time.Second,
		MaxDelay:  60 * time.Second,
	}
}

// NextAttemptAt computes the next retry time using exponential backoff with
// full jitter. attempt is 1-based (1 => up to BaseDelay).
func NextAttemptAt(now time.Time, attempt int, cfg BackoffConfig, jitter func(n int64) int64) time.Time {
	if attempt < 1 {
		attempt = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 1 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if jitter == nil {
		jitter = rand.Int64N
	}

	delay := cfg.MaxDelay
	// base * 2^(attempt-1), guarding the shift against overflow
	if attempt < 32 {
		if d := cfg.BaseDelay << (attempt - 1); d > 0 && d < cfg.MaxDelay {
			delay = d
		}
	}

	return now.Add(time.Duration(jitter(int64(delay) + 1))).UTC()
}
