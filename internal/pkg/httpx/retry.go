package httpx

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy retries a call only while the upstream answers 429. Every
// non-interactive outbound call site shares it; interactive paths never retry.
type RetryPolicy struct {
	Attempts   int
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration

	// Sleep is swapped out in tests.
	Sleep   func(ctx context.Context, d time.Duration) error
	OnRetry func(attempt int, wait time.Duration, err error)
}

// RateLimitPolicy is 3 attempts waiting 2s then 4s.
func RateLimitPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Initial: 2 * time.Second, Multiplier: 2, Max: 30 * time.Second}
}

func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	wait := p.Initial
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsRateLimited(err) || attempt == attempts {
			return err
		}
		d := wait
		var ra RetryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > d {
			d = ra.RetryAfter()
		}
		if p.Max > 0 && d > p.Max {
			d = p.Max
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, d, err)
		}
		if serr := sleep(ctx, d); serr != nil {
			return err
		}
		wait = time.Duration(float64(wait) * mult)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
