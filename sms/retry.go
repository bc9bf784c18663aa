package sms

import (
	"context"
	"errors"
	"time"
)

// Retrier wraps a Sender in bounded exponential-backoff retry. The delay
// before attempt n (n>=2) is 2^(n-1) seconds: 2s, 4s, 8s. Only transient
// provider errors are retried; every attempt is a fresh Send and is
// individually rate-limited.
type Retrier struct {
	sender      Sender
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRetrier(sender Sender, maxAttempts int) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Retrier{
		sender:      sender,
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
}

func (r *Retrier) Send(ctx context.Context, dest, body string) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			if err := r.sleep(ctx, delay); err != nil {
				return Result{}, err
			}
		}

		res, err := r.sender.Send(ctx, dest, body)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var serr *SendError
		if errors.As(err, &serr) && !serr.Retryable() {
			return Result{}, err
		}
	}
	//last error verbatim
	return Result{}, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
