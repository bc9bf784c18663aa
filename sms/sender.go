package sms

import (
	"context"
)

// Sender is the single entry point for delivering one message: it
// canonicalizes the destination, consults the rate limiter, calls the
// carrier and records the send on success.
type Sender interface {
	Send(ctx context.Context, dest, body string) (Result, error)
}

type sender struct {
	client      Client
	limiter     *RateLimiter
	from        string
	countryCode string
}

func NewSender(client Client, limiter *RateLimiter, from, countryCode string) Sender {
	return &sender{
		client:      client,
		limiter:     limiter,
		from:        from,
		countryCode: countryCode,
	}
}

func (s *sender) Send(ctx context.Context, dest, body string) (Result, error) {
	to, err := NormalizeDestination(dest, s.countryCode)
	if err != nil {
		return Result{}, err
	}

	//rejection short-circuits before any network call
	if ok, reason := s.limiter.Admit(to); !ok {
		return Result{}, NewSendError(ErrRateLimited, reason)
	}

	res, err := s.client.Send(ctx, to, s.from, body)
	if err != nil {
		return Result{}, err
	}

	s.limiter.Record(to)
	return res, nil
}
