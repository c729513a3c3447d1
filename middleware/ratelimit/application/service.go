package application

import (
	"time"

	"markdown-editor/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Limit <= 0 desliga o limite (tudo passa), igual a um Limiter nil.
// RetryAfter fixo tem precedência; zero usa o valor calculado pelo limiter
// (RetryAfterReporter) e, sem ele, 1s.
type Service struct {
	Limiter    domain.WindowLimiter
	Limit      int
	RetryAfter time.Duration
}

const fallbackRetryAfter = 1 * time.Second

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil || s.Limit <= 0 {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: -1}
	}
	allowed := s.Limiter.Check(key, s.Limit)

	remaining := -1
	if rr, ok := s.Limiter.(domain.RemainingReporter); ok {
		remaining = rr.Remaining(key, s.Limit)
	}

	if allowed {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: remaining}
	}
	return domain.Decision{
		Allowed:    false,
		Limit:      s.Limit,
		Remaining:  0,
		RetryAfter: s.retryAfter(key),
	}
}

func (s Service) retryAfter(key domain.Key) time.Duration {
	if s.RetryAfter > 0 {
		return s.RetryAfter
	}
	if rr, ok := s.Limiter.(domain.RetryAfterReporter); ok {
		if d := rr.RetryAfter(key, s.Limit); d > 0 {
			return d
		}
	}
	return fallbackRetryAfter
}
