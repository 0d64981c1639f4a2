package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/config"
	"github.com/resumefoundry/auth-core/internal/infra/logger"
)

// RateLimitExceededError signals an exhausted login budget and carries how
// long the caller must back off.
type RateLimitExceededError struct {
	Key        string
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Error implements error.
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Key, e.RetryAfter)
}

// LoginLimiter enforces independent budgets per login attempt for the IP, the
// username, and the IP+username pair. Failed logins apply asymmetric penalty
// weights so both spray patterns (one username from many IPs,
// one IP across many usernames) degrade faster than ordinary traffic.
type LoginLimiter struct {
	store  port.RateLimitStore
	cfg    config.RateLimitSettings
	logger *zap.Logger
	now    func() time.Time
}

// NewLoginLimiter constructs a limiter over the provided store.
func NewLoginLimiter(store port.RateLimitStore, cfg config.RateLimitSettings, log *zap.Logger) *LoginLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return &LoginLimiter{
		store:  store,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (l *LoginLimiter) WithClock(now func() time.Time) *LoginLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

// PairKey builds the combined admission key. The username may be empty when
// the request body carried none; the IP still bounds the attempt rate.
func PairKey(ip, username string) string {
	return ip + "-" + username
}

// Admit consumes one point from the IP+username pair budget ahead of any
// credential work. Store failures propagate: admission fails closed rather
// than silently allowing unmetered attempts.
func (l *LoginLimiter) Admit(ctx context.Context, ip, username string) error {
	key := "pair:" + PairKey(ip, username)

	res, err := l.store.Consume(ctx, key, 1, l.cfg.PairLimit, l.cfg.Window)
	if err != nil {
		return fmt.Errorf("rate limit admission: %w", err)
	}

	if !res.Allowed {
		now := l.now()
		return &RateLimitExceededError{
			Key:        key,
			RetryAfter: res.RetryAfter(now),
			ResetAt:    res.ResetAt,
		}
	}

	return nil
}

// PenalizeFailure consumes extra points on a failed login only: 1 against the
// IP, 2 against the username, 3 against the pair. The three consumptions are
// independent and run concurrently; store errors here are logged and dropped
// since the admission path already fails closed.
func (l *LoginLimiter) PenalizeFailure(ctx context.Context, username, ip string) {
	type charge struct {
		key    string
		points int
		limit  int
	}

	charges := []charge{
		{key: "ip:" + ip, points: l.cfg.IPPenalty, limit: l.cfg.LoginLimit},
		{key: "username:" + username, points: l.cfg.UsernamePenalty, limit: l.cfg.UsernameLimit},
		{key: "pair:" + PairKey(ip, username), points: l.cfg.PairPenalty, limit: l.cfg.PairLimit},
	}

	var wg sync.WaitGroup
	for _, c := range charges {
		wg.Add(1)
		go func(c charge) {
			defer wg.Done()
			if _, err := l.store.Consume(ctx, c.key, c.points, c.limit, l.cfg.Window); err != nil {
				l.logger.Warn("failed login penalty not recorded",
					zap.String("key", logger.MaskString(c.key)),
					zap.Error(err),
				)
			}
		}(c)
	}
	wg.Wait()
}
