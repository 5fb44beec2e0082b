package embedding

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/vaultlens/internal/apperr"
)

// RetryConfig controls the Retrying wrapper.
type RetryConfig struct {
	Timeout        time.Duration // per attempt; 0 disables
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RatePerSecond  float64 // 0 = unlimited
}

// Retrying bounds every call with a timeout, retries transient failures with
// exponential backoff and optionally rate-limits outgoing calls.
type Retrying struct {
	next    Provider
	cfg     RetryConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewRetrying wraps next.
func NewRetrying(next Provider, cfg RetryConfig, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Retrying{next: next, cfg: cfg, logger: logger, sleep: sleepCtx}
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return r
}

func (r *Retrying) Name() string { return r.next.Name() }

// Embed implements Provider.
func (r *Retrying) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	backoff := r.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		vec, err := r.attempt(ctx, text, task)
		if err == nil {
			return vec, nil
		}
		if !apperr.IsRetryable(err) || attempt >= r.cfg.MaxRetries || ctx.Err() != nil {
			return nil, err
		}
		r.logger.Debug("embedding: retrying",
			slog.String("provider", r.next.Name()),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		if err := r.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
		if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

func (r *Retrying) attempt(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if r.cfg.Timeout <= 0 {
		return r.next.Embed(ctx, text, task)
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.next.Embed(ctx, text, task)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
