package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/durapage/durapage/pkg/logger"
)

// Policy describes how a fallible operation is re-executed. The pause before
// rerunning after the zero-based attempt k is Delay*Backoff^k plus a uniformly
// random fraction of up to Jitter of that value.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
	Jitter   float64
}

const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
	DefaultBackoff  = 1.0
	DefaultJitter   = 0.1
)

func DefaultPolicy() Policy {
	return Policy{
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Backoff:  DefaultBackoff,
		Jitter:   DefaultJitter,
	}
}

// Do executes op until it succeeds or the policy's attempts are exhausted,
// pausing between attempts. Each failed attempt is logged; on exhaustion the
// last failure is propagated. Cancelling the context interrupts the pause.
func Do(ctx context.Context, policy Policy, log *slog.Logger, operation string, op func() error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if lastErr = op(); lastErr == nil {
			return nil
		}
		if attempt == policy.Attempts-1 {
			break
		}
		backoff := policy.wait(attempt)
		log.Warn("operation failed, retrying",
			slog.String("operation", operation),
			slog.Int("attempt", attempt+1),
			slog.String("backoff", backoff.String()),
			logger.Error(lastErr),
		)
		if err := sleep(ctx, backoff); err != nil {
			return errors.Join(err, lastErr)
		}
	}
	log.Error("operation failed, retry attempts exhausted",
		slog.String("operation", operation),
		slog.Int("attempts", policy.Attempts),
		logger.Error(lastErr),
	)
	return fmt.Errorf("reached max retry attempts for operation %s: %w", operation, lastErr)
}

func (p Policy) wait(attempt int) time.Duration {
	duration := time.Duration(float64(p.Delay) * math.Pow(p.Backoff, float64(attempt)))
	if p.Jitter > 0 {
		duration += time.Duration(rand.Float64() * p.Jitter * float64(duration))
	}
	return duration
}

func sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
