package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/durapage/durapage/pkg/logger"
)

func TestDo(t *testing.T) {
	errOperation := errors.New("operation error")
	type args struct {
		policy    Policy
		failUntil int
	}
	tests := []struct {
		name       string
		args       args
		assertions func(*assert.Assertions, int, error)
	}{
		{
			name: "success on first attempt",
			args: args{
				policy: Policy{Attempts: 3},
			},
			assertions: func(assertions *assert.Assertions, calls int, err error) {
				assertions.Nil(err)
				assertions.Equal(1, calls)
			},
		},
		{
			name: "success after transient failures",
			args: args{
				policy:    Policy{Attempts: 3, Delay: time.Millisecond},
				failUntil: 2,
			},
			assertions: func(assertions *assert.Assertions, calls int, err error) {
				assertions.Nil(err)
				assertions.Equal(3, calls)
			},
		},
		{
			name: "exactly n attempts before propagating the last failure",
			args: args{
				policy:    Policy{Attempts: 4, Delay: time.Millisecond},
				failUntil: 100,
			},
			assertions: func(assertions *assert.Assertions, calls int, err error) {
				assertions.NotNil(err)
				assertions.Equal(4, calls)
				assertions.ErrorIs(err, errOperation)
				assertions.ErrorContains(err, "reached max retry attempts")
			},
		},
		{
			name: "attempt count below one is normalised to a single attempt",
			args: args{
				policy:    Policy{Attempts: 0},
				failUntil: 100,
			},
			assertions: func(assertions *assert.Assertions, calls int, err error) {
				assertions.NotNil(err)
				assertions.Equal(1, calls)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			err := Do(context.Background(), tt.args.policy, logger.NewLogger(io.Discard), "test", func() error {
				calls++
				if calls <= tt.args.failUntil {
					return errOperation
				}
				return nil
			})
			tt.assertions(assert.New(t), calls, err)
		})
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	assertions := assert.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, Policy{Attempts: 5, Delay: time.Hour}, logger.NewLogger(io.Discard), "test", func() error {
		calls++
		cancel()
		return errors.New("operation error")
	})
	assertions.NotNil(err)
	assertions.Equal(1, calls)
	assertions.ErrorIs(err, context.Canceled)
}

func TestPolicy_wait(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{
			name:   "constant backoff with jitter",
			policy: Policy{Attempts: 3, Delay: 100 * time.Millisecond, Backoff: 1, Jitter: 0.1},
		},
		{
			name:   "exponential backoff with jitter",
			policy: Policy{Attempts: 5, Delay: 50 * time.Millisecond, Backoff: 2, Jitter: 0.25},
		},
		{
			name:   "no jitter",
			policy: Policy{Attempts: 3, Delay: 200 * time.Millisecond, Backoff: 1.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertions := assert.New(t)
			for attempt := 0; attempt < tt.policy.Attempts; attempt++ {
				lower := time.Duration(float64(tt.policy.Delay) * math.Pow(tt.policy.Backoff, float64(attempt)))
				upper := time.Duration(float64(lower) * (1 + tt.policy.Jitter))
				for sample := 0; sample < 100; sample++ {
					duration := tt.policy.wait(attempt)
					message := fmt.Sprintf("attempt %d sample %d", attempt, sample)
					assertions.GreaterOrEqual(duration, lower, message)
					assertions.LessOrEqual(duration, upper, message)
				}
			}
		})
	}
}
