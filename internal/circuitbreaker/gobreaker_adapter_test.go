package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"codeatlas/internal/common/errors"
	"codeatlas/internal/common/logging"
)

func TestGoBreakerAdapter(t *testing.T) {
	logger := logging.GetGlobalLogger()

	t.Run("basic operation", func(t *testing.T) {
		cb := NewGoBreaker("test-basic", Config{
			MaxFailures:           2,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
			SuccessThreshold:      1,
		}, logger)

		assert.Equal(t, StateClosed, cb.State())

		err := cb.Execute(context.Background(), func() error {
			return nil
		})
		assert.NoError(t, err)

		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("circuit opens after failures", func(t *testing.T) {
		cb := NewGoBreaker("test-failures", Config{
			MaxFailures:           3,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
			SuccessThreshold:      1,
		}, logger)

		for i := 0; i < 3; i++ {
			err := cb.Execute(context.Background(), func() error {
				return fmt.Errorf("failure %d", i)
			})
			assert.Error(t, err)
		}

		assert.Equal(t, StateOpen, cb.State())
		assert.True(t, cb.IsOpen())

		// Next call fails fast without invoking the function.
		err := cb.Execute(context.Background(), func() error {
			t.Fatal("This should not be called")
			return nil
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "open")
		assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	})

	t.Run("circuit transitions to half-open", func(t *testing.T) {
		cb := NewGoBreaker("test-half-open", Config{
			MaxFailures:           2,
			Timeout:               50 * time.Millisecond,
			MaxConcurrentRequests: 1,
			SuccessThreshold:      1,
		}, logger)

		for i := 0; i < 2; i++ {
			cb.Execute(context.Background(), func() error {
				return fmt.Errorf("failure")
			})
		}

		assert.Equal(t, StateOpen, cb.State())

		time.Sleep(60 * time.Millisecond)

		// Next call is the half-open probe.
		err := cb.Execute(context.Background(), func() error {
			return nil
		})
		assert.NoError(t, err)

		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("validation errors don't trip breaker", func(t *testing.T) {
		cb := NewGoBreaker("test-validation", Config{
			MaxFailures:           2,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
			SuccessThreshold:      1,
		}, logger)

		for i := 0; i < 5; i++ {
			err := cb.Execute(context.Background(), func() error {
				return errors.ValidationError("invalid input")
			})
			assert.Error(t, err)
		}

		assert.Equal(t, StateClosed, cb.State())

		for i := 0; i < 2; i++ {
			err := cb.Execute(context.Background(), func() error {
				return errors.ConnectionError("backend down", nil)
			})
			assert.Error(t, err)
		}

		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("state change hook fires", func(t *testing.T) {
		var mu sync.Mutex
		var transitions []string

		cfg := Config{
			MaxFailures:           1,
			Timeout:               50 * time.Millisecond,
			MaxConcurrentRequests: 1,
			SuccessThreshold:      1,
			OnStateChange: func(name string, from, to State) {
				mu.Lock()
				transitions = append(transitions, fmt.Sprintf("%s->%s", from, to))
				mu.Unlock()
			},
		}
		cb := NewGoBreaker("test-hook", cfg, logger)

		cb.Execute(context.Background(), func() error {
			return fmt.Errorf("failure")
		})

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"closed->open"}, transitions)
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := NewGoBreaker("test-invalid", Config{MaxFailures: -1}, logger)

		err := cb.Execute(context.Background(), func() error {
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("stats", func(t *testing.T) {
		cb := NewGoBreaker("test-stats", DefaultConfig(), logger)

		cb.Execute(context.Background(), func() error { return nil })
		cb.Execute(context.Background(), func() error { return fmt.Errorf("fail") })

		stats := cb.Stats()
		assert.Equal(t, "test-stats", stats.Name)
		assert.Equal(t, "closed", stats.State)
		assert.Equal(t, 1, stats.Successes)
		assert.Equal(t, 1, stats.Failures)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", DefaultConfig(), false},
		{"zero max failures", Config{Timeout: time.Second, MaxConcurrentRequests: 1, SuccessThreshold: 1}, true},
		{"zero timeout", Config{MaxFailures: 1, MaxConcurrentRequests: 1, SuccessThreshold: 1}, true},
		{"zero concurrent", Config{MaxFailures: 1, Timeout: time.Second, SuccessThreshold: 1}, true},
		{"zero success threshold", Config{MaxFailures: 1, Timeout: time.Second, MaxConcurrentRequests: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
