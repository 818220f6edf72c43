// Package retry wraps transient external failures with bounded
// retries and exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "storywatch/pkg/errors"
	"storywatch/pkg/logger"
)

// Operation is a retryable unit of work.
type Operation func(ctx context.Context) error

// OperationWithResult is a retryable unit of work that yields a value.
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Config controls the retry behavior.
type Config struct {
	// MaxAttempts bounds the total number of attempts (0 means
	// unlimited).
	MaxAttempts int
	// Backoff computes the delay before each retry.
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth retrying.
	RetryIf func(error) bool
	// Logger reports retry attempts.
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

// FromSettings builds a Config from the configured retry parameters.
func FromSettings(maxAttempts int, initialDelay, maxDelay time.Duration, multiplier float64, log logger.Logger) *Config {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff: &ExponentialBackoff{
			BaseDelay:    initialDelay,
			MaxDelay:     maxDelay,
			Multiplier:   multiplier,
			JitterFactor: 0.1,
		},
		RetryIf: DefaultRetryIf,
		Logger:  log,
	}
}

// DefaultRetryIf retries typed errors whose type is transient and
// refuses context errors. Unknown errors are retried.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return apperrors.IsRetryable(appErr.Type)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Do runs op until it succeeds, the error is not retryable, the
// attempt budget is spent, or ctx is cancelled.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	attempt := 0

	for {
		attempt++

		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt - 1,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return err
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult runs op with retry logic and returns its value.
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)

	return result, err
}
