package lifecycle

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 20 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}
}

// RetryOption 配置存储调用的退避
type RetryOption func(*retryConfig) error

func WithMaxAttempts(n int) RetryOption {
	return func(c *retryConfig) error {
		if n <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = n
		return nil
	}
}

// WithBaseDelay 设置第一次退避时长，之后每次翻倍
func WithBaseDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) error {
		if d < 0 {
			return ErrNegativeBaseDelay
		}
		c.baseDelay = d
		return nil
	}
}

func WithJitterFactor(f float64) RetryOption {
	return func(c *retryConfig) error {
		if f < 0.0 || f > 1.0 {
			return ErrInvalidJitterFactor
		}
		c.jitterFactor = f
		return nil
	}
}

// RetryResult 记录一次重试调用的经过
type RetryResult struct {
	Attempts   int
	TotalDelay time.Duration
}

// Retry 执行 fn 直到成功、遇到非临时错误、ctx 结束或次数用完
// 只重试 ErrTransient，ErrConflict 直接返回给调用方
//
// 默认间隔：0, 20ms, 40ms, 80ms (+30% 抖动)
func Retry(ctx context.Context, fn func(ctx context.Context) error, opts ...RetryOption) (RetryResult, error) {
	cfg := defaultRetryConfig()
	for _, o := range opts {
		if err := o(&cfg); err != nil {
			return RetryResult{}, err
		}
	}
	return retry(ctx, cfg, fn)
}

func retry(ctx context.Context, cfg retryConfig, fn func(ctx context.Context) error) (RetryResult, error) {
	var res RetryResult
	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec // jitter only
			wait := delay + time.Duration(jitter)

			select {
			case <-time.After(wait):
				res.TotalDelay += wait
			case <-ctx.Done():
				return res, ctx.Err()
			}
		}

		res.Attempts++
		lastErr = fn(ctx)
		if lastErr == nil {
			return res, nil
		}
		if !errors.Is(lastErr, ErrTransient) {
			return res, lastErr
		}
	}
	return res, lastErr
}
