// Package services implements the pipeline stage services: trend discovery,
// content generation and image generation, plus the job service and runner.
package services

import (
	"context"
	"time"

	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// retryPolicy bounds how service calls are retried. Only faults classified
// as retryable are attempted again; credential and request errors surface
// immediately.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	factor     int
	sleep      func(ctx context.Context, d time.Duration) error
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries: 2,
		baseDelay:  time.Second,
		factor:     2,
		sleep:      sleepCtx,
	}
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

// do runs fn with exponential backoff between retryable failures
func (p retryPolicy) do(ctx context.Context, op string, fn func() error) error {
	delay := p.baseDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !types.IsRetryable(err) || attempt >= p.maxRetries {
			return err
		}
		logger.WarnWithFields("retrying after transient failure", map[string]interface{}{
			"op":      op,
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return err
		}
		delay *= time.Duration(p.factor)
	}
}
