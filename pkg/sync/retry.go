package sync

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/perunhq/blackbook-sync/pkg/contacts"
	"github.com/perunhq/blackbook-sync/pkg/metrics"
)

// caller bounds every external contact source call with a timeout and retries
// transient failures with exponential backoff. Permanent failures and
// unclassified errors are never retried; a timeout counts as transient.
type caller struct {
	timeout   time.Duration
	attempts  int
	baseDelay time.Duration
}

func newCaller(timeout time.Duration, attempts int, baseDelay time.Duration) *caller {
	if attempts < 1 {
		attempts = 1
	}
	return &caller{
		timeout:   timeout,
		attempts:  attempts,
		baseDelay: baseDelay,
	}
}

// call runs fn with retry. operation names the adapter call for metrics and
// error wrapping. retryTimeout controls whether a timed-out call is retried:
// a timeout leaves the outcome unknown, so creates must not repeat it.
func (c *caller) call(ctx context.Context, operation string, retryTimeout bool, fn func(ctx context.Context) error) error {
	start := time.Now()
	defer func() {
		metrics.RecordExternalCall(operation, time.Since(start).Seconds())
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.attempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			metrics.ExternalCallRetries.WithLabelValues(operation).Inc()
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = contacts.Transient(operation, err)
			if !retryTimeout {
				return backoff.Permanent(err)
			}
			return err
		}
		if contacts.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func (c *caller) list(ctx context.Context, src contacts.Source) ([]contacts.Record, error) {
	var records []contacts.Record
	err := c.call(ctx, "list", true, func(ctx context.Context) error {
		var err error
		records, err = src.List(ctx)
		return err
	})
	return records, err
}

func (c *caller) create(ctx context.Context, src contacts.Source, rec contacts.Record) (string, error) {
	var resourceID string
	err := c.call(ctx, "create", false, func(ctx context.Context) error {
		var err error
		resourceID, err = src.Create(ctx, rec)
		return err
	})
	return resourceID, err
}

func (c *caller) update(ctx context.Context, src contacts.Source, resourceID string, rec contacts.Record) error {
	return c.call(ctx, "update", true, func(ctx context.Context) error {
		return src.Update(ctx, resourceID, rec)
	})
}

func (c *caller) delete(ctx context.Context, src contacts.Source, resourceID string) error {
	return c.call(ctx, "delete", true, func(ctx context.Context) error {
		return src.Delete(ctx, resourceID)
	})
}
