// Package repokit holds the SQL seams repositories are written against, so they
// never import a driver directly
package repokit

import (
	"context"
	"time"

	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	"picktrack/internal/platform/store"
)

type (
	// Queryer runs statements, either on the pool or inside a tx
	Queryer = store.RowQuerier
	// TxRunner is a Queryer that can also open a transaction
	TxRunner = store.TxRunner
	// Rows is a query result set
	Rows = store.Rows
	// Row is a single row result
	Row = store.Row
	// CommandTag reports what a statement changed
	CommandTag = store.CommandTag
	// Clickhouse is the columnar append seam
	Clickhouse = store.Clickhouse
)

// BeginHook runs first inside every transaction, typically a SET LOCAL
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks returns a runner whose transactions run hooks before fn;
// statements outside Tx pass straight through
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	if len(hooks) == 0 {
		return inner
	}
	return hooked{TxRunner: inner, hooks: hooks}
}

type hooked struct {
	TxRunner
	hooks []BeginHook
}

func (h hooked) Tx(ctx context.Context, fn func(Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hook := range h.hooks {
			if err := hook(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

// Retry reruns whole transactions that fail with a transient error (serialization
// failure, deadlock, unavailable) up to attempts times, doubling base between tries
func Retry(inner TxRunner, attempts int, base time.Duration) TxRunner {
	if attempts <= 1 {
		return inner
	}
	return retrying{TxRunner: inner, attempts: attempts, base: base}
}

type retrying struct {
	TxRunner
	attempts int
	base     time.Duration
}

func (r retrying) Tx(ctx context.Context, fn func(Queryer) error) error {
	wait := r.base
	var err error
	for try := 1; ; try++ {
		if err = r.TxRunner.Tx(ctx, fn); err == nil || !perr.Retryable(err) || try == r.attempts {
			return err
		}
		logger.C(ctx).Debug().Err(err).Int("try", try).Dur("wait", wait).Msg("retrying transaction")
		select {
		case <-ctx.Done():
			return perr.Wrap(ctx.Err(), perr.ErrorCodeTimeout, "transaction retry abandoned")
		case <-time.After(wait):
		}
		wait *= 2
	}
}
