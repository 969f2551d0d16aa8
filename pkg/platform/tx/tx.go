// Package tx provides the commit boundary shared by the hierarchy store and
// the transition ledger. A transition's store mutation and ledger append run
// inside one Runner call: both apply or neither does.
package tx

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a pgx transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a pgx transaction from context if present.
func From(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}

// Runner executes a function inside one atomic commit unit. RunInReadTx is
// the matching read section: a reader inside it never observes a commit unit
// halfway through.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgxRunner wraps a pgx pool transaction around the callback. Stores pick the
// transaction out of the context via From.
type PgxRunner struct {
	pool *pgxpool.Pool
}

func NewPgxRunner(pool *pgxpool.Pool) *PgxRunner {
	return &PgxRunner{pool: pool}
}

func (r *PgxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	pgxTx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = pgxTx.Rollback(ctx) }()

	if err := fn(WithTx(ctx, pgxTx)); err != nil {
		return err
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RunInReadTx runs the callback in a read-only repeatable-read transaction so
// every query inside sees one snapshot of the committed state.
func (r *PgxRunner) RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	pgxTx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = pgxTx.Rollback(ctx) }()

	if err := fn(WithTx(ctx, pgxTx)); err != nil {
		return err
	}
	return pgxTx.Commit(ctx)
}

// MemoryRunner serializes commit sections for the in-memory store pair.
// Failure atomicity comes from the stores themselves: the hierarchy store
// validates a changeset fully before mutating, and the in-memory ledger
// append cannot fail, so a callback that errors has mutated nothing. The
// read side shares the lock: the in-memory stores guard only themselves, so
// without it a reader could catch the gap between the hierarchy swap and the
// ledger append.
type MemoryRunner struct {
	mu sync.RWMutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (r *MemoryRunner) RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
