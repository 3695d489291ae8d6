// Package store provides the transactional primitives the ledger needs: an
// interactive transaction wrapper and row-level exclusive locking on a
// deal, so that a status transition, its requirement checks, and its
// DealEvent insertion all commit or roll back together.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Querier is the subset of pgxpool.Pool and pgx.Tx that repositories need.
// Every repo in internal/repositories except ChannelRepo and UserRepo
// (which hold the pool directly) is constructed against this interface so
// the same code runs whether it's called directly against the pool or
// inside a Store.WithTx callback.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound is returned by repositories when a lookup by ID finds
// nothing. Callers compare against it with errors.Is.
var ErrNotFound = errors.New("store: not found")

// Store owns the connection pool and provides WithTx / LockDeal on top of
// it. Every saga-shaped mutation (dealengine transitions, purge, dispute
// resolution) goes through WithTx.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New wraps an already-connected pool.
func New(pool *pgxpool.Pool, log *zap.Logger) *Store {
	return &Store{pool: pool, log: log}
}

// Pool exposes the underlying pool for read-only queries that don't need a
// transaction.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// WithTx runs fn inside a read-committed transaction, committing if fn
// returns nil and rolling back (and propagating the error) otherwise. A
// panic inside fn is converted into a rollback and re-raised.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Warn("store: rollback failed", zap.Error(rbErr))
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(ctx, tx)
	return err
}

// LockDeal takes a row-level exclusive lock on a deal for the lifetime of
// tx, serializing any other transaction that tries to lock or update the
// same deal. Every state transition, requirement update, and saga step
// must take this lock before reading the deal's current status.
func LockDeal(ctx context.Context, tx pgx.Tx, dealID uuid.UUID) error {
	var discard uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM deals WHERE id = $1 FOR UPDATE`, dealID).Scan(&discard)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("store: lock deal %s: %w", dealID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: lock deal %s: %w", dealID, err)
	}
	return nil
}
