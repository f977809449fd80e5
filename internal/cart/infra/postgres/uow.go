package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dwikikusuma/minishop/internal/cart/app"
	"github.com/dwikikusuma/minishop/internal/cart/domain"
	"github.com/dwikikusuma/minishop/pkg/postgres"
)

type UnitOfWork struct {
	pool  *pgxpool.Pool
	topic string
}

// NewUnitOfWork writes checkout events to the outbox under topic; an empty topic
// disables them.
func NewUnitOfWork(pool *pgxpool.Pool, topic string) *UnitOfWork {
	return &UnitOfWork{pool: pool, topic: topic}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s app.Stores) error) error {
	err := postgres.ExecTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, u.stores(tx))
	})
	return classify("commit", err)
}

func (u *UnitOfWork) Read(ctx context.Context, fn func(ctx context.Context, s app.Stores) error) error {
	err := pgx.BeginTxFunc(ctx, u.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(ctx, u.stores(tx))
	})
	return classify("read", err)
}

func (u *UnitOfWork) stores(tx pgx.Tx) app.Stores {
	s := app.Stores{
		Stock:  &StockLedger{db: tx},
		Carts:  &CartStore{db: tx},
		Events: app.NopEvents{},
	}
	if u.topic != "" {
		s.Events = &Events{db: tx, topic: u.topic}
	}
	return s
}

// classify leaves domain errors and cancellation alone and marks everything else
// as a persistence failure.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.Kind(err) != "internal":
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return domain.Unavailable(op, err)
	}
}
