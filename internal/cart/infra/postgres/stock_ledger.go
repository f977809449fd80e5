package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dwikikusuma/minishop/internal/cart/domain"
)

// DBTX is satisfied by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type StockLedger struct {
	db DBTX
}

func NewStockLedger(db DBTX) *StockLedger {
	return &StockLedger{db: db}
}

// Reserve decrements stock with a single conditional update. When no row matches, a
// second lookup tells an unknown product apart from a short one. qty is compared as
// bigint so a quantity beyond the int4 range is short rather than unencodable.
func (l *StockLedger) Reserve(ctx context.Context, productID string, qty int) (domain.Reservation, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return domain.Reservation{}, domain.ErrProductNotFound
	}

	res := domain.Reservation{ProductID: productID}
	err = l.db.QueryRow(ctx, `
		UPDATE products
		SET stock = stock - $2::bigint, updated_at = now()
		WHERE id = $1 AND stock >= $2::bigint
		RETURNING name, price_amount, currency, stock`, id, qty,
	).Scan(&res.ProductName, &res.UnitPrice.Amount, &res.UnitPrice.Currency, &res.Remaining)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.Unavailable("reserve", err)
	}

	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.Reservation{}, domain.Unavailable("reserve", err)
	}
	if !exists {
		return domain.Reservation{}, domain.ErrProductNotFound
	}
	return domain.Reservation{}, domain.ErrInsufficientStock
}

func (l *StockLedger) Release(ctx context.Context, productID string, qty int) error {
	id, err := uuid.Parse(productID)
	if err != nil {
		return domain.ErrProductNotFound
	}

	tag, err := l.db.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, id, qty)
	if err != nil {
		return domain.Unavailable("release", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (l *StockLedger) Query(ctx context.Context, productID string) (int, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return 0, domain.ErrProductNotFound
	}

	var stock int
	err = l.db.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrProductNotFound
	}
	if err != nil {
		return 0, domain.Unavailable("query stock", err)
	}
	return stock, nil
}
