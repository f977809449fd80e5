package postgres

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dwikikusuma/minishop/internal/cart/domain"
)

const lineColumns = `user_id::text, product_id::text, product_name, quantity, unit_amount, currency, created_at, updated_at`

type CartStore struct {
	db DBTX
}

func NewCartStore(db DBTX) *CartStore {
	return &CartStore{db: db}
}

// Merge upserts the line. On conflict only the quantity grows; the stored name and
// price snapshot stay as first written.
func (s *CartStore) Merge(ctx context.Context, line domain.CartLine) (domain.CartLine, error) {
	userID, productID, err := parseIDs(line.UserID, line.ProductID)
	if err != nil {
		return domain.CartLine{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO cart_lines (user_id, product_id, product_name, quantity, unit_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING `+lineColumns,
		userID, productID, line.ProductName, line.Quantity, line.UnitPrice.Amount, line.UnitPrice.Currency)

	out, err := scanLine(row)
	if err != nil {
		return domain.CartLine{}, domain.Unavailable("merge line", err)
	}
	return out, nil
}

// Decrement locks the line before capping the removal to its quantity.
func (s *CartStore) Decrement(ctx context.Context, userID, productID string, qty int) (int, error) {
	uid, pid, err := parseIDs(userID, productID)
	if err != nil {
		return 0, domain.ErrLineNotFound
	}

	var current int
	err = s.db.QueryRow(ctx,
		`SELECT quantity FROM cart_lines WHERE user_id = $1 AND product_id = $2 FOR UPDATE`, uid, pid,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrLineNotFound
	}
	if err != nil {
		return 0, domain.Unavailable("decrement line", err)
	}

	removed := min(qty, current)
	if current-removed <= 0 {
		_, err = s.db.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`, uid, pid)
	} else {
		_, err = s.db.Exec(ctx,
			`UPDATE cart_lines SET quantity = quantity - $3, updated_at = now() WHERE user_id = $1 AND product_id = $2`,
			uid, pid, removed)
	}
	if err != nil {
		return 0, domain.Unavailable("decrement line", err)
	}
	return removed, nil
}

func (s *CartStore) List(ctx context.Context, userID string) ([]domain.CartLine, error) {
	uid, err := parseUser(userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+lineColumns+` FROM cart_lines WHERE user_id = $1 ORDER BY created_at, product_id`, uid)
	if err != nil {
		return nil, domain.Unavailable("list lines", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartLine, error) {
		return scanLine(row)
	})
	if err != nil {
		return nil, domain.Unavailable("list lines", err)
	}
	return lines, nil
}

// Clear deletes and returns the user's lines in one statement.
func (s *CartStore) Clear(ctx context.Context, userID string) ([]domain.CartLine, error) {
	uid, err := parseUser(userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `DELETE FROM cart_lines WHERE user_id = $1 RETURNING `+lineColumns, uid)
	if err != nil {
		return nil, domain.Unavailable("clear cart", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartLine, error) {
		return scanLine(row)
	})
	if err != nil {
		return nil, domain.Unavailable("clear cart", err)
	}
	sortLines(lines)
	return lines, nil
}

func scanLine(row pgx.Row) (domain.CartLine, error) {
	var l domain.CartLine
	err := row.Scan(&l.UserID, &l.ProductID, &l.ProductName, &l.Quantity,
		&l.UnitPrice.Amount, &l.UnitPrice.Currency, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// sortLines orders lines the way List does; DELETE ... RETURNING has no ORDER BY.
func sortLines(lines []domain.CartLine) {
	slices.SortStableFunc(lines, func(a, b domain.CartLine) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
}

func parseUser(userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidUser
	}
	return id, nil
}

func parseIDs(userID, productID string) (uuid.UUID, uuid.UUID, error) {
	uid, err := parseUser(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrProductNotFound
	}
	return uid, pid, nil
}
