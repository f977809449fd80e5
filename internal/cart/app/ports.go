package app

import (
	"context"

	"github.com/dwikikusuma/minishop/internal/cart/domain"
)

// StockLedger owns the available quantity of every product.
type StockLedger interface {
	// Reserve takes qty units out of available stock in one conditional step.
	Reserve(ctx context.Context, productID string, qty int) (domain.Reservation, error)
	// Release puts qty units back unconditionally.
	Release(ctx context.Context, productID string, qty int) error
	Query(ctx context.Context, productID string) (int, error)
}

// CartStore owns cart lines keyed by (user, product).
type CartStore interface {
	// Merge adds line.Quantity to an existing line, keeping its price snapshot, or
	// creates the line as given. It returns the resulting line.
	Merge(ctx context.Context, line domain.CartLine) (domain.CartLine, error)
	// Decrement removes up to qty units, deleting the line when nothing is left, and
	// returns how many units were actually removed.
	Decrement(ctx context.Context, userID, productID string, qty int) (int, error)
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
	// Clear deletes all of the user's lines and returns them as they were.
	Clear(ctx context.Context, userID string) ([]domain.CartLine, error)
}

// CheckoutEvents records a settled cart inside the checkout transaction.
type CheckoutEvents interface {
	CheckedOut(ctx context.Context, receipt domain.Receipt) error
}

// Stores are bound to one unit of work.
type Stores struct {
	Stock  StockLedger
	Carts  CartStore
	Events CheckoutEvents
}

type UnitOfWork interface {
	// WithinTx commits every mutation made through the given stores when fn returns
	// nil and discards all of them otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
	Read(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type NopEvents struct{}

func (NopEvents) CheckedOut(context.Context, domain.Receipt) error { return nil }
