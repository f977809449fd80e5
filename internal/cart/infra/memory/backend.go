// Package memory implements the cart ports over memstore. One transaction holds the
// store lock for its whole duration, so reserve is a compare-and-decrement by
// construction, and a failed transaction is undone from the journal.
package memory

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/dwikikusuma/minishop/internal/cart/app"
	"github.com/dwikikusuma/minishop/internal/cart/domain"
	"github.com/dwikikusuma/minishop/internal/memstore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type UnitOfWork struct {
	db    *memstore.DB
	topic string
}

// NewUnitOfWork records checkout events under topic; an empty topic disables them.
func NewUnitOfWork(db *memstore.DB, topic string) *UnitOfWork {
	return &UnitOfWork{db: db, topic: topic}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s app.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.db.Update(func(tx *memstore.Tx) error {
		return fn(ctx, u.stores(tx))
	})
}

func (u *UnitOfWork) Read(ctx context.Context, fn func(ctx context.Context, s app.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.db.View(func(tx *memstore.Tx) error {
		return fn(ctx, u.stores(tx))
	})
}

func (u *UnitOfWork) stores(tx *memstore.Tx) app.Stores {
	s := app.Stores{
		Stock:  &StockLedger{tx: tx},
		Carts:  &CartStore{tx: tx},
		Events: app.NopEvents{},
	}
	if u.topic != "" {
		s.Events = &Events{tx: tx, topic: u.topic}
	}
	return s
}

type StockLedger struct {
	tx *memstore.Tx
}

func (l *StockLedger) Reserve(_ context.Context, productID string, qty int) (domain.Reservation, error) {
	p, ok := l.tx.Product(productID)
	if !ok {
		return domain.Reservation{}, domain.ErrProductNotFound
	}
	if p.Stock < qty {
		return domain.Reservation{}, domain.ErrInsufficientStock
	}

	p.Stock -= qty
	if err := l.tx.PutProduct(p); err != nil {
		return domain.Reservation{}, domain.Unavailable("reserve", err)
	}
	return domain.Reservation{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   domain.Money{Currency: p.Currency, Amount: p.PriceAmount},
		Remaining:   p.Stock,
	}, nil
}

func (l *StockLedger) Release(_ context.Context, productID string, qty int) error {
	p, ok := l.tx.Product(productID)
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += qty
	return domain.Unavailable("release", l.tx.PutProduct(p))
}

func (l *StockLedger) Query(_ context.Context, productID string) (int, error) {
	p, ok := l.tx.Product(productID)
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return p.Stock, nil
}

type CartStore struct {
	tx *memstore.Tx
}

func (s *CartStore) Merge(_ context.Context, line domain.CartLine) (domain.CartLine, error) {
	row, ok := s.tx.Line(line.UserID, line.ProductID)
	if ok {
		row.Quantity += line.Quantity
	} else {
		row = memstore.CartLine{
			UserID:      line.UserID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitAmount:  line.UnitPrice.Amount,
			Currency:    line.UnitPrice.Currency,
		}
	}
	if err := s.tx.PutLine(row); err != nil {
		return domain.CartLine{}, domain.Unavailable("merge line", err)
	}

	stored, _ := s.tx.Line(line.UserID, line.ProductID)
	return toDomain(stored), nil
}

func (s *CartStore) Decrement(_ context.Context, userID, productID string, qty int) (int, error) {
	row, ok := s.tx.Line(userID, productID)
	if !ok {
		return 0, domain.ErrLineNotFound
	}

	removed := min(qty, row.Quantity)
	row.Quantity -= removed

	var err error
	if row.Quantity <= 0 {
		err = s.tx.DeleteLine(userID, productID)
	} else {
		err = s.tx.PutLine(row)
	}
	if err != nil {
		return 0, domain.Unavailable("decrement line", err)
	}
	return removed, nil
}

func (s *CartStore) List(_ context.Context, userID string) ([]domain.CartLine, error) {
	rows := s.tx.Lines(userID)
	out := make([]domain.CartLine, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDomain(r))
	}
	return out, nil
}

func (s *CartStore) Clear(_ context.Context, userID string) ([]domain.CartLine, error) {
	rows := s.tx.Lines(userID)
	out := make([]domain.CartLine, 0, len(rows))
	for _, r := range rows {
		if err := s.tx.DeleteLine(userID, r.ProductID); err != nil {
			return nil, domain.Unavailable("clear cart", err)
		}
		out = append(out, toDomain(r))
	}
	return out, nil
}

type Events struct {
	tx    *memstore.Tx
	topic string
}

func (e *Events) CheckedOut(_ context.Context, r domain.Receipt) error {
	payload, err := json.Marshal(domain.NewCheckedOutEvent(r))
	if err != nil {
		return err
	}
	return e.tx.AppendEvent(memstore.Event{
		ID:      r.ID,
		Topic:   e.topic,
		Key:     r.UserID,
		Payload: payload,
	})
}

func toDomain(r memstore.CartLine) domain.CartLine {
	return domain.CartLine{
		UserID:      r.UserID,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Quantity:    r.Quantity,
		UnitPrice:   domain.Money{Currency: r.Currency, Amount: r.UnitAmount},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
