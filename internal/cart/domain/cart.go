package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents) of a currency.
type Money struct {
	Currency string
	Amount   int64
}

func (m Money) Times(qty int) Money {
	return Money{Currency: m.Currency, Amount: m.Amount * int64(qty)}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(2), m.Currency)
}

// CartLine is a reservation of Quantity units of one product for one user. The name
// and unit price are captured when the line is first created and never re-read.
type CartLine struct {
	UserID      string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (l CartLine) LineTotal() Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Reservation is what the stock ledger reports back after a successful reserve:
// the product's current name and price, read in the same atomic step.
type Reservation struct {
	ProductID   string
	ProductName string
	UnitPrice   Money
	Remaining   int
}

type ViewLine struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   Money
	LineTotal   Money
}

type CartView struct {
	UserID     string
	Lines      []ViewLine
	GrandTotal Money
}

func (v CartView) Empty() bool {
	return len(v.Lines) == 0
}

// Receipt is returned from checkout. It is not persisted as order history.
type Receipt struct {
	ID           string
	UserID       string
	Lines        []ViewLine
	Total        Money
	CheckedOutAt time.Time
}

// Summarize totals lines in their given order. The currency of the first line is
// used for the total; an empty slice yields a zero total in fallbackCurrency.
func Summarize(lines []CartLine, fallbackCurrency string) ([]ViewLine, Money) {
	total := Money{Currency: fallbackCurrency}
	if len(lines) > 0 {
		total.Currency = lines[0].UnitPrice.Currency
	}

	out := make([]ViewLine, 0, len(lines))
	for _, l := range lines {
		lt := l.LineTotal()
		out = append(out, ViewLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   lt,
		})
		total.Amount += lt.Amount
	}
	return out, total
}
