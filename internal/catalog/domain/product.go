package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Money struct {
	Currency string
	Amount   int64
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2) + " " + m.Currency
}

type Product struct {
	ID          string
	Name        string
	Price       Money
	Description string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var ErrBadPrice = errors.New("price must be positive with at most two decimals")

// PriceFromDecimal converts a major-unit price such as 19.99 into minor units.
func PriceFromDecimal(d decimal.Decimal, currency string) (Money, error) {
	if !d.IsPositive() {
		return Money{}, ErrBadPrice
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return Money{}, ErrBadPrice
	}
	return Money{Currency: strings.ToUpper(strings.TrimSpace(currency)), Amount: cents.IntPart()}, nil
}

func ParsePrice(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, ErrBadPrice
	}
	return PriceFromDecimal(d, currency)
}

var productNamespace = uuid.MustParse("6f1c1f7e-3c1e-4a53-9d0b-0c1f4a8f9e21")

// StableID maps an external key (a seed name or a remote catalog id) to the same
// product id every time. Keys that already are UUIDs are kept.
func StableID(key string) string {
	key = strings.TrimSpace(key)
	if id, err := uuid.Parse(key); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(productNamespace, []byte(key)).String()
}
