package grpc

import (
	"time"

	"github.com/dwikikusuma/minishop/internal/cart/domain"
)

type AddToCartRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCartRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCartResponse struct {
	Removed int `json:"removed"`
}

type UserRequest struct {
	UserID string `json:"user_id"`
}

type StockRequest struct {
	ProductID string `json:"product_id"`
}

type StockResponse struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
}

type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

type Line struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	LineTotal   Money  `json:"line_total"`
}

type Cart struct {
	UserID     string `json:"user_id"`
	Lines      []Line `json:"lines"`
	GrandTotal Money  `json:"grand_total"`
}

type Receipt struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Lines        []Line `json:"lines"`
	Total        Money  `json:"total"`
	CheckedOutAt int64  `json:"checked_out_at_unix"`
}

func toMoney(m domain.Money) Money {
	return Money{Currency: m.Currency, Amount: m.Amount}
}

func toLines(in []domain.ViewLine) []Line {
	out := make([]Line, 0, len(in))
	for _, l := range in {
		out = append(out, Line{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   toMoney(l.UnitPrice),
			LineTotal:   toMoney(l.LineTotal),
		})
	}
	return out
}

func toCart(v domain.CartView) *Cart {
	return &Cart{UserID: v.UserID, Lines: toLines(v.Lines), GrandTotal: toMoney(v.GrandTotal)}
}

func toReceipt(r domain.Receipt) *Receipt {
	return &Receipt{
		ID:           r.ID,
		UserID:       r.UserID,
		Lines:        toLines(r.Lines),
		Total:        toMoney(r.Total),
		CheckedOutAt: r.CheckedOutAt.Unix(),
	}
}

// CheckedOutTime converts the wire timestamp back.
func (r *Receipt) CheckedOutTime() time.Time {
	return time.Unix(r.CheckedOutAt, 0).UTC()
}
