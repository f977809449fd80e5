package domain

import "time"

const EventCheckedOut = "cart.checked_out"

type CheckedOutLine struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
	LineAmount  int64  `json:"line_amount"`
}

// CheckedOutEvent is the outbox payload written by Checkout.
type CheckedOutEvent struct {
	Type         string           `json:"type"`
	ReceiptID    string           `json:"receipt_id"`
	UserID       string           `json:"user_id"`
	Currency     string           `json:"currency"`
	TotalAmount  int64            `json:"total_amount"`
	Lines        []CheckedOutLine `json:"lines"`
	CheckedOutAt time.Time        `json:"checked_out_at"`
}

func NewCheckedOutEvent(r Receipt) CheckedOutEvent {
	lines := make([]CheckedOutLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, CheckedOutLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitAmount:  l.UnitPrice.Amount,
			LineAmount:  l.LineTotal.Amount,
		})
	}
	return CheckedOutEvent{
		Type:         EventCheckedOut,
		ReceiptID:    r.ID,
		UserID:       r.UserID,
		Currency:     r.Total.Currency,
		TotalAmount:  r.Total.Amount,
		Lines:        lines,
		CheckedOutAt: r.CheckedOutAt,
	}
}
