// Package remote reads the product list from an external catalog service:
// GET {base}/products returning [{"id","name","price","currency"}].
package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/minishop/internal/catalog/domain"
)

type product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type Source struct {
	baseURL  string
	timeout  time.Duration
	currency string
}

func NewSource(baseURL string, timeout time.Duration, currency string) *Source {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Source{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		currency: currency,
	}
}

// FetchProducts keeps the remote order. Entries without a name or a valid positive
// price are skipped.
func (s *Source) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	var (
		body []product
		code int
	)
	err := gout.GET(s.baseURL + "/products").
		WithContext(ctx).
		SetTimeout(s.timeout).
		SetHeader(gout.H{"Accept": "application/json"}).
		BindJSON(&body).
		Code(&code).
		Do()
	if err != nil {
		return []domain.Product{}, fmt.Errorf("fetch remote catalog: %w", err)
	}
	if code != http.StatusOK {
		return []domain.Product{}, fmt.Errorf("fetch remote catalog: unexpected status %d", code)
	}

	out := make([]domain.Product, 0, len(body))
	for _, p := range body {
		name := strings.TrimSpace(p.Name)
		if name == "" || strings.TrimSpace(p.ID) == "" {
			continue
		}
		currency := p.Currency
		if strings.TrimSpace(currency) == "" {
			currency = s.currency
		}
		price, err := domain.PriceFromDecimal(p.Price, currency)
		if err != nil {
			continue
		}
		out = append(out, domain.Product{
			ID:    domain.StableID("remote:" + p.ID),
			Name:  name,
			Price: price,
		})
	}
	return out, nil
}
