package app

import (
	"context"

	"github.com/dwikikusuma/minishop/internal/catalog/domain"
)

type ProductRepo interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error)
	// All returns every product ordered by name, then id.
	All(ctx context.Context) ([]domain.Product, error)
	// Upsert inserts p with its stock, or refreshes name, description and price of
	// the existing product with the same id, leaving its stock alone.
	Upsert(ctx context.Context, p domain.Product) (created bool, err error)
}

// CatalogSource supplies the purchasable products in a stable order. On failure it
// returns an empty slice together with the error.
type CatalogSource interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}
