package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dwikikusuma/minishop/internal/catalog/app"
	"github.com/dwikikusuma/minishop/internal/catalog/domain"
	"github.com/dwikikusuma/minishop/internal/memstore"
)

type ProductRepo struct {
	db *memstore.DB
}

func NewProductRepo(db *memstore.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	p.ID = uuid.NewString()
	var out domain.Product
	err := r.db.Update(func(tx *memstore.Tx) error {
		if err := tx.PutProduct(toRow(p)); err != nil {
			return err
		}
		row, _ := tx.Product(p.ID)
		out = fromRow(row)
		return nil
	})
	return out, err
}

func (r *ProductRepo) Get(_ context.Context, id string) (domain.Product, error) {
	var out domain.Product
	err := r.db.View(func(tx *memstore.Tx) error {
		row, ok := tx.Product(id)
		if !ok {
			return app.ErrNotFound
		}
		out = fromRow(row)
		return nil
	})
	return out, err
}

func (r *ProductRepo) List(_ context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	all := r.snapshot()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	query = strings.ToLower(strings.TrimSpace(query))
	cursor = strings.TrimSpace(cursor)

	out := make([]domain.Product, 0, limit)
	for _, p := range all {
		if cursor != "" && p.ID <= cursor {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			return out, p.ID, nil
		}
	}
	return out, "", nil
}

func (r *ProductRepo) All(_ context.Context) ([]domain.Product, error) {
	all := r.snapshot()
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func (r *ProductRepo) Upsert(_ context.Context, p domain.Product) (bool, error) {
	var created bool
	err := r.db.Update(func(tx *memstore.Tx) error {
		row := toRow(p)
		if prev, ok := tx.Product(p.ID); ok {
			row.Stock = prev.Stock
		} else {
			created = true
		}
		return tx.PutProduct(row)
	})
	return created, err
}

func (r *ProductRepo) Count(_ context.Context) (int, error) {
	return len(r.snapshot()), nil
}

func (r *ProductRepo) snapshot() []domain.Product {
	var out []domain.Product
	_ = r.db.View(func(tx *memstore.Tx) error {
		rows := tx.Products()
		out = make([]domain.Product, 0, len(rows))
		for _, row := range rows {
			out = append(out, fromRow(row))
		}
		return nil
	})
	return out
}

func toRow(p domain.Product) memstore.Product {
	return memstore.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceAmount: p.Price.Amount,
		Currency:    p.Price.Currency,
		Stock:       p.Stock,
	}
}

func fromRow(row memstore.Product) domain.Product {
	return domain.Product{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Price:       domain.Money{Currency: row.Currency, Amount: row.PriceAmount},
		Stock:       row.Stock,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
