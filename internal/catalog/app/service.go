package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dwikikusuma/minishop/internal/catalog/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo         ProductRepo
	log          *zap.Logger
	defaultStock int
	currency     string
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithDefaultStock sets the stock given to products first seen in a remote import.
func WithDefaultStock(n int) Option {
	return func(s *Service) { s.defaultStock = n }
}

func WithCurrency(c string) Option {
	return func(s *Service) { s.currency = c }
}

func NewService(repo ProductRepo, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		log:      zap.NewNop(),
		currency: "USD",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateProduct(ctx context.Context, name, desc, currency string, amount int64, stock int) (domain.Product, error) {
	name = strings.TrimSpace(name)
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if name == "" || currency == "" || amount <= 0 || stock < 0 {
		return domain.Product{}, ErrInvalidInput
	}

	p := domain.Product{
		Name:        name,
		Description: desc,
		Price: domain.Money{
			Currency: currency,
			Amount:   amount,
		},
		Stock: stock,
	}

	product, err := s.repo.Create(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, query, limit, cursor)
}

// FetchProducts makes the local table a CatalogSource.
func (s *Service) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.All(ctx)
	if err != nil {
		return []domain.Product{}, fmt.Errorf("fetch local catalog: %w", err)
	}
	return products, nil
}

type ImportResult struct {
	Created int
	Updated int
}

// ImportRemote copies a source's products into the local table. New products start
// with the default stock; known ones only get their name and price refreshed.
func (s *Service) ImportRemote(ctx context.Context, src CatalogSource) (ImportResult, error) {
	products, err := src.FetchProducts(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for _, p := range products {
		p.Stock = s.defaultStock
		if p.Price.Currency == "" {
			p.Price.Currency = s.currency
		}
		if err := s.upsert(ctx, p, &res); err != nil {
			return res, err
		}
	}

	s.log.Info("catalog imported", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}

// Seed applies seed items. Running it twice leaves the table as after the first run,
// apart from refreshed prices and names.
func (s *Service) Seed(ctx context.Context, items []SeedItem) (ImportResult, error) {
	var res ImportResult
	for i, it := range items {
		p, err := it.product(s.currency)
		if err != nil {
			return res, fmt.Errorf("seed item %d (%q): %w", i+1, it.Name, err)
		}
		if err := s.upsert(ctx, p, &res); err != nil {
			return res, err
		}
	}

	s.log.Info("catalog seeded", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}

func (s *Service) upsert(ctx context.Context, p domain.Product, res *ImportResult) error {
	if strings.TrimSpace(p.Name) == "" || p.Price.Amount <= 0 || p.Stock < 0 {
		return fmt.Errorf("product %q: %w", p.ID, ErrInvalidInput)
	}

	created, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", p.ID, err)
	}
	if created {
		res.Created++
	} else {
		res.Updated++
	}
	return nil
}
