package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/dwikikusuma/minishop/internal/catalog/domain"
)

// SeedItem is one product in a seed file. Without an id the name is used as the
// stable key.
type SeedItem struct {
	ID          string `yaml:"id" csv:"id"`
	Name        string `yaml:"name" csv:"name"`
	Description string `yaml:"description" csv:"description"`
	Price       string `yaml:"price" csv:"price"`
	Currency    string `yaml:"currency" csv:"currency"`
	Stock       int    `yaml:"stock" csv:"stock"`
}

type seedFile struct {
	Currency string     `yaml:"currency"`
	Products []SeedItem `yaml:"products"`
}

func (it SeedItem) product(fallbackCurrency string) (domain.Product, error) {
	currency := it.Currency
	if strings.TrimSpace(currency) == "" {
		currency = fallbackCurrency
	}
	price, err := domain.ParsePrice(it.Price, currency)
	if err != nil {
		return domain.Product{}, err
	}

	key := it.ID
	if strings.TrimSpace(key) == "" {
		key = "seed:" + strings.ToLower(strings.TrimSpace(it.Name))
	}
	return domain.Product{
		ID:          domain.StableID(key),
		Name:        strings.TrimSpace(it.Name),
		Description: it.Description,
		Price:       price,
		Stock:       it.Stock,
	}, nil
}

// LoadSeedFile reads products from a .yaml/.yml or .csv file. A YAML file's
// top-level currency applies to items that name none.
func LoadSeedFile(path string) ([]SeedItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		var items []SeedItem
		if err := gocsv.UnmarshalBytes(raw, &items); err != nil {
			return nil, fmt.Errorf("parse seed csv: %w", err)
		}
		return items, nil
	case ".yaml", ".yml":
		var f seedFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse seed yaml: %w", err)
		}
		for i := range f.Products {
			if f.Products[i].Currency == "" {
				f.Products[i].Currency = f.Currency
			}
		}
		return f.Products, nil
	default:
		return nil, fmt.Errorf("seed file %s: unsupported extension", path)
	}
}
