// Package bootstrap wires the services over the configured store so both binaries
// start the same way.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	accountapp "github.com/dwikikusuma/minishop/internal/account/app"
	accountmem "github.com/dwikikusuma/minishop/internal/account/infra/memory"
	accountpg "github.com/dwikikusuma/minishop/internal/account/infra/postgres"
	cartapp "github.com/dwikikusuma/minishop/internal/cart/app"
	cartmem "github.com/dwikikusuma/minishop/internal/cart/infra/memory"
	cartpg "github.com/dwikikusuma/minishop/internal/cart/infra/postgres"
	catalogapp "github.com/dwikikusuma/minishop/internal/catalog/app"
	catalogmem "github.com/dwikikusuma/minishop/internal/catalog/infra/memory"
	catalogpg "github.com/dwikikusuma/minishop/internal/catalog/infra/postgres"
	"github.com/dwikikusuma/minishop/internal/catalog/infra/remote"
	"github.com/dwikikusuma/minishop/internal/memstore"
	"github.com/dwikikusuma/minishop/pkg/config"
	"github.com/dwikikusuma/minishop/pkg/kafka"
	"github.com/dwikikusuma/minishop/pkg/metrics"
	"github.com/dwikikusuma/minishop/pkg/postgres"
)

type counter interface {
	Count(ctx context.Context) (int, error)
}

type Backend struct {
	Accounts *accountapp.Service
	Catalog  *catalogapp.Service
	Cart     *cartapp.Service

	// Pool is nil for the memory store.
	Pool *pgxpool.Pool
	// OutboxTopic is empty when checkout events are not recorded: always for the memory
	// store, and for Postgres unless Kafka brokers are configured.
	OutboxTopic string

	products counter
	// db is set for the memory store only.
	db       *memstore.DB
}

type Options struct {
	Log     *zap.Logger
	Metrics *metrics.CartMetrics
	Tracer  trace.Tracer
}

// Open connects the configured store, applies the schema, loads the seed file and,
// for a remote catalog, imports its products. A failed remote import is logged and
// the local table is used as is.
func Open(ctx context.Context, cfg config.Config, opts Options) (*Backend, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	b := &Backend{}

	var (
		products catalogapp.ProductRepo
		users    accountapp.UserRepo
		uow      cartapp.UnitOfWork
	)
	switch cfg.Store {
	case config.StoreMemory:
		db := memstore.New()
		b.db = db
		repo := catalogmem.NewProductRepo(db)
		products, b.products = repo, repo
		users = accountmem.NewUserRepo(db)
		// no relay drains the memory store, so checkout events are not kept
		uow = cartmem.NewUnitOfWork(db, "")
	case config.StorePostgres:
		pool, err := postgres.Open(ctx, postgres.Config{
			URL:      cfg.Database.URL,
			User:     cfg.Database.User,
			Pass:     cfg.Database.Password,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		b.Pool = pool
		if kafka.NewClient(cfg.Kafka.Brokers).Enabled() {
			b.OutboxTopic = cfg.Kafka.Topic
		}
		repo := catalogpg.NewProductRepo(pool)
		products, b.products = repo, repo
		users = accountpg.NewUserRepo(pool)
		uow = cartpg.NewUnitOfWork(pool, b.OutboxTopic)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	b.Accounts = accountapp.NewService(users, accountapp.WithLogger(log))
	b.Catalog = catalogapp.NewService(products,
		catalogapp.WithLogger(log),
		catalogapp.WithDefaultStock(cfg.Catalog.DefaultStock),
		catalogapp.WithCurrency(cfg.Currency),
	)

	cartOpts := []cartapp.Option{cartapp.WithLogger(log), cartapp.WithCurrency(cfg.Currency)}
	if opts.Metrics != nil {
		cartOpts = append(cartOpts, cartapp.WithMetrics(opts.Metrics))
	}
	if opts.Tracer != nil {
		cartOpts = append(cartOpts, cartapp.WithTracer(opts.Tracer))
	}
	b.Cart = cartapp.NewService(uow, cartOpts...)

	if cfg.SeedFile != "" {
		items, err := catalogapp.LoadSeedFile(cfg.SeedFile)
		if err == nil {
			_, err = b.Catalog.Seed(ctx, items)
		}
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	if cfg.Catalog.Source == config.CatalogRemote {
		src := remote.NewSource(cfg.Catalog.URL, cfg.Catalog.Timeout, cfg.Currency)
		if _, err := b.Catalog.ImportRemote(ctx, src); err != nil {
			log.Warn("remote catalog import failed, using local products", zap.String("url", cfg.Catalog.URL), zap.Error(err))
		}
	}

	return b, nil
}

// CountProducts backs the non-interactive health check.
func (b *Backend) CountProducts(ctx context.Context) (int, error) {
	return b.products.Count(ctx)
}

// Ping reports whether the store answers.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Pool == nil {
		return nil
	}
	return b.Pool.Ping(ctx)
}

func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}
