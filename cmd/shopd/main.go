// Command shopd serves the cart and catalog over gRPC and exposes an admin HTTP
// surface with health, readiness, metrics and a product listing. When Kafka is
// configured it also relays checkout events from the outbox.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/dwikikusuma/minishop/internal/bootstrap"
	cartgrpc "github.com/dwikikusuma/minishop/internal/cart/grpc"
	cataloggrpc "github.com/dwikikusuma/minishop/internal/catalog/grpc"
	"github.com/dwikikusuma/minishop/pkg/config"
	"github.com/dwikikusuma/minishop/pkg/kafka"
	"github.com/dwikikusuma/minishop/pkg/logger"
	"github.com/dwikikusuma/minishop/pkg/metrics"
	"github.com/dwikikusuma/minishop/pkg/observability"
	"github.com/dwikikusuma/minishop/pkg/outbox"
	"github.com/dwikikusuma/minishop/pkg/shutdown"
)

const service = "shopd"

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shopd:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service:   service,
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
		File:      cfg.LogFile,
	})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("shopd stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, stopTracing, err := observability.SetupTracing(ctx, service, cfg.Otel.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown.Within(5*time.Second, stopTracing, nil); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	backend, err := bootstrap.Open(ctx, cfg, bootstrap.Options{
		Log:     log,
		Metrics: metrics.NewCartMetrics(nil),
		Tracer:  tp.Tracer("minishop/cart"),
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	grpcServer := grpc.NewServer()
	cartgrpc.Register(grpcServer, cartgrpc.NewServer(backend.Cart))
	cataloggrpc.Register(grpcServer, cataloggrpc.NewServer(backend.Catalog))

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}

	admin := newAdmin(backend, log)
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)

	sched, closeRelay, err := startRelay(cfg, backend, log)
	if err != nil {
		return err
	}
	defer closeRelay()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc starting", zap.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info("http starting", zap.String("addr", httpAddr))
		if err := admin.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		if sched != nil {
			<-sched.Stop().Done()
		}
		if err := shutdown.Within(10*time.Second, admin.Shutdown, func() { _ = admin.Close() }); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		err := shutdown.Within(10*time.Second, func(context.Context) error {
			grpcServer.GracefulStop()
			return nil
		}, grpcServer.Stop)
		if err != nil {
			log.Warn("graceful stop timeout, forced", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func newAdmin(backend *bootstrap.Backend, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("minishop_admin"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/readyz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := backend.Ping(ctx); err != nil {
			log.Warn("readiness failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/api/products", func(c echo.Context) error {
		products, err := backend.Catalog.FetchProducts(c.Request().Context())
		if err != nil {
			log.Error("fetch products failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "catalog unavailable"})
		}
		out := make([]echo.Map, 0, len(products))
		for _, p := range products {
			out = append(out, echo.Map{
				"id":       p.ID,
				"name":     p.Name,
				"price":    p.Price.Decimal().StringFixed(2),
				"stock":    p.Stock,
				"currency": p.Price.Currency,
			})
		}
		return c.JSON(http.StatusOK, out)
	})
	return e
}

// startRelay schedules the outbox relay. It returns a nil scheduler when checkout
// events are not recorded.
func startRelay(cfg config.Config, backend *bootstrap.Backend, log *zap.Logger) (*cron.Cron, func(), error) {
	if backend.Pool == nil || backend.OutboxTopic == "" {
		return nil, func() {}, nil
	}

	w, err := kafka.NewClient(cfg.Kafka.Brokers).NewWriter(backend.OutboxTopic)
	if err != nil {
		return nil, nil, err
	}
	pub := kafka.NewPublisher(w)
	relay := outbox.NewRelay(backend.Pool, pub, backend.OutboxTopic, 100, log)

	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = sched.AddFunc(cfg.Kafka.OutboxSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := relay.RunOnce(ctx)
		if err != nil {
			log.Error("outbox relay failed", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("outbox relayed", zap.Int("events", n), zap.String("topic", backend.OutboxTopic))
		}
	})
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("outbox schedule %q: %w", cfg.Kafka.OutboxSchedule, err)
	}
	sched.Start()

	return sched, func() {
		if err := pub.Close(); err != nil {
			log.Warn("kafka writer close", zap.Error(err))
		}
	}, nil
}
