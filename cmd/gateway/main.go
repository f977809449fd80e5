// Command gateway exposes the cart over HTTP/JSON by calling shopd's gRPC service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	cartgrpc "github.com/dwikikusuma/minishop/internal/cart/grpc"
	"github.com/dwikikusuma/minishop/pkg/config"
	"github.com/dwikikusuma/minishop/pkg/logger"
	"github.com/dwikikusuma/minishop/pkg/metrics"
	"github.com/dwikikusuma/minishop/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		Service:   "gateway",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
		File:      cfg.LogFile,
	})
	defer func() { _ = log.Sync() }()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	conn, err := grpc.NewClient(cfg.Upstream, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Error("dial upstream failed", zap.String("upstream", cfg.Upstream), zap.Error(err))
		os.Exit(1)
	}
	defer conn.Close()

	e := newServer(cartgrpc.NewClient(conn), func() bool {
		conn.Connect()
		return conn.GetState() != connectivity.TransientFailure && conn.GetState() != connectivity.Shutdown
	}, log)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	go func() {
		log.Info("http server starting", zap.String("addr", addr), zap.String("upstream", cfg.Upstream))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	if err := shutdown.Within(10*time.Second, e.Shutdown, func() { _ = e.Close() }); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	log.Info("bye")
}

func newServer(cart cartAPI, ready func() bool, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("minishop_gateway"))

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/readyz", func(c echo.Context) error {
		if !ready() {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	registerRoutes(e, cart, log)
	return e
}
