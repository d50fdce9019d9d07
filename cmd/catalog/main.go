package main // catalog service entry point

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/ticket-booking/internal/config"
	"github.com/iliyamo/ticket-booking/internal/database"
	"github.com/iliyamo/ticket-booking/internal/handler"
	"github.com/iliyamo/ticket-booking/internal/middleware"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
	"github.com/iliyamo/ticket-booking/internal/router"
	"github.com/iliyamo/ticket-booking/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadCatalog()
	config.SetupLogger("catalog", cfg.LogLevel, cfg.Env)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("catalog: stopped with error")
	}
	log.Info().Msg("catalog: stopped")
}

// run owns every resource of the process; it returns instead of exiting so
// the deferred closes always happen.
func run(cfg config.CatalogConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return errors.Wrap(err, "mysql: connect failed")
	}
	defer db.Close()
	if err := database.EnsureCatalogSchema(ctx, db); err != nil {
		return errors.Wrap(err, "mysql: schema bootstrap failed")
	}

	deps := map[string]handler.Pinger{"mysql": db}

	// The response cache is optional here: the catalog answers from MySQL
	// when Redis is down.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), nil)
	if rdb, err := config.NewRedisClient(ctx); err != nil {
		log.Warn().Err(err).Msg("redis: unavailable, catalog responses will not be cached")
	} else {
		defer rdb.Close()
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	svc := service.NewCatalogService(repository.NewCatalogRepo(db))
	consumer := queue.NewConsumer(config.LoadBrokerConfig(), svc.Apply)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	router.RegisterRoutes(e, deps)
	router.RegisterCatalog(e, handler.NewCatalogHandler(svc), cfg.JWTSecret, cache)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("catalog: listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
