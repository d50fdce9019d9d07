package main // booking service entry point

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

	"github.com/iliyamo/ticket-booking/internal/client"
	"github.com/iliyamo/ticket-booking/internal/config"
	"github.com/iliyamo/ticket-booking/internal/database"
	"github.com/iliyamo/ticket-booking/internal/handler"
	"github.com/iliyamo/ticket-booking/internal/inventory"
	"github.com/iliyamo/ticket-booking/internal/middleware"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
	"github.com/iliyamo/ticket-booking/internal/router"
	"github.com/iliyamo/ticket-booking/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadBooking()
	config.SetupLogger("booking", cfg.LogLevel, cfg.Env)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("booking: stopped with error")
	}
	log.Info().Msg("booking: stopped")
}

// run owns every resource of the process; it returns instead of exiting so
// the deferred closes always happen.
func run(cfg config.BookingConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return errors.Wrap(err, "mysql: connect failed")
	}
	defer db.Close()
	if err := database.EnsureBookingSchema(ctx, db); err != nil {
		return errors.Wrap(err, "mysql: schema bootstrap failed")
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		return errors.Wrap(err, "redis: connect failed")
	}
	defer rdb.Close()

	// One broker connection for the life of the process.
	pub, err := queue.NewPublisher(config.LoadBrokerConfig(), cfg.PublishTimeout)
	if err != nil {
		return errors.Wrap(err, "rabbitmq: publisher setup failed")
	}
	defer pub.Close()

	svc := service.NewBookingService(
		repository.NewBookingRepo(db),
		client.NewCatalog(cfg.CatalogURL, cfg.CatalogTimeout),
		inventory.NewCache(rdb, cfg.CacheTimeout),
		pub,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	router.RegisterRoutes(e, map[string]handler.Pinger{
		"mysql":    db,
		"redis":    handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		"rabbitmq": pub,
	})
	router.RegisterBooking(e, handler.NewBookingHandler(svc), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("booking: listening")
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
