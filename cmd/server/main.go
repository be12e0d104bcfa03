package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/logging"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
)

func main() {
	cfg := config.Load()
	log := logging.Must(cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store  repository.Store
		users  repository.UserStore
		pinger handler.Pinger
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		mem := repository.NewMemoryStore()
		seedDemo(mem)
		store, users = mem, mem
		log.Warn("using in-memory storage; data is lost on restart")
	case config.DriverMySQL:
		db, err := openMySQL(ctx, cfg)
		if err != nil {
			log.Fatal("database init failed", zap.Error(err))
		}
		defer db.Close()
		store, users, pinger = repository.NewMySQLStore(db), repository.NewUserRepo(db), db
	default:
		log.Fatal("unknown storage driver", zap.String("driver", cfg.StorageDriver))
	}

	// Redis is optional; a nil client turns rate limiting and caching into
	// pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and seat map cache disabled")
	} else {
		defer rdb.Close()
	}
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	var publisher booking.Publisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		publisher = service.NewRabbitPublisher(cfg.AMQPURL, log)
		consumer := queue.NewConsumer(cfg.AMQPURL, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	svc := booking.NewService(store, cfg.Booking,
		booking.WithLogger(log),
		booking.WithPublisher(publisher),
		booking.WithInvalidator(middleware.NewCacheInvalidator(cacheCfg, rdb, router.SeatMapPath)),
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, pinger)
	router.RegisterAuth(e, handler.NewAuthHandler(users, cfg.JWTSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute, cfg.BcryptCost), cfg.JWTSecret)
	router.RegisterBooking(e, handler.NewBookingHandler(svc), router.BookingDeps{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.TokenBucket(rlCfg, rdb, log),
		SeatCache: middleware.RedisCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("storage", cfg.StorageDriver),
			zap.Duration("hold_duration", cfg.Booking.HoldDuration),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func openMySQL(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// seedDemo gives the memory driver one hall and two showtimes so the API
// is usable without a catalog.
func seedDemo(mem *repository.MemoryStore) {
	hall := mem.AddHall(model.Hall{
		Name:       "Зал 1",
		SchemeData: []byte(`{"rows":10,"cols":14,"screen":"top"}`),
	})
	start := time.Now().UTC().Truncate(time.Hour).Add(3 * time.Hour)
	mem.AddShowtime(model.Showtime{
		HallID:     hall.ID,
		MovieTitle: "Сталкер",
		StartTime:  start,
		EndTime:    start.Add(163 * time.Minute),
		Price:      decimal.RequireFromString("350.00"),
		Format:     model.Format2D,
	})
	mem.AddShowtime(model.Showtime{
		HallID:     hall.ID,
		MovieTitle: "Солярис",
		StartTime:  start.Add(4 * time.Hour),
		EndTime:    start.Add(4*time.Hour + 167*time.Minute),
		Price:      decimal.RequireFromString("420.00"),
		Format:     model.Format2D,
	})
}
