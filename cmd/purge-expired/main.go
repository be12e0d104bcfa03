// Command purge-expired deletes unpaid holds that lapsed long ago.  Expired
// holds stop blocking seats the moment they expire; this only keeps the
// bookings table from growing without bound.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/logging"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

func main() {
	olderThan := flag.Duration("older-than", 24*time.Hour, "delete holds that expired more than this long ago")
	flag.Parse()

	cfg := config.Load()
	log := logging.Must(cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.StorageDriver != config.DriverMySQL {
		log.Fatal("purge-expired requires the mysql storage driver", zap.String("driver", cfg.StorageDriver))
	}
	if *olderThan < 0 {
		log.Fatal("older-than must not be negative", zap.Duration("older_than", *olderThan))
	}

	db, err := database.Open(database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-*olderThan)
	n, err := repository.NewBookingRepo(db).PurgeExpired(ctx, cutoff)
	if err != nil {
		log.Fatal("purge failed", zap.Error(err))
	}
	log.Info("purged expired holds", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
}
