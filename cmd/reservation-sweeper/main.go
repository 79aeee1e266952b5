package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	checkoutdb "ms-checkout/internal/checkout/db"
	"ms-checkout/internal/config"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/sweeper"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger("reservation-sweeper")
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", "Failed to connect to Postgres: "+err.Error())
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	store := &checkoutdb.DB{Bun: bunDB}

	s := sweeper.New(store, cfg.Sweeper.Interval, cfg.Sweeper.Grace, log)

	// One sweep up front so a crash-looping deployment still reclaims
	// leaked reservations promptly.
	if _, err := s.SweepOnce(ctx); err != nil {
		log.Error("SWEEPER", err.Error())
	}

	s.Run(ctx)
}
