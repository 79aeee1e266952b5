package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-checkout/internal/auth"
	"ms-checkout/internal/checkout"
	"ms-checkout/internal/checkout/api"
	"ms-checkout/internal/checkout/bigcommerce"
	checkoutdb "ms-checkout/internal/checkout/db"
	checkoutkafka "ms-checkout/internal/checkout/kafka"
	"ms-checkout/internal/checkout/payment"
	rediswrap "ms-checkout/internal/checkout/redis"
	"ms-checkout/internal/config"
	"ms-checkout/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger("checkout-service")
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", "Failed to connect to Postgres: "+err.Error())
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	checkoutdb.Migrate(bunDB)

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", "Failed to connect to Redis: "+err.Error())
	}

	// --- Dependencies ---
	store := &checkoutdb.DB{Bun: bunDB}
	guard := rediswrap.NewRedis(redisClient, cfg.Redis.CartLockTTL)
	commerce := bigcommerce.NewClient(&http.Client{Timeout: cfg.BigCommerce.Timeout}, cfg.BigCommerce, log)
	gateway := payment.NewStripeGateway(cfg.Stripe, log)

	var events checkout.EventPublisher
	if cfg.Kafka.Enabled {
		producer := checkoutkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderCompleted)
		defer producer.Close()
		events = producer
	}

	service := checkout.NewService(store, commerce, gateway, guard, events, log)
	handler := &api.Handler{Service: service}
	cartHandler := &api.CartHandler{Carts: commerce}

	// --- Router ---
	r := chi.NewRouter()
	r.Get("/healthz", handler.Health)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.JWTSecret))

		r.Post("/api/v1/orders", handler.CreateOrder)
		r.Get("/api/v1/orders/{orderId}", handler.GetOrder)
		r.Get("/api/v1/users/me/orders", handler.GetMyOrders)

		r.Get("/api/v1/checkouts/{cartId}", cartHandler.GetCheckout)
		r.Post("/api/v1/carts/{cartId}/items", cartHandler.AddItems)
		r.Put("/api/v1/carts/{cartId}/items/{itemId}", cartHandler.UpdateItem)
		r.Delete("/api/v1/carts/{cartId}/items/{itemId}", cartHandler.RemoveItem)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Checkout service running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "HTTP server error: "+err.Error())
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", "Server forced to shutdown: "+err.Error())
	}

	log.Info("SERVER", "Server exited gracefully")
}
