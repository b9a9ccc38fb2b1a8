package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/orderid"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/outbox"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/sequence"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[checkout-service] ", log.LstdFlags|log.Lmicroseconds)

	policy, err := checkout.ParsePolicy(cfg.ApportionPolicy)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("db migrate: %v", err)
		}
	}

	readDB, err := db.Open(ctx, cfg.ReadDSN)
	if err != nil {
		logger.Fatalf("read db connect: %v", err)
	}
	defer readDB.Close()

	seqRepo := sequence.NewRepository(pool)
	if _, err := orderid.Sync(ctx, pool, seqRepo, logger); err != nil {
		logger.Fatalf("sync order id counter: %v", err)
	}

	cartRepo := cart.NewPostgresRepository(pool, logger)
	stockRepo := inventory.NewPostgresRepository(pool)
	outboxStore := outbox.NewStore(pool)
	reg := metrics.NewRegistry()

	txm := checkout.NewPostgresTxManager(pool, seqRepo, order.NewPostgresRepository(pool), stockRepo, cartRepo, outboxStore)
	svc := checkout.NewService(cartRepo, catalog.NewPostgresRepository(pool), txm, checkout.Options{
		Policy:  policy,
		Timeout: cfg.CheckoutTimeout,
		Logger:  logger,
		Metrics: reg,
	})

	// --- notifications ---
	transport, err := newTransport(cfg, logger)
	if err != nil {
		logger.Fatalf("notification transport: %v", err)
	}
	publisher := events.NewPublisher(transport, seqRepo, events.PublisherOptions{})
	defer publisher.Close()

	relay := outbox.NewRelay(outboxStore, notify.OutboxHandlers(notify.NewEventDispatcher(publisher), logger), outbox.RelayConfig{
		PollInterval:    cfg.OutboxPollInterval,
		BatchSize:       cfg.OutboxBatchSize,
		MaxAttempts:     cfg.OutboxMaxAttempts,
		DispatchTimeout: cfg.NotifyTimeout,
	}, logger, reg)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(relayCtx)
	}()

	// --- HTTP ---
	h := httpapi.NewHandler(svc, relay, order.NewReader(readDB), stockRepo, logger)
	r := httpapi.NewRouter(h, reg)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	// Undelivered outbox records stay pending and are picked up on the next start.
	stopRelay()
	select {
	case <-relayDone:
	case <-shutdownCtx.Done():
		logger.Printf("outbox relay did not stop in time")
	}

	logger.Printf("shutdown complete")
}

func newTransport(cfg config.Config, logger *log.Logger) (events.Transport, error) {
	switch cfg.NotifyTransport {
	case "amqp":
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		t, err := events.NewAMQPTransport(conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return t, nil
	case "kafka":
		return events.NewKafkaTransport(cfg.KafkaBrokers)
	case "log":
		return events.LogTransport{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
	}
}
