package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/bus"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/config"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/idempotency"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/inventoryservice"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/logging"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/outbox"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/runtime"
)

const connectAttempts = 10

func main() {
	log := logging.New("inventory-service")
	log.Info().Msg("starting inventory service")

	cfg, err := config.Load("inventory")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db := connectDB(cfg.DatabaseURL, log)
	defer db.Close()

	client := connectBus(cfg.KafkaBrokers, log)
	defer client.Close()

	handlers := &inventoryservice.Handlers{
		Store:  inventoryservice.NewPostgresStore(db),
		Outbox: outbox.NewPostgresStore(db),
	}

	rt := &runtime.Runtime{
		ServiceName:  "inventory",
		CommandTopic: cfg.CommandTopic,
		Handlers:     handlers.HandlerSet(),
		Idempotency:  idempotency.NewPostgresStore(db),
		RunTx:        runtime.SQLXTxRunner(db),
		Producer:     client,
		ReplyTopic:   cfg.ReplyTopic,
		Log:          log,
	}

	pub := outbox.New(outbox.NewPostgresStore(db), client, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Info().Msg("starting outbox publisher")
		pub.Run(ctx)
	}()

	go func() {
		log.Info().Msg("starting command consumer")
		if err := rt.Run(ctx, client); err != nil {
			log.Error().Err(err).Msg("command consumer stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down")
	cancel()
}

func connectDB(dsn string, log zerolog.Logger) *sqlx.DB {
	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			log.Info().Msg("connected to postgres")
			return db
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max", connectAttempts).Msg("waiting for postgres")
		time.Sleep(2 * time.Second)
	}
	log.Fatal().Err(err).Msg("failed to connect to postgres")
	return nil
}

func connectBus(brokers []string, log zerolog.Logger) *bus.Client {
	var client *bus.Client
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		client, err = bus.NewClient(brokers, log)
		if err == nil {
			log.Info().Msg("connected to kafka")
			return client
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max", connectAttempts).Msg("waiting for kafka")
		time.Sleep(2 * time.Second)
	}
	log.Fatal().Err(err).Msg("failed to connect to kafka")
	return nil
}
