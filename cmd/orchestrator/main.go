package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/bus"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/config"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/httpapi"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/logging"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/orchestrator"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/sagastore"
)

// connectAttempts bounds the retry loop a service binary runs against
// dependencies that may still be starting up (e.g. under
// docker-compose), mirroring the teacher's bootstrap retry loop.
const connectAttempts = 10

func main() {
	log := logging.New("orchestrator")
	log.Info().Msg("starting orchestrator")

	cfg, err := config.Load("orchestrator")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db := connectDB(cfg.DatabaseURL, log)
	defer db.Close()

	client := connectBus(cfg.KafkaBrokers, log)
	defer client.Close()

	store := sagastore.NewPostgresStore(db)
	orch := orchestrator.New(store, client, log)
	orch.SetReplyTopic(cfg.ReplyTopic)

	handler := httpapi.NewHandler(orch, log)
	server := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: handler.Routes()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Info().Msg("starting reply consumer")
		if err := orch.Run(ctx, client); err != nil {
			log.Error().Err(err).Msg("reply consumer stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
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
