package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/Saymum-GS/Awaken-DIU/internal/config"
	"github.com/Saymum-GS/Awaken-DIU/internal/events"
	"github.com/Saymum-GS/Awaken-DIU/internal/handler"
	"github.com/Saymum-GS/Awaken-DIU/internal/hub"
	"github.com/Saymum-GS/Awaken-DIU/internal/presence"
	"github.com/Saymum-GS/Awaken-DIU/internal/pubsub"
	"github.com/Saymum-GS/Awaken-DIU/internal/queue"
	"github.com/Saymum-GS/Awaken-DIU/internal/service"
	"github.com/Saymum-GS/Awaken-DIU/internal/store"
	pkgdb "github.com/Saymum-GS/Awaken-DIU/pkg/database"
	pkglog "github.com/Saymum-GS/Awaken-DIU/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "chat-engine"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat-engine")

	// Session store
	sessionStore, err := store.NewGormStore(&pkgdb.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		FilePath: cfg.Database.FilePath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}
	defer sessionStore.Close()

	// Queue policy
	policy, err := queue.ParsePolicy(cfg.Queue.Policy)
	if err != nil {
		logger.Fatal().Err(err).Str("policy", cfg.Queue.Policy).Msg("invalid queue policy")
	}

	// Hub
	h := hub.NewHub(cfg.WebSocket)
	go h.Run()

	// Kafka producer for session lifecycle events. Optional: the engine
	// runs without the event feed when Kafka is unavailable.
	var producer events.EventProducer = events.NopProducer{}
	if cfg.Kafka.Enabled {
		if kp, err := events.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions); err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, session events disabled")
		} else {
			producer = kp
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka producer started")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Redis Pub/Sub for multi-instance volunteer count sync. Optional too.
	var counts service.CountPublisher = service.NopCountPublisher{}
	var subscriber *pubsub.Subscriber
	if cfg.Redis.Enabled {
		if pub, err := pubsub.NewPublisher(pubsub.Config{
			Address:    cfg.Redis.Address,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Channel:    cfg.Redis.CountChannel,
			InstanceID: cfg.Server.InstanceID,
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to connect to redis, cross-instance counts disabled")
		} else {
			defer pub.Close()
			counts = pub
			subscriber = pubsub.NewSubscriber(pub.Client(), pub.Channel(), h, cfg.Server.InstanceID)
			go subscriber.Run(ctx)
		}
	}

	// Engine
	svc := service.NewChatService(
		presence.NewRegistry(),
		queue.New(policy),
		sessionStore,
		h,
		producer,
		counts,
	)

	// Handlers and routes
	wsHandler := handler.NewWSHandler(h, svc, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(svc)

	router := mux.NewRouter()
	handler.RegisterRoutes(router, wsHandler, httpHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      pkglog.HTTPMiddleware(logger)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("chat-engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat-engine")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		cancel() // 1. stop pub/sub subscriber
		if subscriber != nil {
			<-subscriber.Done() // 2. wait for its goroutine to exit
		}

		h.Stop() // 3. close all WS clients, stop Hub.Run()

		svc.Stop() // 4. flush and close the event producer

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("chat-engine stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
