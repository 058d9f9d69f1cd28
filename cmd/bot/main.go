package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg_calendar_bot/internal/config"
	"tg_calendar_bot/internal/dispatch"
	"tg_calendar_bot/internal/domain"
	"tg_calendar_bot/internal/health"
	"tg_calendar_bot/internal/logging"
	"tg_calendar_bot/internal/poller"
	"tg_calendar_bot/internal/scheduler"
	"tg_calendar_bot/internal/store"
	"tg_calendar_bot/internal/telegram"
	"tg_calendar_bot/internal/translator"
)

const (
	mongoConnectTimeout    = 10 * time.Second
	mongoIndexTimeout      = 5 * time.Second
	mongoDisconnectTimeout = 5 * time.Second
	commandsTimeout        = 10 * time.Second
	healthShutdownTimeout  = 5 * time.Second
	pollerShutdownTimeout  = 10 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	userRepository := domain.NewUserRepository(mongoManager.Users())
	eventRepository := domain.NewEventRepository(mongoManager.Events(), domain.NewSequence(mongoManager.Counters()))
	botStore := domain.NewStore(userRepository, eventRepository)
	statsProvider := store.NewStatsProvider(mongoManager.Users(), mongoManager.Events())

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(logger)}
	if cfg.OpenRouterAPIKey != "" {
		llmClient, err := translator.NewClient(cfg.OpenRouterAPIKey,
			translator.WithModel(cfg.OpenRouterModel),
			translator.WithLogger(logger),
		)
		if err != nil {
			logger.WithError(err).Error("translator setup error")
			fmt.Fprintf(os.Stderr, "translator setup error: %v\n", err)
			os.Exit(1)
		}
		dispatchOpts = append(dispatchOpts, dispatch.WithTranslator(llmClient))
	} else {
		logger.WithField("event", "translator_disabled").Warn("OPENROUTER_API_KEY not set, free-text messages will be rejected")
	}

	dispatcher := dispatch.New(botStore, cfg.BotSecret, dispatchOpts...)

	tgClient, err := telegram.NewClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	commandsCtx, cancelCommands := context.WithTimeout(context.Background(), commandsTimeout)
	if err := tgClient.RegisterCommands(commandsCtx); err != nil {
		logger.WithError(err).Warn("command registration failed")
	}
	cancelCommands()

	updateHandler := telegram.NewHandler(userRepository, dispatcher, tgClient, logger)
	updatePoller := poller.New(tgClient, updateHandler.HandleUpdate, poller.WithLogger(logger))

	digestScheduler, err := scheduler.New(cfg.DigestTimezone, logger)
	if err != nil {
		logger.WithError(err).Error("scheduler setup error")
		fmt.Fprintf(os.Stderr, "scheduler setup error: %v\n", err)
		os.Exit(1)
	}

	healthServer := health.NewServer(cfg.HTTPPort, mongoManager, statsProvider, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	if err := digestScheduler.Start(); err != nil {
		logger.WithError(err).Error("scheduler start error")
		fmt.Fprintf(os.Stderr, "scheduler start error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "bot_ready").Info("bot initialized, starting update polling")

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	pollDone := make(chan struct{})

	go func() {
		updatePoller.Run(pollCtx)
		close(pollDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping update polling")
	case <-pollDone:
		logger.WithField("event", "poller_stopped_early").Warn("update poller stopped before shutdown signal")
	}

	cancelPoll()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), pollerShutdownTimeout)
	select {
	case <-pollDone:
	case <-waitCtx.Done():
		logger.WithField("event", "poller_shutdown_timeout").Warn("timed out waiting for update poller to stop")
	}
	cancelWait()

	digestScheduler.Stop()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
