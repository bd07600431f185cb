package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-service/chat"
	"chat-service/config"
	"chat-service/controller"
	"chat-service/database"
	"chat-service/event"
	"chat-service/event/listener"
	"chat-service/logger"
	"chat-service/metrics"
	"chat-service/notification"
	"chat-service/push"
	"chat-service/repository"
	"chat-service/router"
	"chat-service/socketio"
	"chat-service/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat-service: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat-service: init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	shutdownTracing := telemetry.Init(ctx, cfg, log)

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("open database", "error", err)
	}
	rdb, err := database.Redis(ctx, cfg, log)
	if err != nil {
		log.Fatal("connect redis", "error", err)
	}
	enforcer, err := database.Casbin(db, cfg.RBACModelPath)
	if err != nil {
		log.Fatal("init casbin", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	users := repository.NewUserRepo(db)

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               telemetry.ServiceName,
	})
	rest.Use(cors.New())

	auth := socketio.NewAuthenticator(cfg.JWTAccessKey, users, cfg.EventTimeout, log)
	server := socketio.Init(ctx, rest, cfg, rdb, auth)
	sessions := socketio.NewRegistry(server, cfg.PresenceTimeout, log)

	relay := notification.NewRelay(repository.NewNotificationRepo(db), users, sessions, log, m)

	var pusher push.Sender = push.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := push.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaPushTopic, log)
		defer kafka.Close()
		pusher = kafka
	}

	var (
		broker    *event.Broker
		publisher chat.Publisher
	)
	if cfg.RabbitMQEnabled {
		broker, err = event.Connect(cfg.RabbitMQURL(), []string{
			// Connect to queues
			cfg.NotificationQueue,
			cfg.ChatEventsQueue,
		}, log)
		if err != nil {
			log.Fatal("connect rabbitmq", "error", err)
		}
		publisher = broker
	}

	chats := chat.NewService(chat.Deps{
		Chats:          repository.NewChatRepo(db),
		Messages:       repository.NewMessageRepo(db),
		Reactions:      repository.NewReactionRepo(db),
		Users:          users,
		Bookings:       repository.NewBookingRepo(db),
		Registry:       sessions,
		Notifier:       relay,
		Push:           pusher,
		Events:         publisher,
		EventsQueue:    cfg.ChatEventsQueue,
		Log:            log,
		Metrics:        m,
		PrimaryAdminID: cfg.PrimaryAdminID,
		DefaultAvatar:  cfg.DefaultAvatar,
	})

	if broker != nil {
		// Run notification listener
		events := make(chan event.EventChannelData)
		go listener.NewNotifications(relay, cfg.EventTimeout, log).Run(ctx, events)

		if err := broker.Subscribe(ctx, cfg.NotificationQueue, events); err != nil {
			log.Fatal("subscribe notifications", "error", err)
		}
	}

	router.Rest(rest, router.RestDeps{
		JWTKey:        cfg.JWTAccessKey,
		Enforcer:      enforcer,
		Users:         users,
		Gatherer:      registry,
		Health:        controller.NewHealth(db, rdb),
		Notifications: controller.NewNotification(relay, log),
		User:          controller.NewUser(chats, log),
	})
	router.Socket(server, router.NewDispatcher(router.Options{
		Chats:         chats,
		Notifications: relay,
		Users:         users,
		Policy:        enforcer,
		Log:           log,
		Metrics:       m,
		Timeout:       cfg.EventTimeout,
		RateLimit:     cfg.SocketRateLimit,
		RateBurst:     cfg.SocketRateBurst,
	}))

	go func() {
		if err := rest.Listen(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
			log.Error("http server stopped", "error", err)
			stop()
		}
	}()
	log.Info("chat service started", "port", cfg.ServerPort, "db", cfg.DBDriver)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	server.Close(nil)
	if err := rest.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if broker != nil {
		if err := broker.Close(); err != nil {
			log.Warn("close rabbitmq", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", "error", err)
	}
	if err := rdb.Close(); err != nil {
		log.Warn("close redis", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
