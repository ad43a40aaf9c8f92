package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/events"
	"github.com/aryan0dhankhar/onboardhr/internal/featureflags"
	"github.com/aryan0dhankhar/onboardhr/internal/handler"
	"github.com/aryan0dhankhar/onboardhr/internal/infrastructure/kafka"
	"github.com/aryan0dhankhar/onboardhr/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/onboardhr/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/onboardhr/internal/notification"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/tracing"
	"github.com/aryan0dhankhar/onboardhr/internal/repository"
	"github.com/aryan0dhankhar/onboardhr/internal/security/audit"
	"github.com/aryan0dhankhar/onboardhr/internal/security/auth"
	"github.com/aryan0dhankhar/onboardhr/internal/security/ratelimit"
	"github.com/aryan0dhankhar/onboardhr/internal/service"
	"github.com/aryan0dhankhar/onboardhr/internal/worker"
	"github.com/aryan0dhankhar/onboardhr/pkg/config"
	"github.com/aryan0dhankhar/onboardhr/pkg/database"
)

type repositories struct {
	orgs      domain.OrganizationRepository
	admins    domain.AdminRepository
	employees domain.EmployeeRepository
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting OnboardHR server", slog.String("environment", cfg.Environment))
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using the development signing key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "onboardhr", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Storage
	healthChecks := map[string]handler.Pinger{}
	var repos repositories
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		store := repository.NewMemoryStore()
		repos = repositories{orgs: store.Organizations(), admins: store.Admins(), employees: store.Employees()}
	default:
		pool, err := database.NewConnectionPool(ctx, &cfg.Database, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.MigrateOnStart {
			if err := database.Migrate(pool.GetDB(), log); err != nil {
				log.Error("failed to run migrations", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
		db := pool.GetDB()
		repos = repositories{
			orgs:      repository.NewPostgresOrganizationRepository(db, log),
			admins:    repository.NewPostgresAdminRepository(db, log),
			employees: repository.NewPostgresEmployeeRepository(db, log),
		}
		healthChecks["database"] = handler.PingFunc(pool.Health)
	}

	// 4. Rate limiting; Redis shares login throttling across instances when configured
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer rateLimiter.Stop()

	var throttle ratelimit.Throttle = ratelimit.NewMemoryThrottle(rateLimiter, cfg.LoginRateLimit, time.Minute)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		throttle = ratelimit.NewRedisThrottle(redisClient, "onboardhr:throttle", cfg.LoginRateLimit, time.Minute, log)
		healthChecks["redis"] = redisClient
	}

	// 5. Invitation delivery
	notifier, closeNotifier, err := newNotifier(cfg, log)
	if err != nil {
		log.Error("failed to initialize notifier", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeNotifier()

	dispatcher := worker.NewNotificationDispatcher(notifier, worker.DispatcherConfig{
		Workers:   cfg.NotificationWorkers,
		QueueSize: cfg.NotificationQueueSize,
	}, log)
	dispatcher.Start(ctx)

	// 6. Lifecycle event sinks
	hub := events.NewHub(log)
	sinks := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer publisher.Close()
		sinks = append(sinks, publisher)
		log.Info("kafka event sink enabled", slog.String("topic", cfg.KafkaTopic))
	}

	// 7. Services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	auditLogger := audit.NewLogger(log)
	flags := featureflags.Load()

	authService := service.NewAuthService(repos.orgs, repos.admins, repos.employees, tokenManager, hasher, auditLogger, log)
	employeeService := service.NewEmployeeService(
		repos.employees,
		repos.orgs,
		tokenManager,
		hasher,
		dispatcher,
		sinks,
		auditLogger,
		service.EmployeeServiceConfig{
			InvitationTTL:           cfg.InvitationTTL,
			FrontendURL:             cfg.FrontendURL,
			StrictStatusTransitions: flags.StrictStatusTransitions,
		},
		log,
	)
	orgService := service.NewOrganizationService(repos.orgs, log)

	// 8. HTTP routes
	router := handler.NewRouter(handler.RouterConfig{
		AuthService:         authService,
		EmployeeService:     employeeService,
		OrganizationService: orgService,
		Hub:                 hub,
		AuditLogger:         auditLogger,
		Limiter:             rateLimiter,
		Throttle:            throttle,
		HealthChecks:        healthChecks,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
		TrustedProxies:      cfg.TrustedProxies,
		Logger:              log,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           otelhttp.NewHandler(router, "onboardhr"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
		slog.String("notifier", notifier.Name()),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Int("login_rate_limit", cfg.LoginRateLimit),
		slog.Bool("strict_status_transitions", flags.StrictStatusTransitions),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	// Flush queued invitations before the notifier is closed
	dispatcher.Stop()
	cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// newNotifier builds the configured invitation channel and its cleanup
func newNotifier(cfg *config.Config, log *slog.Logger) (domain.Notifier, func(), error) {
	switch cfg.Notifier {
	case config.NotifierSMTP:
		n, err := notification.NewSMTPNotifier(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return n, func() {}, nil
	case config.NotifierAMQP:
		n, err := notification.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPQueue, log)
		if err != nil {
			return nil, nil, err
		}
		return n, func() {
			if err := n.Close(); err != nil {
				log.Warn("failed to close amqp notifier", slog.String("error", err.Error()))
			}
		}, nil
	default:
		return notification.NewLogNotifier(log), func() {}, nil
	}
}
