// Command server runs the arrangement and identifier-protection service: the
// PAR, arrangement-revocation, and introspection endpoints of a data holder's
// authorization server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	arrHandler "custodia/internal/arrangement/handler"
	arrMetrics "custodia/internal/arrangement/metrics"
	arrService "custodia/internal/arrangement/service"
	"custodia/internal/audit"
	"custodia/internal/authzerror"
	"custodia/internal/clientauth"
	"custodia/internal/grants"
	"custodia/internal/idperm"
	introHandler "custodia/internal/introspection/handler"
	introService "custodia/internal/introspection/service"
	parHandler "custodia/internal/par/handler"
	parService "custodia/internal/par/service"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/kafka"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/postgres"
	"custodia/internal/platform/redis"
	httptransport "custodia/internal/transport/http"

	"github.com/golang-jwt/jwt/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Grant store: postgres when configured, then redis, else in-memory.
	var store grants.Store = grants.NewMemory()
	var checkers []httptransport.HealthChecker

	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(cfg.Postgres)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		store = grants.NewPostgres(db)
		checkers = append(checkers, pingChecker{db.PingContext})
		log.Info("grant store backend", "backend", "postgres")
	} else if cfg.Redis.URL != "" {
		client, err := redis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		store = grants.NewRedis(client.Client)
		checkers = append(checkers, pingChecker{client.Health})
		log.Info("grant store backend", "backend", "redis")
	} else {
		log.Warn("no store backend configured, grants will not survive restarts")
	}

	// Audit pipeline: kafka when brokers are configured.
	var publisher audit.Publisher = audit.NewMemoryPublisher()

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Error("failed to start kafka producer", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
		publisher = audit.NewKafkaPublisher(producer, log)
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.AuditTopic)
	}

	codec, err := idperm.New(cfg.IDPermanenceKey)
	if err != nil {
		log.Error("failed to initialise identifier codec", "error", err)
		os.Exit(1)
	}

	clients := clientauth.NewMemoryClientStore()
	if seeded, err := clientauth.SeedDevClient(clients); err != nil {
		log.Error("failed to seed dev client", "error", err)
		os.Exit(1)
	} else if seeded != nil {
		log.Info("seeded development client", "client_id", seeded.ClientID)
	}
	authenticator := clientauth.NewSecretAuthenticator(clients, clientauth.WithLogger(log))

	arrangements, err := arrService.New(store,
		arrService.WithLogger(log),
		arrService.WithMetrics(arrMetrics.New()),
		arrService.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("failed to build arrangement service", "error", err)
		os.Exit(1)
	}

	// Request-object signature keys are distributed out of band; clients
	// registered dynamically must be wired to a real key resolver.
	requestValidator := parService.NewJWTRequestValidator(func(t *jwt.Token) (any, error) {
		return nil, errors.New("no signing key registered for request object")
	})
	par, err := parService.New(store, authenticator, requestValidator, cfg.PARRequestURITTL,
		parService.WithLogger(log),
		parService.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("failed to build par service", "error", err)
		os.Exit(1)
	}

	resolver, err := introService.NewResolver(
		introService.NewStoreTokenValidator(store),
		codec,
		arrangements,
		introService.WithLogger(log),
		introService.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("failed to build introspection resolver", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:  log,
		Metrics: metrics.New(),
		Handlers: []httptransport.Registrar{
			parHandler.New(par, log),
			arrHandler.New(arrangements, authenticator, log),
			introHandler.New(resolver, authenticator, log),
		},
		ErrorDetails: authzerror.NewMemoryDetailsStore(5 * time.Minute),
		Checkers:     checkers,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if producer != nil {
			_ = producer.Flush(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

type pingChecker struct {
	ping func(ctx context.Context) error
}

func (c pingChecker) Health(ctx context.Context) error {
	return c.ping(ctx)
}
