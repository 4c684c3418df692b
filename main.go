package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/draft-oracle/internal/auth"
	"github.com/Billy-Davies-2/draft-oracle/internal/config"
	"github.com/Billy-Davies-2/draft-oracle/internal/dal"
	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	grpcserver "github.com/Billy-Davies-2/draft-oracle/internal/grpc"
	"github.com/Billy-Davies-2/draft-oracle/internal/handlers"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/oracle"
	"github.com/Billy-Davies-2/draft-oracle/internal/pubsub"
	"github.com/Billy-Davies-2/draft-oracle/internal/statsfeed"
	"github.com/Billy-Davies-2/draft-oracle/internal/tasks"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger first
	logger.Init(cfg.LogLevel)
	logger.Info("Starting draft oracle", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// app holds everything run wires together, in tear-down order.
type app struct {
	store   dal.Store
	events  *pubsub.PubSub
	closers []func()
	checks  map[string]handlers.HealthCheck
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a := &app{checks: make(map[string]handlers.HealthCheck)}
	defer a.close()

	if err := a.openStore(ctx, cfg); err != nil {
		return err
	}
	if err := a.openEvents(cfg); err != nil {
		return err
	}
	feed, err := a.openFeed(ctx, cfg)
	if err != nil {
		return err
	}

	repo := dal.NewRepository(a.store)
	engine, err := draft.NewEngine(repo, newOracle(ctx, cfg), cfg.Draft.DraftConfig(cfg.StatsSeason),
		draft.WithStatsFeed(feed),
		draft.WithPublisher(a.events),
	)
	if err != nil {
		return err
	}

	runner := tasks.NewRunner(repo, engine, tasks.Options{
		PickTimeout: pickTimeout(cfg),
		Publisher:   a.events,
	})
	a.closers = append(a.closers, func() {
		logger.Info("Draining pick tasks")
		runner.Close()
	})

	authProvider := newAuthProvider(cfg)
	protect := func(next http.Handler) http.Handler {
		return authProvider.Middleware(auth.RequireCommissioner(next))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", authProvider.LoginHandler)
	mux.HandleFunc("/auth/callback", authProvider.CallbackHandler)
	mux.HandleFunc("/auth/logout", authProvider.LogoutHandler)
	handlers.NewAPIHandlers(engine, runner, a.events, a.checks).Register(mux, protect)

	g, gctx := errgroup.WithContext(ctx)

	// Request contexts derive from gctx so open SSE streams end on shutdown.
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary))
	grpcserver.RegisterDraftServiceServer(grpcServer, grpcserver.NewServer(engine, runner))

	g.Go(func() error {
		logger.Info("Server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.GRPCPort)
		if err != nil {
			return err
		}
		logger.Info("gRPC server starting", "address", lis.Addr().String())
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) error {
	var err error
	switch cfg.DBDriver {
	case "memory":
		a.store = dal.NewMemoryStore()
		logger.Info("Using in-memory data store")
	case "sqlite":
		a.store, err = dal.NewSQLiteStore(cfg.SQLiteFile)
		if err != nil {
			return err
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
	case "postgres":
		a.store, err = dal.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("Connected to Postgres database")
	case "redis":
		a.store, err = dal.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		logger.Info("Connected to Redis", "address", cfg.RedisAddr, "db", cfg.RedisDB)
	}

	store := a.store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	})
	a.checks["database"] = func(ctx context.Context) error {
		_, err := store.Latest(ctx, dal.KindDrafts)
		if errors.Is(err, dal.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// openEvents uses an embedded NATS server in development and a real
// JetStream deployment otherwise.
func (a *app) openEvents(cfg *config.Config) error {
	var upstream interface {
		pubsub.Upstream
		Healthy() error
	}

	if cfg.Development() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATSSubject
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, embedded.Close)
		upstream = embedded
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
	} else {
		remote, err := pubsub.NewNATSPubSub(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, remote.Close)

		// Every completed draft is recorded once across all instances.
		sub, err := remote.SubscribeDurable("draft-oracle-audit", func(e pubsub.Event) {
			if e.Type == pubsub.EventDraftComplete {
				logger.Info("Draft completed", "draft_id", e.DraftID, "time", e.Time)
			}
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { sub.Drain() })
		upstream = remote
		logger.Info("Connected to NATS", "url", cfg.NATSURL)
	}

	a.events = pubsub.NewWithUpstream(upstream)
	a.checks["nats"] = func(context.Context) error { return upstream.Healthy() }
	return nil
}

func (a *app) openFeed(ctx context.Context, cfg *config.Config) (statsfeed.Source, error) {
	if cfg.Development() {
		logger.Info("Using fixture stats feed for local development (no ClickHouse server required)")
		return statsfeed.NewFixtureSource(), nil
	}
	src, err := statsfeed.NewClickHouseSource(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { src.Close() })
	a.checks["clickhouse"] = src.Ping
	logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
	return src, nil
}

// newOracle builds the decision step: a remote selection service behind the
// poller when ORACLE_URL is set, the local heuristic otherwise. Both are
// wrapped in the validating retry loop.
func newOracle(ctx context.Context, cfg *config.Config) oracle.Oracle {
	var inner oracle.Oracle = oracle.Heuristic{}
	if cfg.OracleURL != "" {
		client := oracle.NewHTTPClient(ctx, oracle.HTTPConfig{
			BaseURL:      cfg.OracleURL,
			TokenURL:     cfg.OracleTokenURL,
			ClientID:     cfg.OracleClientID,
			ClientSecret: cfg.OracleClientSecret,
		})
		inner = oracle.NewPolling(client, cfg.OraclePollInterval, cfg.OracleMaxPolls)
		logger.Info("Using remote oracle", "url", cfg.OracleURL, "max_polls", cfg.OracleMaxPolls)
	} else {
		logger.Info("Using heuristic oracle")
	}
	return oracle.NewRetrying(inner, cfg.OracleMaxAttempts)
}

// pickTimeout bounds one async pick by the worst-case polling time.
func pickTimeout(cfg *config.Config) time.Duration {
	if cfg.OracleURL == "" {
		return time.Minute
	}
	perAttempt := time.Duration(cfg.OracleMaxPolls) * 5 * cfg.OraclePollInterval
	return time.Duration(cfg.OracleMaxAttempts) * perAttempt
}

func newAuthProvider(cfg *config.Config) auth.AuthProvider {
	if cfg.Development() {
		logger.Info("Using mock authentication for local development (no Authentik server required)")
		return auth.NewMockAuth(true)
	}
	logger.Info("Connected to Authentik", "url", cfg.AuthentikBaseURL)
	return auth.NewAuthentikAuth(&auth.AuthentikConfig{
		BaseURL:      cfg.AuthentikBaseURL,
		ClientID:     cfg.AuthentikClientID,
		ClientSecret: cfg.AuthentikClientSecret,
		RedirectURL:  cfg.AuthentikRedirectURL,
	})
}

func logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start), "error", err)
	return resp, err
}
