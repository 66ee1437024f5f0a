// Command gosession-server serves the session engine over HTTP.
//
//	gosession-server [-config path]
//	gosession-server useradd [-config path] -username alice -password ... [-email ...] [-admin] [-inactive]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/database"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/users"
	otelexport "github.com/MrEthical07/goSession/metrics/export/otel"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	loadDotenv(".env", ".env.local")

	if len(os.Args) > 1 && os.Args[1] == "useradd" {
		if err := userAdd(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "useradd: %v\n", err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", os.Getenv("GOSESSION_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := serve(*configPath); err != nil {
		log.Fatalf("gosession-server: %v", err)
	}
}

// loadDotenv loads each file on its own so a missing .env does not skip
// .env.local. Missing files are fine and real environment variables win.
func loadDotenv(files ...string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func serve(configPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := goSession.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, w := range cfg.Lint() {
		logger.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error("close database", "err", err)
		}
	}()

	builder := goSession.New().
		WithConfig(cfg).
		WithDB(db).
		WithUserProvider(users.NewStore(db)).
		WithLogger(logger)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		builder = builder.WithRedis(client)
	}
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(goSession.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("engine ready",
		"signing_algorithm", report.SigningAlgorithm,
		"access_ttl", report.AccessTTL,
		"session_idle_ttl", report.SessionIdleTTL,
		"max_login_attempts", report.MaxLoginAttempts,
		"lockout_window", report.LockoutWindow,
		"janitor", report.JanitorEnabled,
		"fleet_lease", report.FleetLease,
	)

	engine.StartJanitor(ctx)

	if cfg.Metrics.OTelLogInterval > 0 {
		pipeline, err := otelexport.StartLogPipeline(engine, logger, cfg.Metrics.OTelLogInterval)
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := pipeline.Shutdown(flushCtx); err != nil {
				logger.Error("otel metrics shutdown", "err", err)
			}
		}()
	}

	router, err := newRouter(cfg, engine, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	return nil
}

func openDatabase(ctx context.Context, cfg database.Config) (*gorm.DB, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := users.Migrate(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
	}
	return db, nil
}

func newRouter(cfg goSession.Config, engine *goSession.Engine, logger *slog.Logger) (*gin.Engine, error) {
	clients, err := middleware.NewClientResolver(cfg.HTTP.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	if len(cfg.HTTP.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.HTTP.AllowedOrigins
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
		router.Use(cors.New(corsConfig))
	}

	var metrics http.Handler
	if cfg.Metrics.Enabled {
		metrics = prometheus.NewPrometheusExporter(engine).Handler()
	}

	httpapi.NewHandler(engine, clients, httpapi.Options{
		Metrics: metrics,
		Logger:  logger,
	}).Register(router)

	return router, nil
}

func userAdd(args []string) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	var (
		configPath = fs.String("config", os.Getenv("GOSESSION_CONFIG"), "path to a YAML config file")
		username   = fs.String("username", "", "login name")
		plain      = fs.String("password", "", "initial password")
		email      = fs.String("email", "", "e-mail address")
		admin      = fs.Bool("admin", false, "grant administrator access")
		inactive   = fs.Bool("inactive", false, "create the account unverified")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *plain == "" {
		return errors.New("-username and -password are required")
	}

	cfg, err := goSession.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	hasher, err := password.NewArgon2(cfg.Password.Argon2())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(*plain)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	id, err := users.NewStore(db).Create(ctx, users.NewUser{
		Username:     *username,
		Email:        *email,
		PasswordHash: hash,
		Active:       !*inactive,
		Admin:        *admin,
	})
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
