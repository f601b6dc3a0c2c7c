package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mkrupp/wardrobe/internal/infra/config"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	"github.com/mkrupp/wardrobe/internal/infra/sqlite"
	http_ "github.com/mkrupp/wardrobe/internal/infra/transport/http"
	"github.com/mkrupp/wardrobe/internal/repo/account"
	"github.com/mkrupp/wardrobe/internal/repo/content"
	"github.com/mkrupp/wardrobe/internal/repo/item"
	"github.com/mkrupp/wardrobe/internal/repo/session"
	"github.com/mkrupp/wardrobe/internal/svc/authsvc"
	"github.com/mkrupp/wardrobe/internal/svc/wardrobesvc"
)

const (
	appName = "wardrobe"
	svcName = "wardrobesvc"
)

type Config struct {
	config.EnvConfig

	Log          logging.LoggerConfig                      `envPrefix:"LOG_"`
	HTTP         http_.HTTPTransportConfig                 `envPrefix:"HTTP_"`
	AuthHTTP     authsvc.HTTPTransportConfig               `envPrefix:"HTTP_"`
	WardrobeHTTP wardrobesvc.HTTPTransportConfig           `envPrefix:"HTTP_"`
	DB           sqlite.Config                             `envPrefix:"DB_"`
	Auth         authsvc.AuthConfig                        `envPrefix:"AUTH_"`
	Catalog      wardrobesvc.CatalogConfig                 `envPrefix:"CATALOG_"`
	Content      wardrobesvc.ContentConfig                 `envPrefix:"CONTENT_"`
	ContentStore content.FileSystemContentRepositoryConfig `envPrefix:"CONTENT_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	dotenv := os.Getenv(configPrefix + "_DOTENV")
	if dotenv == "" {
		dotenv = ".env"
	}

	if err := config.LoadDotEnv(dotenv); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.wardrobesvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	db, err := sqlite.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct
	)

	metrics, err := http_.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("new metrics: %w", err)
	}

	handler, authSvc, err := newHandler(ctx, cfg, db, reg, metrics)
	if err != nil {
		return err
	}

	go authSvc.RunJanitor(ctx, cfg.Auth.JanitorInterval)

	if err := http_.ListenAndServe(ctx, handler, cfg.HTTP, metrics); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// newHandler wires the services onto one mux. The auth service goes first
// since it creates the account schema the other tables reference.
func newHandler(
	ctx context.Context,
	cfg Config,
	db *sql.DB,
	reg *prometheus.Registry,
	metrics *http_.Metrics,
) (http.Handler, *authsvc.AuthService, error) {
	accountRepoFactory := account.SQLiteAccountRepositoryFactory(db)

	authSvc, err := authsvc.NewAuthService(
		ctx,
		accountRepoFactory,
		session.SQLiteSessionRepositoryFactory(db),
		cfg.Catalog.Categories,
		cfg.Auth,
		reg,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("new auth service: %w", err)
	}

	wardrobeSvc, err := wardrobesvc.NewWardrobeService(
		ctx,
		accountRepoFactory,
		item.SQLiteItemRepositoryFactory(db),
		content.FileSystemContentRepositoryFactory(cfg.ContentStore),
		wardrobesvc.NewComposer(),
		cfg.Content,
		reg,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("new wardrobe service: %w", err)
	}

	authHTTP := authsvc.NewHTTPTransport(authSvc, cfg.AuthHTTP)
	wardrobeHTTP := wardrobesvc.NewHTTPTransport(wardrobeSvc, authSvc, cfg.WardrobeHTTP)

	mux := http.NewServeMux()

	for _, pattern := range authHTTP.Routes() {
		mux.Handle(pattern, authHTTP)
	}

	for _, pattern := range wardrobeHTTP.Routes() {
		mux.Handle(pattern, wardrobeHTTP)
	}

	mux.Handle("GET "+http_.MetricsPath, metrics.Handler())

	return mux, authSvc, nil
}
