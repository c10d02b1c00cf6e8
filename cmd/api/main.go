package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cart/gateway"
	"storefront/internal/cart/reconcile"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	cartrepo "storefront/internal/repository/cart"
	categoryrepo "storefront/internal/repository/category"
	customerrepo "storefront/internal/repository/customer"
	productrepo "storefront/internal/repository/product"
	tokenrepo "storefront/internal/repository/token"
	catalogsvc "storefront/internal/service/catalog"
	customersvc "storefront/internal/service/customer"
	"storefront/internal/session"
	"storefront/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	evictInterval = time.Minute
	purgeInterval = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger("api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger, db.MaxConns(cfg.DBMaxConns))
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer dbpool.Close()

	backend, err := openBackend(cfg)
	if err != nil {
		return fmt.Errorf("open local cart storage: %w", err)
	}
	defer backend.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	catalogService := catalogsvc.New(productRepo, categoryrepo.NewPostgres(dbpool), logger)
	customerService := customersvc.New(
		customerrepo.NewPostgres(dbpool, logger),
		tokenrepo.NewPostgres(dbpool),
		logger,
		customersvc.WithAccessTTL(cfg.TokenTTL),
	)
	remote := gateway.New(cartrepo.NewPostgres(dbpool), logger,
		gateway.WithBreaker(uint32(max(cfg.BreakerFailures, 0)), cfg.BreakerOpenTimeout),
		gateway.WithFetchTimeout(cfg.RemoteTimeout))

	registry := session.NewRegistry(backend, remote, logger,
		session.IdleTTL(cfg.SessionIdleTTL),
		session.EngineOptions(
			reconcile.MaxLineQuantity(cfg.MaxLineQuantity),
			reconcile.RemoteTimeout(cfg.RemoteTimeout),
			reconcile.FetchRetries(cfg.FetchRetries, cfg.FetchRetryDelay),
		),
	)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CatalogSvc:    catalogService,
		CustomerSvc:   customerService,
		Sessions:      registry,
		LocalStorage:  backend,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := registry.Run(gctx, evictInterval); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		purgeTokens(gctx, customerService, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := registry.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openBackend(cfg config.Config) (storage.Backend, error) {
	switch cfg.LocalStore {
	case config.LocalStoreSQLite:
		s, err := storage.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s.WithQuota(cfg.StorageQuota), nil
	case config.LocalStoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return storage.NewRedis(client, cfg.RedisTTL).WithQuota(cfg.StorageQuota), nil
	case config.LocalStoreMemory:
		return storage.NewMemory().WithQuota(cfg.StorageQuota), nil
	default:
		return nil, fmt.Errorf("unknown LOCAL_STORE %q", cfg.LocalStore)
	}
}

func purgeTokens(ctx context.Context, svc *customersvc.Service, logger *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Warn("purge expired tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired tokens purged", zap.Int64("count", n))
			}
		}
	}
}
