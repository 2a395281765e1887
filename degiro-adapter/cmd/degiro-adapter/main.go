package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Checker-Finance/trading-adapters/degiro-adapter/internal/degiro"
	"github.com/Checker-Finance/trading-adapters/degiro-adapter/internal/metrics"
	internalsecrets "github.com/Checker-Finance/trading-adapters/degiro-adapter/internal/secrets"
	"github.com/Checker-Finance/trading-adapters/degiro-adapter/internal/store"
	"github.com/Checker-Finance/trading-adapters/degiro-adapter/pkg/config"
	"github.com/Checker-Finance/trading-adapters/pkg/logger"
	"github.com/Checker-Finance/trading-adapters/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [degiro-adapter]...")

	if err := cfg.Validate(); err != nil {
		logg.Fatalw("invalid configuration", "error", err)
	}

	// --- Metrics ---
	if cfg.MetricsAddr != "" {
		srv := metrics.StartServer(cfg.MetricsAddr, logger.L())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// --- Credentials (env or AWS Secrets Manager) ---
	creds, err := internalsecrets.LoadCredentials(ctx, logger.L(), *cfg, internalsecrets.AWSProvider)
	if err != nil {
		logg.Fatalw("failed to load credentials", "source", cfg.CredentialsSource, "error", err)
	}

	// --- Product cache (Redis, or in-memory when REDIS_ADDR is unset) ---
	var cache degiro.ProductCache
	if cfg.RedisAddr != "" {
		rc, err := store.NewRedisProductCache(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, cfg.ProductCacheTTL, logger.L())
		if err != nil {
			logg.Fatalw("failed to init product cache", "redis", utils.MaskDSN(cfg.RedisAddr), "error", err)
		}
		defer func() { _ = rc.Close() }()
		cache = rc
	} else {
		mc := store.NewMemoryProductCache(cfg.ProductCacheTTL)
		stopCleaner := make(chan struct{})
		defer close(stopCleaner)
		go mc.StartCleaner(cfg.CleanupFreq, stopCleaner)
		cache = mc
	}

	// --- DEGIRO client ---
	client, err := degiro.NewClient(logger.L(), degiro.Config{
		BaseURL:     cfg.DegiroBaseURL,
		Credentials: creds,
		Timeout:     cfg.DegiroTimeout,
		UserAgent:   cfg.DegiroUserAgent,
		Observer:    metrics.ObserveRequest,
		OnLogin:     metrics.IncLogin,
	})
	if err != nil {
		logg.Fatalw("failed to init degiro client", "error", err)
	}

	if err := client.Login(ctx); err != nil {
		logg.Fatalw("login failed", "stage", client.State().String(), "error", err)
	}
	sess := client.Session()
	logg.Infow("session active",
		"session", utils.MaskToken(sess.ID.Unwrap()),
		"int_account", sess.IntAccount.Unwrap())

	// --- Snapshot: favorites, portfolio and account info in parallel ---
	var (
		favorites []int64
		portfolio *degiro.Portfolio
		account   *degiro.AccountInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		favorites, err = client.GetFavorites(gctx)
		return err
	})
	g.Go(func() (err error) {
		portfolio, err = client.GetPortfolio(gctx)
		return err
	})
	g.Go(func() (err error) {
		account, err = client.GetAccountInfo(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logg.Fatalw("snapshot failed", "error", err)
	}

	// --- Product details through the cache ---
	if hc, ok := cache.(interface{ HealthCheck(context.Context) error }); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			logg.Warnw("product cache unhealthy, lookups will fall through to the broker", "error", err)
		}
	}
	lookup := degiro.NewProductLookup(logger.L(), client, cache).WithCacheObserver(metrics.ObserveCacheLookup)
	ids := portfolio.ProductIDs()
	for _, id := range favorites {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	products, err := lookup.Lookup(ctx, ids)
	if err != nil {
		logg.Fatalw("product lookup failed", "error", err)
	}

	logg.Infow("snapshot complete",
		"base_currency", account.BaseCurrency,
		"favorites", len(favorites),
		"positions", len(portfolio.Rows),
		"products", len(products))
	for _, p := range products.Products() {
		logg.Infow("product",
			"id", p.ID,
			"symbol", p.Symbol,
			"currency", p.Currency,
			"close_price", p.ClosePrice,
			"tradable", p.Tradable)
	}

	client.Logout()
	logg.Info("degiro-adapter finished")
}
