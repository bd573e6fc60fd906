package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pronounhub/pronounhub/internal/account"
	"github.com/pronounhub/pronounhub/internal/config"
	"github.com/pronounhub/pronounhub/internal/flow"
	httpx "github.com/pronounhub/pronounhub/internal/http"
	"github.com/pronounhub/pronounhub/internal/metrics"
	"github.com/pronounhub/pronounhub/internal/oauth1"
	"github.com/pronounhub/pronounhub/internal/observability/logger"
	"github.com/pronounhub/pronounhub/internal/provider"
	"github.com/pronounhub/pronounhub/internal/provider/discord"
	"github.com/pronounhub/pronounhub/internal/provider/github"
	"github.com/pronounhub/pronounhub/internal/provider/minecraft"
	"github.com/pronounhub/pronounhub/internal/provider/twitch"
	"github.com/pronounhub/pronounhub/internal/provider/twitter"
	"github.com/pronounhub/pronounhub/internal/rate"
	"github.com/pronounhub/pronounhub/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			cfgPath = "config.yaml"
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "pronounhub",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	reg := prometheus.NewRegistry()
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.RegisterFlows(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// pending exchange store and rate limiter share the redis client
	var (
		pending     flow.PendingStore
		limiter     rate.Limiter
		redisClient *rdb.Client
	)
	if cfg.Cache.Kind == "redis" {
		redisClient = rdb.NewClient(&rdb.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		defer redisClient.Close()
		pending = flow.NewRedisPending(redisClient, cfg.Cache.Redis.Prefix)
	} else {
		pending = flow.NewMemoryPending()
	}
	if cfg.Rate.Enabled {
		if redisClient != nil {
			limiter = rate.NewRedisLimiter(redisClient, "rl:", cfg.Rate.MaxRequests, cfg.RateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo account.Repository
	if cfg.Storage.Driver == "postgres" {
		pg, err := account.NewPGRepository(ctx, cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		repo = pg
	} else {
		log.Warn("using in-memory storage, accounts will not survive restarts")
		repo = account.NewMemoryRepository()
	}

	sessions := session.NewIssuer(cfg.Session.Issuer, []byte(cfg.Session.Secret), cfg.SessionTTL())
	resolver := account.NewService(repo)
	signer := oauth1.NewSigner()

	opt := flow.Options{
		Pending:       pending,
		Cookies:       flow.NewCookieSigner(cfg.Cookies.Secret),
		Sessions:      sessions,
		Accounts:      resolver,
		BaseURL:       cfg.Server.BaseURL,
		SessionTTL:    cfg.SessionTTL(),
		SecureCookies: cfg.Session.Secure,
	}

	registry := provider.NewRegistry()
	adapters := map[string]provider.Adapter{}
	if c := cfg.Providers.Discord; c.Configured() {
		adapters["discord"] = discord.New(c.ClientID, c.ClientSecret)
	}
	if c := cfg.Providers.GitHub; c.Configured() {
		adapters["github"] = github.New(c.ClientID, c.ClientSecret)
	}
	if c := cfg.Providers.Twitch; c.Configured() {
		adapters["twitch"] = twitch.New(c.ClientID, c.ClientSecret)
	}
	if c := cfg.Providers.Twitter; c.Configured() {
		adapters["twitter"] = twitter.New(c.ClientID, c.ClientSecret)
	}
	if c := cfg.Providers.Minecraft; c.Configured() {
		adapters["minecraft"] = minecraft.New(c.ClientID, c.ClientSecret)
	}

	flows := make(map[string]flow.Flow, len(adapters))
	for platform, a := range adapters {
		if err := registry.Register(a); err != nil {
			return fmt.Errorf("register %s: %w", platform, err)
		}
		flows[platform] = flow.New(a, signer, opt)
		log.Info("provider mounted", logger.Platform(platform))
	}
	if len(flows) == 0 {
		log.Warn("no providers configured, only the lookup API will work")
	}

	handler := httpx.NewRouter(httpx.RouterOptions{
		Flows:         flows,
		Registry:      registry,
		Accounts:      repo,
		Sessions:      sessions,
		Limiter:       limiter,
		Gatherer:      reg,
		SecureCookies: cfg.Session.Secure,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", logger.String("addr", cfg.Server.Addr))
		return httpx.Start(ctx, cfg.Server.Addr, handler)
	})
	return g.Wait()
}
