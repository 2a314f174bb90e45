package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/you/chatvault/internal/admin"
	"github.com/you/chatvault/internal/app"
	"github.com/you/chatvault/internal/config"
	"github.com/you/chatvault/internal/httpapi"
	"github.com/you/chatvault/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag     bool
		httpAddr        string
		httpCorsOrigins string
		httpRateRPS     int
		httpRateBurst   int
		httpMetrics     bool
		httpAccessLog   bool
		cacheBackend    string
		sqlitePath      string
		redisURL        string
		localesDir      string
		twClientID      string
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (e.g., :8080)")
	flag.StringVar(&httpCorsOrigins, "http-cors-origins", "", "Comma-separated list of allowed CORS origins")
	flag.IntVar(&httpRateRPS, "http-rate-rps", 20, "Maximum HTTP requests per second per client")
	flag.IntVar(&httpRateBurst, "http-rate-burst", 40, "Burst size for HTTP rate limiter")
	flag.BoolVar(&httpMetrics, "http-metrics", true, "Expose Prometheus metrics endpoint")
	flag.BoolVar(&httpAccessLog, "http-access-log", true, "Log HTTP access records")
	flag.StringVar(&cacheBackend, "cache", "", "Cache backend: sqlite, redis or memory")
	flag.StringVar(&sqlitePath, "sqlite", "", "Path to SQLite cache file")
	flag.StringVar(&redisURL, "redis-url", "", "Redis URL for the redis cache backend")
	flag.StringVar(&localesDir, "locales-dir", "", "Directory of <locale>.json message overrides")
	flag.StringVar(&twClientID, "twitch-client-id", "", "Twitch GQL client ID")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"chatvault version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg := config.Load()

	if overrides["http-addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(httpAddr)
	}
	if overrides["http-cors-origins"] {
		cfg.HTTP.CORSOrigins = config.SplitList(httpCorsOrigins)
	}
	if overrides["http-rate-rps"] {
		cfg.HTTP.RateRPS = httpRateRPS
	}
	if overrides["http-rate-burst"] {
		cfg.HTTP.RateBurst = httpRateBurst
	}
	if overrides["http-metrics"] {
		cfg.HTTP.Metrics = httpMetrics
	}
	if overrides["http-access-log"] {
		cfg.HTTP.AccessLog = httpAccessLog
	}
	if overrides["cache"] {
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cacheBackend))
	}
	if overrides["sqlite"] {
		cfg.Cache.SQLitePath = strings.TrimSpace(sqlitePath)
	}
	if overrides["redis-url"] {
		cfg.Cache.RedisURL = strings.TrimSpace(redisURL)
	}
	if overrides["locales-dir"] {
		cfg.Locale.Dir = strings.TrimSpace(localesDir)
	}
	if overrides["twitch-client-id"] {
		cfg.Twitch.ClientID = strings.TrimSpace(twClientID)
	}

	setupLogging(cfg.Log)
	log.Printf("%s", cfg.SummaryJSON())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("chatvault: received %s, shutting down", sig)
		cancel()
	}()

	metrics := httpapi.NewMetrics()
	a, err := app.New(ctx, cfg, metrics)
	if err != nil {
		log.Fatalf("chatvault: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("chatvault: closing cache: %v", err)
		}
	}()

	go func() {
		if err := a.Catalog.Watch(ctx); err != nil {
			slog.Error("chatvault: watch locales", "err", err)
		}
	}()
	a.Warm(ctx)

	build := httpapi.BuildInfo{Version: version.Version, Revision: version.Commit}
	if version.BuildTime != "" && version.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, version.BuildTime); err == nil {
			build.BuiltAt = t
		}
	}

	api := httpapi.New(a.Vault, a.Store, a.Catalog, httpapi.Options{
		Addr:            cfg.HTTP.Addr,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		RateLimitRPS:    cfg.HTTP.RateRPS,
		RateLimitBurst:  cfg.HTTP.RateBurst,
		EnableMetrics:   cfg.HTTP.Metrics,
		EnableAccessLog: cfg.HTTP.AccessLog,
		Build:           build,
		ConfigSnapshot:  cfg.Redacted(),
		Metrics:         metrics,
	})

	pinger, _ := a.KV.(admin.Pinger)
	admin.New(map[string]admin.Purger{
		"globals": a.Globals,
		"origin":  a.Origins,
	}, a.Catalog, pinger).Register(api.Mux())

	go func() {
		if err := api.Start(); err != nil {
			log.Fatalf("chatvault: http api: %v", err)
		}
	}()
	log.Printf("chatvault: http api ready on %s", cfg.HTTP.Addr)

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Printf("chatvault: http api shutdown: %v", err)
	}
	cancelShutdown()
	log.Printf("chatvault: shutdown complete")
}

func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
		return
	}
	slog.SetLogLoggerLevel(level)
}
