// Package app assembles the vault from configuration: the cache backend, the
// global index, the provenance resolver and every provider adapter.
package app

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/you/chatvault/internal/cache"
	"github.com/you/chatvault/internal/config"
	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/globals"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/origin"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/providers/bttv"
	"github.com/you/chatvault/internal/providers/ffz"
	"github.com/you/chatvault/internal/providers/kick"
	"github.com/you/chatvault/internal/providers/seventv"
	"github.com/you/chatvault/internal/providers/twitch"
	"github.com/you/chatvault/internal/providers/youtube"
	"github.com/you/chatvault/internal/upstream"
	"github.com/you/chatvault/internal/vault"
)

// Observer receives cache and upstream instrumentation.
type Observer interface {
	cache.Observer
	upstream.Observer
}

type App struct {
	KV      cache.KV
	Store   *cache.Store
	Catalog *locale.Catalog
	Globals *globals.Index
	Origins *origin.Resolver
	Vault   *vault.Vault
}

// OpenKV opens the configured cache backend.
func OpenKV(ctx context.Context, cfg config.CacheConfig) (cache.KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return cache.NewMemoryKV(), nil
	case config.BackendRedis:
		kv, err := cache.OpenRedis(ctx, cfg.RedisURL, "chatvault:")
		if err != nil {
			return nil, errors.Wrap(err, "redis")
		}
		return kv, nil
	}
	kv, err := cache.OpenSQLite(cfg.SQLitePath, cache.WithTuning(cfg.SQLiteTuning))
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite %s", cfg.SQLitePath)
	}
	return kv, nil
}

// New wires the vault. obs may be nil.
func New(ctx context.Context, cfg config.Config, obs Observer) (*App, error) {
	catalog, err := locale.NewCatalog(cfg.Locale.Default, cfg.Locale.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "load message catalog")
	}

	kv, err := OpenKV(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	storeOpts := []cache.Option{}
	upOpts := upstream.Options{
		Timeout:  cfg.UpstreamTimeout(),
		HostRPS:  cfg.Upstream.HostRPS,
		Messages: catalog,
	}
	if obs != nil {
		storeOpts = append(storeOpts, cache.WithObserver(obs))
		upOpts.Observer = obs
	}
	store := cache.New(kv, storeOpts...)
	up := upstream.New(upOpts)

	idx := globals.New(store, cfg.GlobalsTTL())
	origins := origin.New(up, store, origin.WithTTL(cfg.OriginTTL()))

	sources := []providers.Source{
		providers.SourceOf(core.Twitch, twitch.New(up, idx, twitch.Options{ClientID: cfg.Twitch.ClientID, Origins: origins})),
		providers.SourceOf(core.YouTube, youtube.New(up, idx)),
		providers.SourceOf(core.Kick, kick.New(up, idx)),
		providers.SourceOf(core.BTTV, bttv.New(up, idx)),
		providers.SourceOf(core.FFZ, ffz.New(up, idx)),
		providers.SourceOf(core.SevenTV, seventv.New(up, idx)),
	}
	for _, s := range sources {
		idx.Register(s.Provider, s.Emotes, s.Badges)
	}

	log.Printf("app: cache=%s providers=%d locales=%v", kv, len(sources), catalog.Supported())

	return &App{
		KV:      kv,
		Store:   store,
		Catalog: catalog,
		Globals: idx,
		Origins: origins,
		Vault:   vault.New(idx, origins, catalog, sources...),
	}, nil
}

// Warm fills the global lists in the background so the first page load does
// not pay for the fan-out.
func (a *App) Warm(ctx context.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := a.Globals.Emotes(ctx); err != nil {
			log.Printf("app: warm global emotes: %v", err)
		}
		if _, err := a.Globals.Badges(ctx); err != nil {
			log.Printf("app: warm global badges: %v", err)
		}
	}()
}

func (a *App) Close() error {
	return a.KV.Close()
}
