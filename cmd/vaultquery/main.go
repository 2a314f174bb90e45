// Command vaultquery runs a single vault lookup and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/you/chatvault/internal/app"
	"github.com/you/chatvault/internal/channellink"
	"github.com/you/chatvault/internal/config"
	"github.com/you/chatvault/internal/vault"
	"github.com/you/chatvault/internal/version"
)

type query struct {
	Kind     string
	Provider string
	ID       string
	Channel  string
	Name     string
	Platform string
	Page     int
	Before   string
	Limit    int
	Rank     bool
}

func main() {
	log.SetFlags(0)

	var (
		q           query
		versionFlag bool
		cacheFlag   string
		timeout     time.Duration
	)
	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&q.Kind, "kind", "emote", "Lookup kind: emote, badge, channel, set, search, extras, badge-extras, channels, channel-emotes, globals-emotes, globals-badges, link")
	flag.StringVar(&q.Provider, "provider", "twitch", "Provider name or alias (all is accepted for lists)")
	flag.StringVar(&q.ID, "id", "", "Entity id, login, search query or channel URL")
	flag.StringVar(&q.Channel, "channel", "", "Channel id for emote extras")
	flag.StringVar(&q.Name, "name", "", "Emote name for emote extras")
	flag.StringVar(&q.Platform, "platform", "twitch", "Platform for channel-emotes")
	flag.IntVar(&q.Page, "page", 0, "Page for channels")
	flag.StringVar(&q.Before, "before", "", "Cursor for channels")
	flag.IntVar(&q.Limit, "limit", 50, "Result limit for search")
	flag.BoolVar(&q.Rank, "rank", false, "Rank search results by similarity")
	flag.StringVar(&cacheFlag, "cache", "", "Cache backend override: sqlite, redis or memory")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall lookup timeout")
	flag.Parse()

	if versionFlag {
		fmt.Printf("vaultquery version: %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildTime)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if q.Kind == "link" {
		if err := render(os.Stdout, linkResult(q.ID)); err != nil {
			log.Fatalf("vaultquery: %v", err)
		}
		return
	}

	cfg := config.Load()
	if c := strings.ToLower(strings.TrimSpace(cacheFlag)); c != "" {
		cfg.Cache.Backend = c
	}
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("vaultquery: %v", err)
	}
	defer a.Close()

	out, err := run(ctx, a.Vault, q)
	if err != nil {
		log.Fatalf("vaultquery: %v", err)
	}
	if err := render(os.Stdout, out); err != nil {
		log.Fatalf("vaultquery: %v", err)
	}
}

func run(ctx context.Context, v *vault.Vault, q query) (any, error) {
	switch q.Kind {
	case "emote":
		return v.Emote(ctx, q.Provider, q.ID)
	case "badge":
		return v.Badge(ctx, q.Provider, q.ID)
	case "channel":
		return v.Channel(ctx, q.Provider, q.ID)
	case "set":
		return v.Set(ctx, q.Provider, q.ID)
	case "search":
		return v.Search(ctx, q.Provider, q.ID, q.Limit, q.Rank)
	case "extras":
		return v.EmoteExtras(ctx, q.Provider, q.Channel, q.ID, q.Name)
	case "badge-extras":
		return v.BadgeExtras(ctx, q.Provider, q.ID)
	case "channels":
		return v.Channels(ctx, q.Provider, q.ID, q.Page, q.Before)
	case "channel-emotes":
		return v.ChannelEmotes(ctx, q.Provider, q.ID, q.Platform)
	case "globals-emotes":
		return v.GlobalEmotes(ctx, q.Provider)
	case "globals-badges":
		return v.GlobalBadges(ctx, q.Provider)
	case "link":
		return linkResult(q.ID), nil
	}
	return nil, errors.Errorf("unknown kind %q", q.Kind)
}

func linkResult(raw string) any {
	m, ok := channellink.Info(raw)
	if !ok {
		return nil
	}
	return map[string]string{
		"platform": string(m.Platform),
		"username": m.Username,
		"path":     m.Path(),
	}
}

func render(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
