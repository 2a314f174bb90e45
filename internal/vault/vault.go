// Package vault is the entry point for every lookup: it maps provider
// aliases onto adapters, canonicalizes identifiers, fans out "all" requests
// and wraps adapter failures with the component that raised them.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/globals"
	"github.com/you/chatvault/internal/idcodec"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/origin"
	"github.com/you/chatvault/internal/providers"
)

// All is the fan-out alias.
const All = "all"

// Navigator receives canonicalization rewrites so a presentation layer can
// update the address the caller used. from and to are single path segments.
type Navigator interface {
	Replace(from, to string)
}

type navKey struct{}

// WithNavigator attaches nav to ctx. Without one, rewrites are dropped.
func WithNavigator(ctx context.Context, nav Navigator) context.Context {
	return context.WithValue(ctx, navKey{}, nav)
}

func navigate(ctx context.Context, from, to string) {
	if from == to {
		return
	}
	if nav, ok := ctx.Value(navKey{}).(Navigator); ok && nav != nil {
		nav.Replace(from, to)
	}
}

type Vault struct {
	sources map[core.Provider]providers.Source
	globals *globals.Index
	origins *origin.Resolver
	msgs    locale.Translator
}

func New(idx *globals.Index, origins *origin.Resolver, msgs locale.Translator, sources ...providers.Source) *Vault {
	if msgs == nil {
		msgs = locale.Default()
	}
	v := &Vault{
		sources: make(map[core.Provider]providers.Source, len(sources)),
		globals: idx,
		origins: origins,
		msgs:    msgs,
	}
	for _, s := range sources {
		v.sources[s.Provider] = s
	}
	return v
}

// Source returns the adapters registered for p.
func (v *Vault) Source(p core.Provider) (providers.Source, bool) {
	s, ok := v.sources[p]
	return s, ok
}

// resolve maps alias onto its canonical provider and reports the rewrite to
// the navigator. has reports whether the adapter serves the capability.
func (v *Vault) resolve(ctx context.Context, alias string, has func(providers.Source) bool) (providers.Source, error) {
	p, ok := core.LookupAlias(alias)
	if !ok {
		return providers.Source{}, core.UnknownProvider(alias, v.msgs.T(ctx, "error.provider"))
	}
	src, ok := v.sources[p]
	if !ok || !has(src) {
		return providers.Source{}, core.UnknownProvider(alias, v.msgs.T(ctx, "error.provider"))
	}
	// Case-only differences are not a rewrite.
	if strings.ToLower(strings.TrimSpace(alias)) != string(p) {
		navigate(ctx, alias, string(p))
	}
	return src, nil
}

// canonicalID converts legacy 7TV object ids to ULIDs and reports the rewrite.
func canonicalID(ctx context.Context, p core.Provider, id string) (string, error) {
	if p != core.SevenTV {
		return id, nil
	}
	out, converted, err := idcodec.Normalize(id)
	if err != nil {
		return "", core.InvalidInput(p, "ID", err)
	}
	if converted {
		navigate(ctx, id, out)
	}
	return out, nil
}

// failure logs err under component and returns it with prefix prepended.
// An empty prefix keeps the adapter message as is.
func (v *Vault) failure(ctx context.Context, component, prefix, alias string, err error) error {
	slog.Error("vault: fetch failed", "component", component, "provider", strings.ToLower(alias), "err", err)
	if err == nil {
		err = errors.New(v.msgs.T(ctx, "error.unknown"))
	}
	if prefix == "" {
		return err
	}
	return &Error{Prefix: prefix, Err: err}
}

// Error is a facade failure: the adapter error prefixed with the component
// label. The wrapped *core.Error stays reachable through errors.As.
type Error struct {
	Prefix string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("%s %s", e.Prefix, e.Err.Error()) }

func (e *Error) Unwrap() error { return e.Err }

func (v *Vault) label(ctx context.Context, keys ...string) string {
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		s := v.msgs.T(ctx, k)
		if i == 0 {
			s = "[" + s + "]"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ") + ":"
}

func logDropped(component string, p core.Provider, err error) {
	slog.Warn("vault: provider dropped from fan-out", "component", component, "provider", p, "err", err)
}
