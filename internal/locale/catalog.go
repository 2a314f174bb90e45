package locale

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/you/chatvault/internal/textutil"
)

//go:embed messages/*.json
var embedded embed.FS

const DefaultLocale = "en"

// Translator renders message keys for the locale carried by ctx.
type Translator interface {
	T(ctx context.Context, key string, args ...any) string
}

// Catalog holds message tables per locale: the embedded defaults overlaid by
// JSON files from an optional directory.
type Catalog struct {
	fallback string
	dir      string

	mu       sync.RWMutex
	messages map[string]map[string]string
}

// NewCatalog loads the embedded tables and, when dir is set, every
// <locale>.json found there.
func NewCatalog(fallback, dir string) (*Catalog, error) {
	if fallback == "" {
		fallback = DefaultLocale
	}
	c := &Catalog{fallback: fallback, dir: dir}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns a catalog backed only by the embedded tables.
func Default() *Catalog {
	c, err := NewCatalog(DefaultLocale, "")
	if err != nil {
		panic(fmt.Sprintf("locale: embedded catalog: %v", err))
	}
	return c
}

// Reload re-reads every table. On error the previous tables stay active.
func (c *Catalog) Reload() error {
	next := map[string]map[string]string{}

	entries, err := fs.ReadDir(embedded, "messages")
	if err != nil {
		return fmt.Errorf("locale: read embedded: %w", err)
	}
	for _, e := range entries {
		data, err := fs.ReadFile(embedded, "messages/"+e.Name())
		if err != nil {
			return fmt.Errorf("locale: read embedded %s: %w", e.Name(), err)
		}
		if err := mergeTable(next, e.Name(), data); err != nil {
			return err
		}
	}

	if c.dir != "" {
		files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
		if err != nil {
			return fmt.Errorf("locale: glob %s: %w", c.dir, err)
		}
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return fmt.Errorf("locale: read %s: %w", f, err)
			}
			if err := mergeTable(next, filepath.Base(f), data); err != nil {
				return err
			}
		}
	}

	c.mu.Lock()
	c.messages = next
	c.mu.Unlock()
	return nil
}

func mergeTable(dst map[string]map[string]string, name string, data []byte) error {
	loc := NormalizeLocale(strings.TrimSuffix(name, ".json"))
	var table map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("locale: parse %s: %w", name, err)
	}
	if dst[loc] == nil {
		dst[loc] = make(map[string]string, len(table))
	}
	for k, v := range table {
		dst[loc][k] = v
	}
	return nil
}

// Supported lists loaded locales in sorted order.
func (c *Catalog) Supported() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for loc := range c.messages {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Resolve negotiates value against the loaded locales, defaulting to the
// fallback locale.
func (c *Catalog) Resolve(value string) string {
	if c == nil {
		return DefaultLocale
	}
	if loc, ok := ChooseSupported(value, c.Supported()); ok {
		return loc
	}
	return c.fallback
}

// T renders key for the context locale. args are name/value pairs that
// replace {name} placeholders; integers are formatted for the locale.
// Missing keys fall back to the default locale, then to the key itself.
func (c *Catalog) T(ctx context.Context, key string, args ...any) string {
	if c == nil {
		return key
	}
	loc := c.Resolve(FromContext(ctx))

	c.mu.RLock()
	msg, ok := c.messages[loc][key]
	if !ok {
		msg, ok = c.messages[c.fallback][key]
	}
	c.mu.RUnlock()
	if !ok {
		msg = key
	}
	if len(args) == 0 {
		return msg
	}

	printer := message.NewPrinter(tagFor(loc))
	for i := 0; i+1 < len(args); i += 2 {
		name := fmt.Sprint(args[i])
		var value string
		switch v := args[i+1].(type) {
		case int:
			value = printer.Sprint(number.Decimal(v))
		case float64:
			value = printer.Sprint(number.Decimal(v, number.MaxFractionDigits(1)))
		default:
			value = fmt.Sprint(v)
		}
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}
	return msg
}

// FormatDuration renders a banded subscription value as "N months" or
// "N years" (one decimal when fractional). badge selects the badge wording.
func (c *Catalog) FormatDuration(ctx context.Context, value int, badge bool) string {
	return FormatDuration(ctx, c, value, badge)
}

// FormatDuration is Catalog.FormatDuration for any Translator.
func FormatDuration(ctx context.Context, t Translator, value int, badge bool) string {
	key := "channel"
	if badge {
		key = "badge"
	}
	_, months := textutil.TierOf(value)
	if months < 12 {
		return t.T(ctx, key+".month", "count", months)
	}
	if months%12 == 0 {
		return t.T(ctx, key+".year", "count", months/12)
	}
	return t.T(ctx, key+".year", "count", float64(months)/12)
}

// FormatNumber groups n for the locale carried by ctx.
func FormatNumber(ctx context.Context, n int) string {
	return message.NewPrinter(tagFor(FromContext(ctx))).Sprint(number.Decimal(n))
}

func tagFor(loc string) language.Tag {
	tag, err := language.Parse(loc)
	if err != nil {
		return language.English
	}
	return tag
}

type ctxKey struct{}

// WithLocale attaches the caller's preferred locale to ctx.
func WithLocale(ctx context.Context, loc string) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

// FromContext returns the locale attached by WithLocale, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	loc, _ := ctx.Value(ctxKey{}).(string)
	return loc
}
