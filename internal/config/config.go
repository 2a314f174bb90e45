package config

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTPConfig
	Cache    CacheConfig
	Locale   LocaleConfig
	Upstream UpstreamConfig
	Twitch   TwitchConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
	RateRPS     int
	RateBurst   int
	Metrics     bool
	AccessLog   bool
}

type CacheConfig struct {
	Backend      string
	SQLitePath   string
	RedisURL     string
	SQLiteTuning bool
	GlobalsMins  int
	OriginHours  int
}

type LocaleConfig struct {
	Default string
	Dir     string
}

type UpstreamConfig struct {
	TimeoutSecs int
	HostRPS     int
}

type TwitchConfig struct {
	ClientID string
}

type LogConfig struct {
	Format string
	Level  string
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	defaultAddr        = ":8080"
	defaultSQLitePath  = "chatvault.db"
	defaultRateRPS     = 20
	defaultRateBurst   = 40
	defaultLocale      = "en"
	defaultTimeoutSecs = 15
	defaultHostRPS     = 10
	defaultGlobalsMins = 60
	defaultOriginHours = 24
)

// EnvFile is the optional dotenv file read by Load. Existing environment
// variables win over its entries.
var EnvFile = ".env"

func Load() Config {
	_ = godotenv.Load(EnvFile)

	cfg := Config{}

	cfg.HTTP.Addr = strings.TrimSpace(os.Getenv("CHATVAULT_HTTP_ADDR"))
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = defaultAddr
	}
	cfg.HTTP.CORSOrigins = splitList(os.Getenv("CHATVAULT_CORS_ORIGINS"))
	cfg.HTTP.RateRPS = readInt("CHATVAULT_RATE_RPS", defaultRateRPS)
	cfg.HTTP.RateBurst = readInt("CHATVAULT_RATE_BURST", defaultRateBurst)
	cfg.HTTP.Metrics = readBool("CHATVAULT_METRICS", true)
	cfg.HTTP.AccessLog = readBool("CHATVAULT_ACCESS_LOG", true)

	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("CHATVAULT_CACHE")))
	switch cfg.Cache.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		cfg.Cache.Backend = BackendSQLite
	}
	cfg.Cache.SQLitePath = strings.TrimSpace(os.Getenv("CHATVAULT_SQLITE_PATH"))
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = defaultSQLitePath
	}
	cfg.Cache.SQLiteTuning = readBool("CHATVAULT_SQLITE_TUNING", true)
	cfg.Cache.RedisURL = strings.TrimSpace(os.Getenv("CHATVAULT_REDIS_URL"))
	if cfg.Cache.Backend == BackendRedis && cfg.Cache.RedisURL == "" {
		cfg.Cache.Backend = BackendSQLite
	}
	cfg.Cache.GlobalsMins = readInt("CHATVAULT_GLOBALS_TTL_MINS", defaultGlobalsMins)
	cfg.Cache.OriginHours = readInt("CHATVAULT_ORIGIN_TTL_HOURS", defaultOriginHours)

	cfg.Locale.Default = strings.TrimSpace(os.Getenv("CHATVAULT_LOCALE"))
	if cfg.Locale.Default == "" {
		cfg.Locale.Default = defaultLocale
	}
	cfg.Locale.Dir = strings.TrimSpace(os.Getenv("CHATVAULT_LOCALES_DIR"))

	cfg.Upstream.TimeoutSecs = readInt("CHATVAULT_UPSTREAM_TIMEOUT_SECS", defaultTimeoutSecs)
	cfg.Upstream.HostRPS = readInt("CHATVAULT_UPSTREAM_RPS", defaultHostRPS)

	cfg.Twitch.ClientID = strings.TrimSpace(os.Getenv("CHATVAULT_TWITCH_CLIENT_ID"))

	cfg.Log.Format = strings.ToLower(strings.TrimSpace(os.Getenv("CHATVAULT_LOG_FORMAT")))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(os.Getenv("CHATVAULT_LOG_LEVEL")))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(v))
	}
	sort.Strings(out)
	return out
}

func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}

func readBool(name string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// SplitList parses a comma, semicolon or whitespace separated flag value.
func SplitList(raw string) []string { return splitList(raw) }

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSecs) * time.Second
}

func (c Config) GlobalsTTL() time.Duration {
	return time.Duration(c.Cache.GlobalsMins) * time.Minute
}

func (c Config) OriginTTL() time.Duration {
	return time.Duration(c.Cache.OriginHours) * time.Hour
}

func (c Config) Summary() Summary {
	return Summary{
		Addr:        c.HTTP.Addr,
		CORSOrigins: len(c.HTTP.CORSOrigins),
		Cache:       c.Cache.Backend,
		SQLitePath:  c.Cache.SQLitePath,
		RedisURL:    redactURL(c.Cache.RedisURL),
		Locale:      c.Locale.Default,
		LocalesDir:  c.Locale.Dir,
		ClientID:    redactString(c.Twitch.ClientID),
	}
}

type Summary struct {
	Addr        string `json:"addr"`
	CORSOrigins int    `json:"cors_origins"`
	Cache       string `json:"cache"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
	RedisURL    string `json:"redis_url,omitempty"`
	Locale      string `json:"locale"`
	LocalesDir  string `json:"locales_dir,omitempty"`
	ClientID    string `json:"twitch_client_id,omitempty"`
}

func (c Config) Redacted() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"addr":         c.HTTP.Addr,
			"cors_origins": append([]string(nil), c.HTTP.CORSOrigins...),
			"rate_rps":     c.HTTP.RateRPS,
			"rate_burst":   c.HTTP.RateBurst,
			"metrics":      c.HTTP.Metrics,
			"access_log":   c.HTTP.AccessLog,
		},
		"cache": map[string]any{
			"backend":      c.Cache.Backend,
			"sqlite_path":  c.Cache.SQLitePath,
			"sqlite_tune":  c.Cache.SQLiteTuning,
			"redis_url":    redactURL(c.Cache.RedisURL),
			"globals_mins": c.Cache.GlobalsMins,
			"origin_hours": c.Cache.OriginHours,
		},
		"locale": map[string]any{
			"default": c.Locale.Default,
			"dir":     c.Locale.Dir,
		},
		"upstream": map[string]any{
			"timeout_secs": c.Upstream.TimeoutSecs,
			"host_rps":     c.Upstream.HostRPS,
		},
		"twitch": map[string]any{
			"client_id": redactString(c.Twitch.ClientID),
		},
		"log": map[string]any{
			"format": c.Log.Format,
			"level":  c.Log.Level,
		},
	}
}

func (c Config) RedactedJSON() []byte {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return data
}

func redactString(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "***REDACTED*** (len=" + strconv.Itoa(len(value)) + ")"
}

// redactURL keeps the scheme and host of a DSN and hides credentials.
func redactURL(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(value, "://")
	if !ok {
		return redactString(value)
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}

func (c Config) SummaryJSON() []byte {
	summary := struct {
		Config Summary `json:"config_summary"`
	}{Config: c.Summary()}
	data, _ := json.Marshal(summary)
	return data
}
