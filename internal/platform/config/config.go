package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "PROMOCLOCK_"

	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultPubSubTopic      = "promotion-countdown-events"
	defaultTickInterval     = time.Second
	defaultUrgentThreshold  = time.Hour
	defaultCriticalThreshold = 10 * time.Minute
	defaultWatchSync        = 5 * time.Minute
	defaultWatchLookahead   = 24 * time.Hour
	defaultWatchLimit       = 200
	defaultLanguage         = "ja"
)

// Config is the runtime configuration grouped by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	PubSub    PubSubConfig
	Countdown CountdownConfig
	Features  FeatureFlags
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig points at the promotions database.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig configures where countdown edge events are published.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	EmulatorHost string
}

// CountdownConfig holds engine defaults applied when a promotion or preset
// does not override them.
type CountdownConfig struct {
	TickInterval      time.Duration
	UrgentThreshold   time.Duration
	CriticalThreshold time.Duration
	PresetsFile       string
	WatchSyncInterval time.Duration
	WatchLookahead    time.Duration
	WatchLimit        int
	RetroactiveStart  bool
	DefaultLanguage   string
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnableWatcher bool
}

// ValidationError lists configuration fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the dotenv path; "" disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies explicit values that win over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load resolves configuration from defaults, the dotenv file, the process
// environment and any explicit map, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		key = envPrefix + key
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnv[key]
		return value, ok
	}

	var invalid []string
	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout, &invalid),
			WriteTimeout: durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &invalid),
			IdleTimeout:  durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &invalid),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:    stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
			Topic:        stringWithDefault(lookup, "PUBSUB_TOPIC", defaultPubSubTopic),
			EmulatorHost: stringWithDefault(lookup, "PUBSUB_EMULATOR_HOST", ""),
		},
		Countdown: CountdownConfig{
			TickInterval:      durationWithDefault(lookup, "COUNTDOWN_TICK_INTERVAL", defaultTickInterval, &invalid),
			UrgentThreshold:   durationWithDefault(lookup, "COUNTDOWN_URGENT_THRESHOLD", defaultUrgentThreshold, &invalid),
			CriticalThreshold: durationWithDefault(lookup, "COUNTDOWN_CRITICAL_THRESHOLD", defaultCriticalThreshold, &invalid),
			PresetsFile:       stringWithDefault(lookup, "COUNTDOWN_PRESETS_FILE", ""),
			WatchSyncInterval: durationWithDefault(lookup, "COUNTDOWN_WATCH_SYNC_INTERVAL", defaultWatchSync, &invalid),
			WatchLookahead:    durationWithDefault(lookup, "COUNTDOWN_WATCH_LOOKAHEAD", defaultWatchLookahead, &invalid),
			WatchLimit:        intWithDefault(lookup, "COUNTDOWN_WATCH_LIMIT", defaultWatchLimit, &invalid),
			RetroactiveStart:  boolWithDefault(lookup, "COUNTDOWN_RETROACTIVE_START", false),
			DefaultLanguage:   stringWithDefault(lookup, "COUNTDOWN_DEFAULT_LANGUAGE", defaultLanguage),
		},
		Features: FeatureFlags{
			EnableWatcher: boolWithDefault(lookup, "FEATURE_ENABLE_WATCHER", false),
		},
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	if err := validate(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config, invalid []string) error {
	fields := append([]string(nil), invalid...)
	if strings.TrimSpace(cfg.Server.Port) == "" {
		fields = append(fields, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		fields = append(fields, "Firestore.ProjectID")
	}
	if cfg.Countdown.TickInterval <= 0 {
		fields = append(fields, "Countdown.TickInterval")
	}
	if cfg.Countdown.CriticalThreshold < 0 || cfg.Countdown.CriticalThreshold > cfg.Countdown.UrgentThreshold {
		fields = append(fields, "Countdown.CriticalThreshold")
	}
	if cfg.Features.EnableWatcher {
		if cfg.PubSub.Topic == "" {
			fields = append(fields, "PubSub.Topic")
		}
		if cfg.Countdown.WatchSyncInterval <= 0 {
			fields = append(fields, "Countdown.WatchSyncInterval")
		}
		if cfg.Countdown.WatchLimit <= 0 {
			fields = append(fields, "Countdown.WatchLimit")
		}
	}
	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

type lookupFunc func(string) (string, bool)

func stringWithDefault(lookup lookupFunc, key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// durationWithDefault accepts Go durations ("90s") and bare milliseconds.
func durationWithDefault(lookup lookupFunc, key string, fallback time.Duration, invalid *[]string) time.Duration {
	value, ok := lookup(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return fallback
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*invalid = append(*invalid, envPrefix+key)
		return fallback
	}
	return d
}

func intWithDefault(lookup lookupFunc, key string, fallback int, invalid *[]string) int {
	value, ok := lookup(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*invalid = append(*invalid, envPrefix+key)
		return fallback
	}
	return parsed
}

func boolWithDefault(lookup lookupFunc, key string, fallback bool) bool {
	if value, ok := lookup(key); ok {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
