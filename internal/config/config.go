package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultSensors are the temperature entities read when the settings file
// names none.
var DefaultSensors = []string{"temperature_10", "temperature_13", "temperature_16"}

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	// Timezone is the IANA name used for hour/day buckets and display.
	Timezone string
	Location *time.Location

	SettingsPath string
	HABaseURL    string
	HAToken      string
	HATimeout    time.Duration
	HAHeaders    map[string]string
	Sensors      []string

	// MQTTBroker empty disables publishing and ingest.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	// RedisAddr empty selects the no-op cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	logLevelName string
}

// Settings is the home-automation settings file. JSON files are accepted
// too since JSON is valid YAML. Server is a bare host name and becomes
// https://{server} when BaseURL is empty.
type Settings struct {
	BaseURL string            `yaml:"base_url"`
	Server  string            `yaml:"server"`
	Token   string            `yaml:"token"`
	Headers map[string]string `yaml:"headers"`
	Sensors []string          `yaml:"sensors"`
}

func LoadFromEnv() (Config, error) {
	appEnv := envString("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	cfg := Config{
		AppEnv:          appEnv,
		logLevelName:    envString("LOG_LEVEL", "info"),
		HTTPAddr:        envString("HTTP_ADDR", ":8080"),
		StaticDir:       envString("STATIC_DIR", "static"),
		Driver:          envString("DB_DRIVER", "sqlite3"),
		DSN:             envString("DB_DSN", ""),
		Path:            envString("SQLITE_PATH", "data/temps.db"),
		Timezone:        envString("TIMEZONE", "Europe/Stockholm"),
		SettingsPath:    envString("SETTINGS_PATH", ""),
		HABaseURL:       envString("HA_BASE_URL", ""),
		HAToken:         envString("HA_TOKEN", ""),
		MQTTBroker:      envString("MQTT_BROKER", ""),
		MQTTClientID:    envString("MQTT_CLIENT_ID", "tempapp"),
		MQTTTopicPrefix: envString("MQTT_TOPIC_PREFIX", "home/temps"),
		RedisAddr:       envString("REDIS_ADDR", ""),
		RedisPassword:   envString("REDIS_PASSWORD", ""),
	}

	var err error
	if cfg.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.ConnMaxLifetime, err = envDuration("DB_CONN_MAX_LIFETIME", 0); err != nil {
		return Config{}, err
	}
	if cfg.LogSQL, err = envBool("DB_LOG_SQL", false); err != nil {
		return Config{}, err
	}
	if cfg.HATimeout, err = envDuration("HA_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort, err = envInt("MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.LogLevel, err = parseLogLevel(cfg.logLevelName); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindFlags registers command-line overrides on fs, using the current
// values as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.logLevelName, "log-level", c.logLevelName, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.StaticDir, "static-dir", c.StaticDir, "Directory served at /static/")
	fs.StringVar(&c.Path, "sqlite-path", c.Path, "SQLite database file")
	fs.BoolVar(&c.LogSQL, "log-sql", c.LogSQL, "Log every SQL statement at debug level")
	fs.StringVar(&c.Timezone, "timezone", c.Timezone, "IANA time zone for buckets and display")
	fs.StringVarP(&c.SettingsPath, "settings", "s", c.SettingsPath, "Settings file (YAML or JSON)")
	fs.StringVar(&c.HABaseURL, "ha-base-url", c.HABaseURL, "Home automation server base URL")
	fs.DurationVar(&c.HATimeout, "ha-timeout", c.HATimeout, "Timeout for one sensor request")
	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname (empty disables MQTT)")
	fs.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")
	fs.StringVar(&c.MQTTTopicPrefix, "mqtt-topic-prefix", c.MQTTTopicPrefix, "MQTT topic prefix for readings")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address (empty disables caching)")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "Lifetime of cached aggregates")
}

// Resolve finishes a config after flags were parsed: log level, time zone,
// static dir and the settings file. Values set in the environment or on the
// command line win over the settings file.
func (c *Config) Resolve() error {
	level, err := parseLogLevel(c.logLevelName)
	if err != nil {
		return err
	}
	c.LogLevel = level

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	staticDir, err := filepath.Abs(c.StaticDir)
	if err != nil {
		return fmt.Errorf("STATIC_DIR %q: %w", c.StaticDir, err)
	}
	c.StaticDir = staticDir

	if c.SettingsPath != "" {
		s, err := LoadSettings(c.SettingsPath)
		if err != nil {
			return err
		}
		c.applySettings(s)
	}
	if len(c.Sensors) == 0 {
		c.Sensors = append([]string(nil), DefaultSensors...)
	}
	c.HABaseURL = strings.TrimRight(c.HABaseURL, "/")
	return c.Validate()
}

func (c *Config) applySettings(s Settings) {
	if c.HABaseURL == "" {
		c.HABaseURL = s.baseURL()
	}
	if c.HAToken == "" {
		c.HAToken = s.Token
	}
	if len(s.Headers) > 0 {
		c.HAHeaders = make(map[string]string, len(s.Headers))
		for k, v := range s.Headers {
			c.HAHeaders[k] = v
		}
	}
	if len(c.Sensors) == 0 {
		c.Sensors = append([]string(nil), s.Sensors...)
	}
}

func (s Settings) baseURL() string {
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/")
	}
	if s.Server != "" {
		return "https://" + strings.TrimRight(s.Server, "/")
	}
	return ""
}

func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	for i, e := range s.Sensors {
		s.Sensors[i] = strings.TrimPrefix(strings.TrimSpace(e), "sensor.")
	}
	return s, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Location == nil {
		errs = append(errs, errors.New("time zone not resolved"))
	}
	if c.HATimeout <= 0 {
		errs = append(errs, fmt.Errorf("HA_TIMEOUT must be positive, got %s", c.HATimeout))
	}
	if c.MQTTBroker != "" && (c.MQTTPort <= 0 || c.MQTTPort > 65535) {
		errs = append(errs, fmt.Errorf("MQTT_PORT out of range: %d", c.MQTTPort))
	}
	if c.MQTTBroker != "" && strings.TrimSpace(c.MQTTTopicPrefix) == "" {
		errs = append(errs, errors.New("MQTT_TOPIC_PREFIX must not be empty"))
	}
	if c.RedisAddr != "" && c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	for _, e := range c.Sensors {
		if e == "" || strings.ContainsAny(e, "/ ") {
			errs = append(errs, fmt.Errorf("invalid sensor entity %q", e))
		}
	}
	return errors.Join(errs...)
}

// ValidateFetch checks what the acquisition job needs on top of Validate.
func (c Config) ValidateFetch() error {
	if c.HABaseURL == "" {
		return errors.New("no home automation server configured (HA_BASE_URL or settings file)")
	}
	if !strings.HasPrefix(c.HABaseURL, "http://") && !strings.HasPrefix(c.HABaseURL, "https://") {
		return fmt.Errorf("HA base URL must be http(s): %q", c.HABaseURL)
	}
	if len(c.Sensors) == 0 {
		return errors.New("no sensors configured")
	}
	return nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
