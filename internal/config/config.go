// Package config reads service settings from the environment and draft
// settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/oracle"
	"github.com/Billy-Davies-2/draft-oracle/internal/statsfeed"
)

// Config is everything main needs to wire the service.
type Config struct {
	Environment string
	LogLevel    string
	Port        string
	GRPCPort    string

	DBDriver    string
	SQLiteFile  string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL     string
	NATSSubject string

	ClickHouseAddr     string
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string
	StatsSeason        int

	AuthentikBaseURL      string
	AuthentikClientID     string
	AuthentikClientSecret string
	AuthentikRedirectURL  string

	OracleURL          string
	OracleTokenURL     string
	OracleClientID     string
	OracleClientSecret string
	OracleMaxAttempts  int
	OraclePollInterval time.Duration
	OracleMaxPolls     int

	DraftConfigFile string
	Draft           DraftSettings
}

// Development reports whether embedded services stand in for external ones.
func (c *Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load reads the environment through getenv (os.Getenv when nil) and the
// YAML file named by DRAFT_CONFIG, if any.
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := envReader{get: getenv}

	c := &Config{
		Environment: env.str("ENVIRONMENT", "development"),
		LogLevel:    env.str("LOG_LEVEL", "info"),
		Port:        env.str("PORT", "3000"),
		GRPCPort:    env.str("GRPC_PORT", "50051"),

		DBDriver:    strings.ToLower(env.str("DB_DRIVER", "memory")),
		SQLiteFile:  env.str("SQLITE_FILE", "dev.sqlite"),
		DatabaseURL: env.str("DATABASE_URL", ""),

		RedisAddr:     env.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: env.str("REDIS_PASSWORD", ""),
		RedisDB:       env.integer("REDIS_DB", 0),

		NATSURL:     env.str("NATS_URL", "nats://localhost:4222"),
		NATSSubject: env.str("NATS_SUBJECT", "draft.events"),

		ClickHouseAddr:     env.str("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:       env.str("CLICKHOUSE_DB", "default"),
		ClickHouseUser:     env.str("CLICKHOUSE_USER", "default"),
		ClickHousePassword: env.str("CLICKHOUSE_PASSWORD", ""),
		StatsSeason:        env.integer("STATS_SEASON", time.Now().Year()-1),

		AuthentikBaseURL:      env.str("AUTHENTIK_BASE_URL", ""),
		AuthentikClientID:     env.str("AUTHENTIK_CLIENT_ID", ""),
		AuthentikClientSecret: env.str("AUTHENTIK_CLIENT_SECRET", ""),
		AuthentikRedirectURL:  env.str("AUTHENTIK_REDIRECT_URL", "http://localhost:3000/auth/callback"),

		OracleURL:          env.str("ORACLE_URL", ""),
		OracleTokenURL:     env.str("ORACLE_TOKEN_URL", ""),
		OracleClientID:     env.str("ORACLE_CLIENT_ID", ""),
		OracleClientSecret: env.str("ORACLE_CLIENT_SECRET", ""),
		OracleMaxAttempts:  env.integer("ORACLE_MAX_ATTEMPTS", oracle.DefaultMaxAttempts),
		OraclePollInterval: env.duration("ORACLE_POLL_INTERVAL", 2*time.Second),
		OracleMaxPolls:     env.integer("ORACLE_MAX_POLLS", 90),

		DraftConfigFile: env.str("DRAFT_CONFIG", ""),
	}
	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	settings := DefaultDraftSettings()
	if c.DraftConfigFile != "" {
		s, err := LoadDraftSettings(c.DraftConfigFile)
		if err != nil {
			return nil, err
		}
		settings = s
	}
	c.Draft = settings

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "memory", "sqlite", "redis":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is required for postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER: %s (valid: memory, sqlite, postgres, redis)", c.DBDriver)
	}
	if !c.Development() && (c.AuthentikBaseURL == "" || c.AuthentikClientID == "" || c.AuthentikClientSecret == "") {
		return errors.New("AUTHENTIK_BASE_URL, AUTHENTIK_CLIENT_ID, and AUTHENTIK_CLIENT_SECRET environment variables are required for production")
	}
	if c.OracleMaxAttempts < 1 {
		return fmt.Errorf("ORACLE_MAX_ATTEMPTS must be at least 1, got %d", c.OracleMaxAttempts)
	}
	if c.OracleURL != "" {
		if c.OraclePollInterval <= 0 {
			return fmt.Errorf("ORACLE_POLL_INTERVAL must be positive, got %s", c.OraclePollInterval)
		}
		if c.OracleMaxPolls < 1 {
			return fmt.Errorf("ORACLE_MAX_POLLS must be at least 1, got %d", c.OracleMaxPolls)
		}
	}
	return c.Draft.Validate()
}

// DraftSettings is the YAML draft configuration file.
type DraftSettings struct {
	NumTeams      int               `yaml:"num_teams"`
	NumRounds     int               `yaml:"num_rounds"`
	PositionQuota int               `yaml:"position_quota"`
	Strategies    map[string]string `yaml:"strategies"`
	TeamNames     []string          `yaml:"team_names"`
}

// DefaultDraftSettings is used when no file is configured.
func DefaultDraftSettings() DraftSettings {
	strategies := make(map[string]string, len(oracle.DefaultStrategies))
	for k, v := range oracle.DefaultStrategies {
		strategies[k] = v
	}
	return DraftSettings{
		NumTeams:      2,
		NumRounds:     draft.MaxRounds,
		PositionQuota: statsfeed.DefaultQuota,
		Strategies:    strategies,
	}
}

// LoadDraftSettings reads path. Fields the file omits keep their defaults;
// unknown fields are rejected.
func LoadDraftSettings(path string) (DraftSettings, error) {
	f, err := os.Open(path)
	if err != nil {
		return DraftSettings{}, fmt.Errorf("open draft config: %w", err)
	}
	defer f.Close()

	s := DefaultDraftSettings()
	s.Strategies = nil
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return DraftSettings{}, fmt.Errorf("parse draft config %s: %w", path, err)
	}
	if s.Strategies == nil {
		s.Strategies = DefaultDraftSettings().Strategies
	}
	if err := s.Validate(); err != nil {
		return DraftSettings{}, fmt.Errorf("draft config %s: %w", path, err)
	}
	return s, nil
}

// Validate applies the same bounds the engine enforces.
func (s DraftSettings) Validate() error {
	if s.PositionQuota < 1 {
		return fmt.Errorf("position_quota must be at least 1, got %d", s.PositionQuota)
	}
	return s.DraftConfig(0).Validate()
}

// DraftConfig converts the settings into an engine configuration.
func (s DraftSettings) DraftConfig(season int) draft.Config {
	return draft.Config{
		NumTeams:      s.NumTeams,
		NumRounds:     s.NumRounds,
		Strategies:    draft.SortedStrategies(s.Strategies),
		TeamNames:     append([]string(nil), s.TeamNames...),
		PositionQuota: s.PositionQuota,
		Season:        season,
	}
}

type envReader struct {
	get  func(string) string
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
