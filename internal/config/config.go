package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort           = 5001
	defaultEnv            = "development"
	defaultStoreDriver    = StoreDriverMySQL
	defaultDBHost         = "127.0.0.1"
	defaultDBPort         = 3306
	defaultDBUser         = "root"
	defaultDBPassword     = "password"
	defaultDBName         = "accessmap"
	defaultDBCharset      = "utf8mb4"
	defaultDBLoc          = "Local"
	defaultMongoHost      = "127.0.0.1"
	defaultMongoPort      = 27017
	defaultMongoDatabase  = "accessmap"
	defaultRedisHost      = "localhost"
	defaultRedisPort      = 6379
	defaultRedisDB        = 0
	defaultAIType         = "openai"
	defaultSummaryModel   = "gpt-4o-mini"
	defaultMaxTokens      = 300
	defaultFetchLimit     = 50
	defaultPromptLimit    = 20
	defaultSummaryLock    = SummaryLockLocal
	defaultLockTTLSeconds = 60
)

const (
	StoreDriverMySQL = "mysql"
	StoreDriverMongo = "mongo"

	SummaryLockNone  = "none"
	SummaryLockLocal = "local"
	SummaryLockRedis = "redis"
)

// AppConfig holds runtime startup configuration loaded from YAML and the environment.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	DSN            string                `yaml:"-"`   // resolved MySQL DSN
	RedisURL       string                `yaml:"-"`
	MongoURI       string                `yaml:"-"`
	Store          StoreRuntimeConfig    `yaml:"store"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Mongo          MongoRuntimeConfig    `yaml:"mongo"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	AI             AIRuntimeConfig       `yaml:"ai"`
	Maps           MapsRuntimeConfig     `yaml:"maps"`
	Summary        SummaryRuntimeConfig  `yaml:"summary"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Timezone       string                `yaml:"timezone"`
}

type StoreRuntimeConfig struct {
	Driver string `yaml:"driver"` // mysql | mongo
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type MongoRuntimeConfig struct {
	URI        string `yaml:"uri"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	AuthSource string `yaml:"auth_source"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

// AIRuntimeConfig selects the text generation provider used for summaries.
type AIRuntimeConfig struct {
	Type            string `yaml:"type"` // openai | openai-compatible | anthropic
	APIKey          string `yaml:"api_key"`
	Endpoint        string `yaml:"endpoint"`
	SummaryModel    string `yaml:"summary_model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type MapsRuntimeConfig struct {
	APIKey string `yaml:"api_key"`
}

type SummaryRuntimeConfig struct {
	FetchLimit     int    `yaml:"fetch_limit"`
	PromptLimit    int    `yaml:"prompt_limit"`
	Lock           string `yaml:"lock"` // none | local | redis
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawAppConfig struct {
	AppConfig          `yaml:",inline"`
	DatabaseURL        string   `yaml:"database_url"`
	RedisURL           string   `yaml:"redis_url"`
	MongoURI           string   `yaml:"mongo_uri"`
	LogDir             string   `yaml:"log_dir"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TZ                 string   `yaml:"tz"`
}

// Load reads the YAML config file, then applies .env and process environment
// overrides. A missing file at the default path falls back to defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	raw := rawAppConfig{AppConfig: defaultAppConfig()}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := applyRawAppConfig(raw)
	applyEnvOverrides(&cfg, os.LookupEnv)
	cfg = normalizeAppConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:  defaultPort,
		Env:   defaultEnv,
		Store: StoreRuntimeConfig{Driver: defaultStoreDriver},
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Mongo: MongoRuntimeConfig{
			Host:     defaultMongoHost,
			Port:     defaultMongoPort,
			Database: defaultMongoDatabase,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		AI: AIRuntimeConfig{
			Type:            defaultAIType,
			SummaryModel:    defaultSummaryModel,
			MaxOutputTokens: defaultMaxTokens,
		},
		Summary: SummaryRuntimeConfig{
			FetchLimit:     defaultFetchLimit,
			PromptLimit:    defaultPromptLimit,
			Lock:           defaultSummaryLock,
			LockTTLSeconds: defaultLockTTLSeconds,
		},
	}
}

func applyRawAppConfig(raw rawAppConfig) AppConfig {
	cfg := raw.AppConfig
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.Redis.URL = v
	}
	if v := strings.TrimSpace(raw.MongoURI); v != "" {
		cfg.Mongo.URI = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if cfg.AllowedOrigins == nil && raw.CORSAllowedOrigins != nil {
		cfg.AllowedOrigins = raw.CORSAllowedOrigins
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}
	return cfg
}

// applyEnvOverrides lets deployments keep secrets out of the YAML file.
func applyEnvOverrides(cfg *AppConfig, lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Maps.APIKey = v
	}
	if v := get("OPENAI_API_KEY"); v != "" && isOpenAIType(cfg.AI.Type) {
		cfg.AI.APIKey = v
	}
	if v := get("ANTHROPIC_API_KEY"); v != "" && normalizeProviderType(cfg.AI.Type) == "anthropic" {
		cfg.AI.APIKey = v
	}
	if v := get("SUMMARY_MODEL"); v != "" {
		cfg.AI.SummaryModel = v
	}
	if v := get("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := get("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := get("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := get("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := get("ACCESSMAP_ENV"); v != "" {
		cfg.Env = v
	}
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Store.Driver {
	case StoreDriverMySQL:
		if c.Database.DSN == "" && (c.Database.Port < 1 || c.Database.Port > 65535) {
			return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" && (c.Mongo.Port < 1 || c.Mongo.Port > 65535) {
			return fmt.Errorf("invalid mongo.port %d, expected 1-65535", c.Mongo.Port)
		}
	default:
		return fmt.Errorf("invalid store.driver %q, expected mysql or mongo", c.Store.Driver)
	}
	switch c.Summary.Lock {
	case SummaryLockNone, SummaryLockLocal:
	case SummaryLockRedis:
		if c.Redis.URL == "" && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
			return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
		}
		if c.Summary.LockTTLSeconds < 1 {
			return fmt.Errorf("invalid summary.lock_ttl_seconds %d, expected >= 1", c.Summary.LockTTLSeconds)
		}
	default:
		return fmt.Errorf("invalid summary.lock %q, expected none, local or redis", c.Summary.Lock)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.Summary.FetchLimit < 1 {
		return fmt.Errorf("invalid summary.fetch_limit %d, expected >= 1", c.Summary.FetchLimit)
	}
	if c.Summary.PromptLimit < 1 {
		return fmt.Errorf("invalid summary.prompt_limit %d, expected >= 1", c.Summary.PromptLimit)
	}
	switch normalizeProviderType(c.AI.Type) {
	case "openai", "openai-compatible", "openaicompatible", "anthropic":
	default:
		return fmt.Errorf("invalid ai.type %q", c.AI.Type)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

func (c *AppConfig) LogDir() string {
	return c.Paths.Logs
}

func (c *AppConfig) UseRedis() bool {
	return c.Summary.Lock == SummaryLockRedis
}
