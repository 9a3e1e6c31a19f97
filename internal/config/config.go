// Package config loads server and CLI settings from embedded defaults, an optional YAML
// file, SME_-prefixed environment variables and the conventional secret variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/shopspring/decimal"

	"smeaudit/internal/core"
)

// EnvPrefix marks environment variables that override config keys. A double underscore
// separates key levels: SME_SERVER__PORT sets server.port.
const EnvPrefix = "SME_"

var DefaultConfig = []byte(`
application: "smeaudit"

logger:
  level: "info"

is_prod_mode: false

server:
  port: 8080
  allowed_origins: ""
  max_body_bytes: 1048576

auth:
  jwt_secret: ""
  token_ttl: "12h"

database:
  url: ""
  max_conns: 10

redis:
  addr: ""
  password: ""
  db: 0

kafka:
  brokers: []
  upload_topic: "document.uploaded"
  status_topic: "document.status"
  consumer_group: "smeaudit-document-status"
  records_per_poll: 100

openai:
  api_key: ""
  model: "gpt-4o-mini"
  max_tool_rounds: 6

uploads:
  dir: "./uploads"
  max_file_bytes: 26214400
  max_files: 10
  retention: "168h"

matching:
  qty_tolerance: "0"
  value_tolerance: "1.00"
  gst_tolerance: "1.00"

chat:
  confirmation_ttl: "15m"
`)

type Config struct {
	Application string   `koanf:"application"`
	Logger      Logger   `koanf:"logger"`
	IsProdMode  bool     `koanf:"is_prod_mode"`
	Server      Server   `koanf:"server"`
	Auth        Auth     `koanf:"auth"`
	Database    Database `koanf:"database"`
	Redis       Redis    `koanf:"redis"`
	Kafka       Kafka    `koanf:"kafka"`
	OpenAI      OpenAI   `koanf:"openai"`
	Uploads     Uploads  `koanf:"uploads"`
	Matching    Matching `koanf:"matching"`
	Chat        Chat     `koanf:"chat"`
}

type Logger struct {
	Level string `koanf:"level"`
}

type Server struct {
	Port           int    `koanf:"port"`
	AllowedOrigins string `koanf:"allowed_origins"`
	MaxBodyBytes   int64  `koanf:"max_body_bytes"`
}

type Auth struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type Database struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

// Redis is optional. An empty Addr keeps pending confirmations in process memory.
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Kafka is optional. With no brokers, document events are not published.
type Kafka struct {
	Brokers        []string `koanf:"brokers"`
	UploadTopic    string   `koanf:"upload_topic"`
	StatusTopic    string   `koanf:"status_topic"`
	ConsumerGroup  string   `koanf:"consumer_group"`
	RecordsPerPoll int      `koanf:"records_per_poll"`
}

// Enabled reports whether any broker is configured.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

type OpenAI struct {
	APIKey        string `koanf:"api_key"`
	Model         string `koanf:"model"`
	MaxToolRounds int    `koanf:"max_tool_rounds"`
}

type Uploads struct {
	Dir          string        `koanf:"dir"`
	MaxFileBytes int64         `koanf:"max_file_bytes"`
	MaxFiles     int           `koanf:"max_files"`
	Retention    time.Duration `koanf:"retention"`
}

// Matching holds PO-invoice tolerances as decimal strings.
type Matching struct {
	QtyTolerance   string `koanf:"qty_tolerance"`
	ValueTolerance string `koanf:"value_tolerance"`
	GSTTolerance   string `koanf:"gst_tolerance"`
}

// Tolerances parses the configured strings. Call Validate first.
func (m Matching) Tolerances() (core.MatchTolerances, error) {
	qty, err := decimal.NewFromString(m.QtyTolerance)
	if err != nil {
		return core.MatchTolerances{}, fmt.Errorf("matching.qty_tolerance: %w", err)
	}
	value, err := decimal.NewFromString(m.ValueTolerance)
	if err != nil {
		return core.MatchTolerances{}, fmt.Errorf("matching.value_tolerance: %w", err)
	}
	gst, err := decimal.NewFromString(m.GSTTolerance)
	if err != nil {
		return core.MatchTolerances{}, fmt.Errorf("matching.gst_tolerance: %w", err)
	}
	return core.MatchTolerances{Qty: qty, Value: value, GST: gst}, nil
}

type Chat struct {
	ConfirmationTTL time.Duration `koanf:"confirmation_ttl"`
}

// Load layers the embedded defaults, the YAML file at path (skipped when path is empty or
// missing), SME_ environment variables and finally the plain secret variables.
func Load(path string) (*Config, *koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(DefaultConfig), yaml.Parser()); err != nil {
		return nil, nil, fmt.Errorf("load default config: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	LoadSecrets(cfg)
	return cfg, k, nil
}

// envKey maps SME_KAFKA__UPLOAD_TOPIC to kafka.upload_topic.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadSecrets overrides the config with the unprefixed variables deployments already set.
func LoadSecrets(c *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		c.Uploads.Dir = v
	}
	c.IsProdMode = c.IsProdMode || os.Getenv("IS_PROD_MODE") == "true"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks the configuration for the API server.
func (c *Config) Validate() error {
	ve := core.NewValidationErrors()

	if c.Application == "" {
		ve.Add("application", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		ve.Add("server.port", "must be between 1 and 65535")
	}
	if len(c.Auth.JWTSecret) < 32 {
		ve.Add("auth.jwt_secret", "must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		ve.Add("auth.token_ttl", "must be positive")
	}
	if c.Database.URL == "" {
		ve.Add("database.url", "cannot be empty")
	}
	if c.Kafka.Enabled() {
		if c.Kafka.UploadTopic == "" {
			ve.Add("kafka.upload_topic", "cannot be empty when brokers are set")
		}
		if c.Kafka.StatusTopic == "" {
			ve.Add("kafka.status_topic", "cannot be empty when brokers are set")
		}
	}
	if c.Uploads.Dir == "" {
		ve.Add("uploads.dir", "cannot be empty")
	}
	if c.Uploads.MaxFileBytes <= 0 {
		ve.Add("uploads.max_file_bytes", "must be positive")
	}
	if c.Uploads.MaxFiles <= 0 {
		ve.Add("uploads.max_files", "must be positive")
	}
	if c.Chat.ConfirmationTTL <= 0 {
		ve.Add("chat.confirmation_ttl", "must be positive")
	}
	for key, v := range map[string]string{
		"matching.qty_tolerance":   c.Matching.QtyTolerance,
		"matching.value_tolerance": c.Matching.ValueTolerance,
		"matching.gst_tolerance":   c.Matching.GSTTolerance,
	} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			ve.Add(key, "must be a decimal number")
		} else if d.IsNegative() {
			ve.Add(key, "cannot be negative")
		}
	}

	return ve.Err()
}
