package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"smeaudit/internal/config"
	"smeaudit/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/smeaudit_test")
	t.Setenv("JWT_SECRET", testSecret)

	cfg, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Uploads.MaxFileBytes != 25<<20 || cfg.Uploads.MaxFiles != 10 {
		t.Errorf("upload limits = %d/%d", cfg.Uploads.MaxFileBytes, cfg.Uploads.MaxFiles)
	}
	if cfg.Chat.ConfirmationTTL != 15*time.Minute {
		t.Errorf("ConfirmationTTL = %s, want 15m", cfg.Chat.ConfirmationTTL)
	}
	if cfg.Kafka.Enabled() {
		t.Error("kafka should be disabled without brokers")
	}

	tol, err := cfg.Matching.Tolerances()
	if err != nil {
		t.Fatalf("Tolerances: %v", err)
	}
	def := core.DefaultMatchTolerances()
	if !tol.Qty.Equal(def.Qty) || !tol.Value.Equal(def.Value) || !tol.GST.Equal(def.GST) {
		t.Errorf("configured tolerances %+v differ from defaults %+v", tol, def)
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := []byte("server:\n  port: 9000\nmatching:\n  value_tolerance: \"5\"\nlogger:\n  level: debug\n")
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SME_SERVER__PORT", "9100")
	t.Setenv("SME_REDIS__ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env should win over file: port = %d", cfg.Server.Port)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("file should win over defaults: level = %q", cfg.Logger.Level)
	}
	if cfg.Matching.ValueTolerance != "5" {
		t.Errorf("value tolerance = %q, want 5", cfg.Matching.ValueTolerance)
	}
	tol, err := cfg.Matching.Tolerances()
	if err != nil {
		t.Fatalf("Tolerances: %v", err)
	}
	if !tol.Value.Equal(decimal.NewFromInt(5)) || !tol.GST.Equal(decimal.NewFromInt(1)) {
		t.Errorf("tolerances = %+v, want value 5 and gst 1", tol)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	if _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.yml")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Application: "smeaudit",
		Logger:      config.Logger{Level: "info"},
		Server:      config.Server{Port: 0},
		Auth:        config.Auth{JWTSecret: "short", TokenTTL: time.Hour},
		Kafka:       config.Kafka{Brokers: []string{"k1:9092"}},
		Uploads:     config.Uploads{Dir: "up", MaxFileBytes: 1, MaxFiles: 1},
		Chat:        config.Chat{ConfirmationTTL: time.Minute},
		Matching:    config.Matching{QtyTolerance: "0", ValueTolerance: "-1", GSTTolerance: "abc"},
	}
	err := cfg.Validate()
	var ve *core.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	for _, key := range []string{
		"server.port", "auth.jwt_secret", "database.url",
		"kafka.upload_topic", "kafka.status_topic",
		"matching.value_tolerance", "matching.gst_tolerance",
	} {
		if _, ok := ve.Fields[key]; !ok {
			t.Errorf("missing error for %s: %v", key, ve.Fields)
		}
	}
}
