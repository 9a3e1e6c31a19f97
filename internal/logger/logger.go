// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"os"

	// Registers the "logfmt" encoder with zap.
	_ "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
)

// New returns a production logger writing logfmt to stdout at level, tagged with the host
// and service name.
func New(service, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "logfmt"
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logger level %q: %w", level, err)
	}
	cfg.InitialFields = make(map[string]any)
	cfg.InitialFields["host"], _ = os.Hostname()
	cfg.InitialFields["service"] = service
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}
