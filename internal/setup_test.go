package internal

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestMain installs a console logger; RESULTMAP_TEST_LOG_LEVEL overrides the debug default.
func TestMain(m *testing.M) {
	level := zapcore.DebugLevel
	if raw := os.Getenv("RESULTMAP_TEST_LOG_LEVEL"); raw != "" {
		parsed, err := zapcore.ParseLevel(raw)
		if err != nil {
			panic(err)
		}
		level = parsed
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	RegisterTelemetryEmitter(nil)

	code := m.Run()
	_ = logger.Sync()
	os.Exit(code)
}
