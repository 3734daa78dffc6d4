package logging

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lj "gopkg.in/natefinch/lumberjack.v2"

	"github.com/actionsum/sac/internal/config"
)

// Default rotation values, used when the config leaves them at zero.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// New builds the process logger. With cfg.File set it writes JSON lines to a
// rotated file; otherwise it writes human readable lines to stderr.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var core zapcore.Core
	if cfg.File != "" {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(Writer(cfg)), level)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
	}

	return zap.New(core, zap.AddCaller()), nil
}

// Writer returns the rotating file writer for cfg.File.
func Writer(cfg config.LogConfig) *lj.Logger {
	return &lj.Logger{
		Filename:   cfg.File,
		MaxSize:    valOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(cfg.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   cfg.Compress,
	}
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
