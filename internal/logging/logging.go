// Package logging builds the run logger: a console core on stderr plus a
// JSON core on a rotating file.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultFile  = "logs/log.txt"
	DefaultLevel = "info"

	maxSizeMB  = 1
	maxBackups = 10
)

// Options configures New.
type Options struct {
	// File is the rotating log file; empty disables the file sink.
	File  string
	Level string
	// Console receives human-readable output; nil means stderr.
	Console io.Writer
}

// New returns a logger tagged with a fresh run_id, and a sync func to call
// before exit.
func New(opts Options) (*zap.Logger, func(), error) {
	if opts.Level == "" {
		opts.Level = DefaultLevel
	}
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if console != os.Stderr {
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	var rotator *lumberjack.Logger
	if opts.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), level))
	}

	log := zap.New(zapcore.NewTee(cores...)).With(zap.String("run_id", uuid.NewString()))
	sync := func() {
		_ = log.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return log, sync, nil
}
