package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string     `yaml:"level"`
	Format     string     `yaml:"format"`
	TimeFormat string     `yaml:"time_format"`
	Timezone   string     `yaml:"timezone"`
	File       FileConfig `yaml:"file"`
}

// FileConfig enables a rotated log file next to stdout. An empty Path disables it.
type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func NewLogger(cfg Config) (*zap.Logger, error) {
	// Set default values
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "console"
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Parse log level
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	// Create encoder config
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     customTimeEncoder(cfg.TimeFormat, cfg.Timezone),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}

	// File output never carries color codes
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}

	if cfg.File.Path != "" {
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(newRotatingWriter(cfg.File)), level))
	}

	// Create logger
	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	return logger, nil
}

func newRotatingWriter(cfg FileConfig) *lumberjack.Logger {
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

func customTimeEncoder(format, timezone string) zapcore.TimeEncoder {
	loc := time.Local
	if timezone != "Local" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		} else {
			loc = time.UTC
		}
	}

	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(format))
	}
}

func customCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	fullPath := caller.FullPath()

	// Show the path relative to the project root when we can find it
	if strings.Contains(fullPath, "/affpress/") {
		parts := strings.Split(fullPath, "/affpress/")
		if len(parts) > 1 {
			enc.AppendString(parts[len(parts)-1])
			return
		}
	}

	enc.AppendString(caller.TrimmedPath())
}
