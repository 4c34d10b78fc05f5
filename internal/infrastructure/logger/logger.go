package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
type Config struct {
	Level      string // error, warn, info, debug, trace
	Format     string // json, pretty
	OutputPath string // stdout, stderr, or file path
}

// NewLogger 创建新的日志实例
func NewLogger(cfg Config) (*zap.Logger, error) {
	// trace has no zap equivalent, map it to debug
	lvl := cfg.Level
	if lvl == "trace" {
		lvl = "debug"
	}
	level, err := zapcore.ParseLevel(lvl)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// pretty 使用 console 编码
	encoding := "json"
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "pretty" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	output := cfg.OutputPath
	if output == "" {
		output = "stdout"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
