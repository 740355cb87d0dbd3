package logger

import (
	"courseconnect_backend/internal/config"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 在 InitLogger 之前为 Nop，测试里可直接使用各服务
var Log = zap.NewNop()

// level 由 InitLogger 创建的 logger 共享，SetLevel 可在运行时调整
var level = zap.NewAtomicLevelAt(zap.InfoLevel)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// ParseLevel 解析日志级别，空串按运行模式取默认值
func ParseLevel(raw, mode string) (zapcore.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if mode == "debug" {
			return zap.DebugLevel, nil
		}
		return zap.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zap.InfoLevel, fmt.Errorf("log: %w", err)
	}
	return lvl, nil
}

// New 按配置构建 logger：JSON 写入滚动文件，控制台为可读格式。两者都关闭时返回 Nop
func New(cfg *config.Config, atom zap.AtomicLevel) (*zap.Logger, error) {
	lvl, err := ParseLevel(cfg.Log.Level, cfg.Server.Mode)
	if err != nil {
		return nil, err
	}
	atom.SetLevel(lvl)

	enc := encoderConfig()
	var cores []zapcore.Core
	if cfg.Log.File != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), fileWriter, atom))
	}
	if cfg.Log.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), atom))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(zap.String("service", "courseconnect"), zap.String("mode", cfg.Server.Mode)),
	), nil
}

// InitLogger 替换全局 Log
func InitLogger(cfg *config.Config) error {
	l, err := New(cfg, level)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// SetLevel 热更新日志级别，非法值保留原级别
func SetLevel(cfg *config.Config) error {
	lvl, err := ParseLevel(cfg.Log.Level, cfg.Server.Mode)
	if err != nil {
		return err
	}
	if lvl != level.Level() {
		level.SetLevel(lvl)
		Log.Info("Log level changed", zap.String("level", lvl.String()))
	}
	return nil
}
