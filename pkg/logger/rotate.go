package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 文件轮转策略
const (
	RotateNone = ""
	RotateSize = "size" // 按大小轮转（lumberjack）
	RotateTime = "time" // 按时间轮转（file-rotatelogs）
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level" ini:"level" env:"FSMKIT_LOG_LEVEL"`
	Format     string `yaml:"format" json:"format" ini:"format" env:"FSMKIT_LOG_FORMAT"` // console 或 json
	File       string `yaml:"file" json:"file" ini:"file" env:"FSMKIT_LOG_FILE"`         // 为空时输出到 stderr
	Rotate     string `yaml:"rotate" json:"rotate" ini:"rotate"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" ini:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" ini:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days" ini:"max_age_days"`
	RotateHour int    `yaml:"rotate_hours" json:"rotate_hours" ini:"rotate_hours"`
	Compress   bool   `yaml:"compress" json:"compress" ini:"compress"`
}

// NewRotateWriter 根据配置创建日志文件输出，File 为空时返回 stderr
func NewRotateWriter(cfg Config) (io.WriteCloser, error) {
	if cfg.File == "" {
		return nopCloser{os.Stderr}, nil
	}

	switch cfg.Rotate {
	case RotateSize:
		return &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil

	case RotateTime:
		maxAge := time.Duration(orDefault(cfg.MaxAgeDays, 7)) * 24 * time.Hour
		rotation := time.Duration(orDefault(cfg.RotateHour, 24)) * time.Hour
		w, err := rotatelogs.New(
			cfg.File+".%Y%m%d%H",
			rotatelogs.WithLinkName(cfg.File),
			rotatelogs.WithMaxAge(maxAge),
			rotatelogs.WithRotationTime(rotation),
		)
		if err != nil {
			return nil, fmt.Errorf("create rotatelogs failed: %w", err)
		}
		return w, nil

	case RotateNone:
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file failed: %w", err)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("unknown rotate policy: %q", cfg.Rotate)
	}
}

// Build 根据配置创建日志，返回的 Closer 用于关闭文件输出
func Build(cfg Config, opts ...Option) (*ZapLogger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	out, err := NewRotateWriter(cfg)
	if err != nil {
		return nil, nil, err
	}

	enc := GetEncoder()
	switch cfg.Format {
	case "", "console":
	case "json":
		enc = GetJSONEncoder()
	default:
		_ = out.Close()
		return nil, nil, fmt.Errorf("unknown log format: %q", cfg.Format)
	}

	return newZapLogger(enc, out, zap.NewAtomicLevelAt(toZapLevel(level)), opts...), out, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
