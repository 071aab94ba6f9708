package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 日志目录，为空时只输出到 stderr
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩滚动后的旧日志
}

const (
	logFileName   = "escrow-client.log"
	maxSizeMB     = 100
	maxBackups    = 10
	maxAgeDays    = 7
	defaultFormat = "console"
)

var (
	mu      sync.RWMutex
	sugared = newDefault()
)

func newDefault() *zap.SugaredLogger {
	core := zapcore.NewCore(newEncoder(defaultFormat), zapcore.Lock(os.Stderr), zapcore.InfoLevel)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.TimeKey = "ts"
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Init 按配置重建全局 logger；LogDir 非空时同时写入滚动文件
func Init(opt LogOption) error {
	level := parseLevel(opt.Level)
	encoder := newEncoder(opt.Format)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return err
		}
		writer := &lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, logFileName),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()

	mu.Lock()
	old := sugared
	sugared = l
	mu.Unlock()
	_ = old.Sync()
	return nil
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

func Debugf(template string, args ...any) { get().Debugf(template, args...) }
func Infof(template string, args ...any)  { get().Infof(template, args...) }
func Warnf(template string, args ...any)  { get().Warnf(template, args...) }
func Errorf(template string, args ...any) { get().Errorf(template, args...) }

func Info(args ...any) { get().Info(args...) }

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	_ = get().Sync()
}
