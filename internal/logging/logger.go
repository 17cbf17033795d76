package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// ParseLevel maps a config level name to a zap level, defaulting to info.
func ParseLevel(s string) LogLevel {
	lvl, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return LevelInfo
	}
	return lvl
}

type Logger struct {
	sugar  *zap.SugaredLogger
	output *os.File
}

// NewLogger writes to stdout and, when path is set, to a log file that is
// rotated first if it grew past maxSize bytes.
func NewLogger(level LogLevel, path string, maxSize int64) (*Logger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level)}

	l := &Logger{}
	if path != "" {
		if maxSize > 0 {
			if rot := NewLogRotation(maxSize); rot.ShouldRotate(path) {
				if _, err := rot.Rotate(path); err != nil {
					return nil, err
				}
			}
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		l.output = file
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(file), level))
	}

	l.sugar = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
	return l, nil
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Critical logs at error level tagged critical=true.
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.With("critical", true).Errorf(format, args...)
}

func (l *Logger) Close() error {
	_ = l.sugar.Sync()
	if l.output != nil {
		return l.output.Close()
	}
	return nil
}

var GlobalLogger *Logger

func InitGlobalLogger(level LogLevel, path string, maxSize int64) error {
	logger, err := NewLogger(level, path, maxSize)
	if err != nil {
		return err
	}
	GlobalLogger = logger
	return nil
}

func Debug(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Debug(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Info(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Warn(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Error(format, args...)
	}
}

func Critical(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Critical(format, args...)
	}
}

func Close() error {
	if GlobalLogger != nil {
		return GlobalLogger.Close()
	}
	return nil
}
