// Package logger wraps zap for structured logging.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log     *zap.Logger
	file    *os.File
	once    sync.Once
	mu      sync.Mutex
	level   = zap.NewAtomicLevelAt(zap.InfoLevel)
	logFile = "reconcile.log"
)

// SetLogPath sets the JSON log file. An empty path disables file logging.
// It only takes effect before the logger is initialized.
func SetLogPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	logFile = path
}

// SetLevel changes the minimum level of the running logger.
func SetLevel(name string) error {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}

// InitLogger builds the global logger: human-readable lines on stderr plus JSON
// lines in the log file.
func InitLogger() {
	once.Do(func() {
		mu.Lock()
		path := logFile
		mu.Unlock()

		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level)}

		if path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				file = f
				fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
				cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(f), level))
			}
		}

		log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	})
}

// GetLogger provides access to the initialized logger.
func GetLogger() *zap.Logger {
	InitLogger()
	return log
}

// Sync flushes buffered logs. Call it before the application exits.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// ResetLogger flushes and discards the global logger so the next call to
// GetLogger builds a fresh one.
func ResetLogger() {
	Sync()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	log = nil
	once = sync.Once{}
	level.SetLevel(zap.InfoLevel)
}
