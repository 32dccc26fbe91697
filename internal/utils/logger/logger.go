// Package logger owns the process-wide zap logger used by the validator,
// the readers and the CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level    string
	FilePath string
}

// swapWriter is the stderr sink. Tests and the CLI swap the writer to
// capture console output; Sync is a no-op so terminals never report errors.
type swapWriter struct {
	mu     sync.RWMutex
	writer io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.writer == nil {
		return 0, nil
	}
	return s.writer.Write(p)
}

func (s *swapWriter) Sync() error {
	return nil
}

var (
	sugarLogger   *zap.SugaredLogger
	baseLogger    *zap.Logger
	atomicLevel   zap.AtomicLevel
	once          sync.Once
	mu            sync.RWMutex
	logFile       *os.File
	currentConfig Config
	stderrSink    = &swapWriter{writer: os.Stderr}
)

func initDefault() {
	if err := apply(Config{Level: "info"}); err != nil {
		panic(fmt.Sprintf("logger initialization failed: %v", err))
	}
}

func apply(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := parseLevel(cfg.Level)
	if atomicLevel == (zap.AtomicLevel{}) {
		atomicLevel = zap.NewAtomicLevelAt(level)
	} else {
		atomicLevel.SetLevel(level)
	}

	encoderCfg := zap.NewDevelopmentConfig().EncoderConfig
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(stderrSink), atomicLevel),
	}

	filePath := strings.TrimSpace(cfg.FilePath)
	switch {
	case filePath != "":
		core, handle, err := fileCore(encoderCfg, filePath)
		if err != nil {
			return err
		}
		if logFile != nil && logFile != handle {
			_ = logFile.Close()
		}
		logFile = handle
		cores = append(cores, core)
	case logFile != nil:
		_ = logFile.Close()
		logFile = nil
	}

	baseLogger = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	sugarLogger = baseLogger.Sugar()
	zap.ReplaceGlobals(baseLogger)

	currentConfig = Config{Level: level.String(), FilePath: filePath}
	return nil
}

// fileCore writes uncolored lines to path, truncating earlier runs.
func fileCore(encoderCfg zapcore.EncoderConfig, path string) (zapcore.Core, *os.File, error) {
	cleaned := filepath.Clean(path)
	if dir := filepath.Dir(cleaned); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory %q: %w", dir, err)
		}
	}

	file, err := os.OpenFile(cleaned, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %q: %w", cleaned, err)
	}

	fileEncoderCfg := encoderCfg
	fileEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), zapcore.AddSync(file), atomicLevel), file, nil
}

// InitWithConfig configures the global logger, reconfiguring it when it was
// already set up with a different config. The returned cleanup flushes the
// logger and closes the log file.
func InitWithConfig(cfg Config) (*zap.SugaredLogger, func(), error) {
	initializedHere := false
	var initErr error
	requested := Config{Level: parseLevel(cfg.Level).String(), FilePath: strings.TrimSpace(cfg.FilePath)}

	once.Do(func() {
		initErr = apply(cfg)
		initializedHere = true
	})
	if initErr != nil {
		return nil, nil, fmt.Errorf("logger initialization failed: %w", initErr)
	}

	if !initializedHere {
		mu.RLock()
		same := currentConfig == requested
		mu.RUnlock()
		if !same {
			if err := apply(cfg); err != nil {
				return nil, nil, fmt.Errorf("logger reconfiguration failed: %w", err)
			}
		}
	}

	mu.RLock()
	defer mu.RUnlock()
	if sugarLogger == nil {
		return nil, nil, fmt.Errorf("logger initialization failed: logger is nil")
	}
	return sugarLogger, cleanupFunc(logFile), nil
}

// Logger returns the global logger, initializing it at info level on first use.
func Logger() *zap.SugaredLogger {
	once.Do(initDefault)

	mu.RLock()
	defer mu.RUnlock()
	if sugarLogger == nil {
		panic("logger initialization failed: logger is nil")
	}
	return sugarLogger
}

// Named returns the global logger with a name segment, e.g. "watcher".
func Named(name string) *zap.SugaredLogger {
	return Logger().Named(name)
}

func cleanupFunc(file *os.File) func() {
	return func() {
		mu.Lock()
		defer mu.Unlock()

		if baseLogger != nil {
			if err := baseLogger.Sync(); err != nil {
				fmt.Fprintf(os.Stderr, "error syncing logger: %v\n", err)
			}
		}
		if file != nil {
			if err := file.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
			}
			if logFile == file {
				logFile = nil
			}
		}
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogLevel changes the level of an initialized logger. Calls made before
// initialization are ignored.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	if atomicLevel == (zap.AtomicLevel{}) {
		return
	}
	newLevel := parseLevel(level)
	atomicLevel.SetLevel(newLevel)
	currentConfig.Level = newLevel.String()
}

// Level reports the active level, or "info" before initialization.
func Level() string {
	mu.RLock()
	defer mu.RUnlock()
	if atomicLevel == (zap.AtomicLevel{}) {
		return zapcore.InfoLevel.String()
	}
	return atomicLevel.Level().String()
}

// ReplaceStderrWriter swaps the console writer of the logger and returns the
// previous one, which is never nil.
func ReplaceStderrWriter(w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}

	stderrSink.mu.Lock()
	defer stderrSink.mu.Unlock()

	previous := stderrSink.writer
	if previous == nil {
		previous = os.Stderr
	}
	stderrSink.writer = w
	return previous
}
