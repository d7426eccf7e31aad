package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the global logger behaviour.
type Config struct {
	Level    string // debug, info, warn, error
	FilePath string // optional file to tee output into
}

var (
	sugarLogger *zap.SugaredLogger
	baseLogger  *zap.Logger
	atomicLevel zap.AtomicLevel
	once        sync.Once
	mu          sync.RWMutex
	logFile     *os.File
)

func initLogger() {
	if err := applyConfig(Config{Level: "info"}); err != nil {
		panic(fmt.Sprintf("logger initialization failed: %v", err))
	}
}

func applyConfig(cfg Config) error {
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

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr), atomicLevel)
	cores := []zapcore.Core{consoleCore}

	filePath := strings.TrimSpace(cfg.FilePath)
	if filePath != "" {
		fileCore, handle, err := buildFileCore(encoderCfg, filePath)
		if err != nil {
			return err
		}
		if logFile != nil && logFile != handle {
			_ = logFile.Close()
		}
		logFile = handle
		cores = append(cores, fileCore)
	} else if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	newLogger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.Development(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	baseLogger = newLogger
	sugarLogger = newLogger.Sugar()
	zap.ReplaceGlobals(baseLogger)

	return nil
}

func buildFileCore(encoderCfg zapcore.EncoderConfig, path string) (zapcore.Core, *os.File, error) {
	cleanedPath := filepath.Clean(path)
	dir := filepath.Dir(cleanedPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory %q: %w", dir, err)
		}
	}

	file, err := os.OpenFile(cleanedPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %q: %w", cleanedPath, err)
	}

	// no colour escapes in the file core
	fileEncoderCfg := encoderCfg
	fileEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg),
		zapcore.AddSync(file), atomicLevel)
	return core, file, nil
}

// InitWithConfig sets up the global zap logger and installs it as the zap
// global logger. The returned cleanup function must be deferred by main.
func InitWithConfig(cfg Config) (*zap.SugaredLogger, func(), error) {
	var initErr error
	once.Do(func() {
		initErr = applyConfig(cfg)
	})
	if initErr != nil {
		return nil, nil, fmt.Errorf("logger initialization failed: %w", initErr)
	}

	mu.RLock()
	sugar := sugarLogger
	mu.RUnlock()
	if sugar == nil {
		return nil, nil, fmt.Errorf("logger initialization failed: sugarLogger is nil")
	}
	return sugar, createCleanupFunc(), nil
}

// InitWithLevel sets up the global logger with a specific log level.
func InitWithLevel(level string) (*zap.SugaredLogger, func()) {
	sugar, cleanup, err := InitWithConfig(Config{Level: level})
	if err != nil {
		panic(fmt.Sprintf("logger initialization failed: %v", err))
	}
	return sugar, cleanup
}

// Logger returns the global sugared logger, initializing it on first use.
func Logger() *zap.SugaredLogger {
	once.Do(initLogger)

	mu.RLock()
	defer mu.RUnlock()
	if sugarLogger == nil {
		panic("logger initialization failed: sugarLogger is nil")
	}
	return sugarLogger
}

// SetLogLevel changes the log level without re-initializing the logger.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	if atomicLevel == (zap.AtomicLevel{}) {
		return
	}
	atomicLevel.SetLevel(parseLevel(level))
}

func createCleanupFunc() func() {
	mu.RLock()
	currentFile := logFile
	mu.RUnlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if baseLogger != nil {
			_ = baseLogger.Sync()
		}
		if currentFile != nil {
			if err := currentFile.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
			}
			if logFile == currentFile {
				logFile = nil
			}
		}
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
