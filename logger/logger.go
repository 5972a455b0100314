package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	WithField(key string, value interface{}) Logger
}

var (
	log  Logger = NullLogger{}
	once sync.Once
)

// InitLogger initializes the file logger under ~/.chef. The terminal UI owns
// stdout, so everything the CLI logs goes to chef.log.
func InitLogger() {
	once.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic("Failed to get user home directory: " + err.Error())
		}

		chefDir := filepath.Join(homeDir, ".chef")
		err = os.MkdirAll(chefDir, 0755)
		if err != nil {
			panic("Failed to create .chef directory: " + err.Error())
		}

		logFile, err := os.OpenFile(filepath.Join(chefDir, "chef.log"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			panic("Failed to open log file: " + err.Error())
		}

		log = New(logFile, zerolog.DebugLevel)
	})
}

// GetLogger returns the logger instance
func GetLogger() Logger {
	return log
}

// New builds a Logger writing JSON lines to w.
func New(w io.Writer, level zerolog.Level) Logger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &ZerologAdapter{logger: &zl}
}

// NewConsoleLogger is used by long running commands that keep stdout free.
func NewConsoleLogger(level zerolog.Level) Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// ZerologAdapter adapts zerolog.Logger to our Logger interface
type ZerologAdapter struct {
	logger *zerolog.Logger
}

func (z *ZerologAdapter) Debug(msg string) { z.logger.Debug().Msg(msg) }
func (z *ZerologAdapter) Info(msg string)  { z.logger.Info().Msg(msg) }
func (z *ZerologAdapter) Warn(msg string)  { z.logger.Warn().Msg(msg) }
func (z *ZerologAdapter) Error(msg string) { z.logger.Error().Msg(msg) }
func (z *ZerologAdapter) Fatal(msg string) { z.logger.Fatal().Msg(msg) }
func (z *ZerologAdapter) WithField(key string, value interface{}) Logger {
	newLogger := z.logger.With().Interface(key, value).Logger()
	return &ZerologAdapter{logger: &newLogger}
}

// Zerolog exposes the underlying logger for middleware that wants the
// structured API directly.
func (z *ZerologAdapter) Zerolog() zerolog.Logger {
	return *z.logger
}

type NullLogger struct{}

func (NullLogger) Debug(msg string) {}
func (NullLogger) Info(msg string)  {}
func (NullLogger) Warn(msg string)  {}
func (NullLogger) Error(msg string) {}
func (NullLogger) Fatal(msg string) {}
func (NullLogger) WithField(key string, value interface{}) Logger {
	return NullLogger{}
}

func NewNullLogger() Logger {
	return NullLogger{}
}
