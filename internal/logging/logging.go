// Package logging provides the leveled logger handed to builder components.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// LevelIds maps levels to their flag spellings.
var LevelIds = map[Level][]string{
	Debug: {"debug"},
	Info:  {"info"},
	Warn:  {"warn"},
	Error: {"error"},
}

func (l Level) String() string {
	if ids, ok := LevelIds[l]; ok {
		return ids[0]
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel parses a level name, case insensitively.
func ParseLevel(s string) (Level, error) {
	for l, ids := range LevelIds {
		for _, id := range ids {
			if strings.EqualFold(id, s) {
				return l, nil
			}
		}
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Level  Level
	Format string    // FormatText (default) or FormatJSON
	Output io.Writer // defaults to os.Stderr
}

type Logger struct {
	logger zerolog.Logger
}

func NewLogger(c Config) *Logger {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	if c.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: "15:04:05"}
	}

	return &Logger{
		logger: zerolog.New(out).Level(c.Level.zerolog()).With().Timestamp().Logger(),
	}
}

// NewNoOpLogger returns a logger discarding everything.
func NewNoOpLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// With returns a logger adding the key/value field to every entry.
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{logger: l.logger.With().Str(key, value).Logger()}
}

func (l *Logger) Debugf(format string, args ...any) { l.event(zerolog.DebugLevel, format, args) }

func (l *Logger) Infof(format string, args ...any) { l.event(zerolog.InfoLevel, format, args) }

func (l *Logger) Warnf(format string, args ...any) { l.event(zerolog.WarnLevel, format, args) }

func (l *Logger) Errorf(format string, args ...any) { l.event(zerolog.ErrorLevel, format, args) }

func (l *Logger) event(level zerolog.Level, format string, args []any) {
	if l == nil {
		return
	}
	l.logger.WithLevel(level).Msgf(format, args...)
}
