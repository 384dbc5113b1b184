// Package logger builds the zerolog logger shared by the chat client and adapters.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Options configure New.
type Options struct {
	File   string // rotated log file path; stdout when empty
	Pretty bool   // ConsoleWriter output; ignored when File is set
	Level  string // debug, info, warn, error or trace
	Output io.Writer
}

// New builds a logger. The returned closer releases the log file, if one was opened.
func New(opts Options) (zerolog.Logger, io.Closer) {
	level := parseLogLevel(opts.Level)

	var output io.Writer
	var closer io.Closer = nopCloser{}

	switch {
	case opts.File != "":
		writer := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
			Compress:   true,
		}
		output = writer
		closer = writer
	case opts.Output != nil:
		output = opts.Output
	default:
		output = os.Stdout
	}
	if opts.Pretty && opts.File == "" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	log := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	if opts.File != "" {
		log.Debug().Str("path", opts.File).Str("level", level.String()).Msg("Logger initialized")
	} else {
		log.Debug().Bool("pretty", opts.Pretty).Str("level", level.String()).Msg("Logger initialized")
	}

	return log, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
