// Package logging configures the global zerolog logger with dual sinks:
// a console writer on stderr and a rotating file under the log directory.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init sets up the global logger. verbose switches the level to debug;
// logDir receives the rotating staffplan.log file and is created when
// missing. An unwritable log directory degrades to console-only logging.
func Init(verbose bool, logDir string) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	writers := []io.Writer{consoleWriter}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Warn().Err(err).Str("path", logDir).Msg("failed to create log directory, file logging disabled")
		} else {
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(logDir, "staffplan.log"),
				MaxSize:    16, // megabytes
				MaxBackups: 32,
				MaxAge:     365, // days
				Compress:   true,
			})
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()
}
