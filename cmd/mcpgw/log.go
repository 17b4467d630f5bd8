package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/mcp-gateway/pkg/config"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
)

var zerologLevels = map[logging.Level]zerolog.Level{
	logging.DebugLevel: zerolog.DebugLevel,
	logging.InfoLevel:  zerolog.InfoLevel,
	logging.WarnLevel:  zerolog.WarnLevel,
	logging.ErrorLevel: zerolog.ErrorLevel,
	logging.FatalLevel: zerolog.FatalLevel,
}

// initLog sets up the global zerolog console logger and returns the logger
// handed to the gateway packages. "text" and "json" formats use the
// package formatters on stderr; anything else logs through zerolog.
func initLog(c config.LogConfig) logging.Logger {
	level, _ := logging.ParseLevel(c.Level)
	zerolog.SetGlobalLevel(zerologLevels[level])

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: c.NoColor, TimeFormat: time.RFC3339})

	var l logging.Logger
	switch strings.ToLower(c.Format) {
	case "text", "json":
		l = logging.New(os.Stderr, logging.NewFormatter(c.Format, c.NoColor))
	default:
		l = logging.NewZerolog(log.Logger)
	}
	l.SetLevel(level)
	return l
}
