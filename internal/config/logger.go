package config

import (
    "os"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger.  Development
// environments get a human readable console writer; everything else logs
// JSON lines to stderr.
func SetupLogger(service, level, env string) {
    zerolog.TimeFieldFormat = time.RFC3339Nano
    switch strings.ToLower(level) {
    case "debug":
        zerolog.SetGlobalLevel(zerolog.DebugLevel)
    case "warn":
        zerolog.SetGlobalLevel(zerolog.WarnLevel)
    case "error":
        zerolog.SetGlobalLevel(zerolog.ErrorLevel)
    default:
        zerolog.SetGlobalLevel(zerolog.InfoLevel)
    }
    var l zerolog.Logger
    if env == "dev" || env == "development" {
        l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
    } else {
        l = zerolog.New(os.Stderr)
    }
    log.Logger = l.With().Timestamp().Str("service", service).Logger()
}
