// Package logging configures the process-wide zerolog logger, following the
// teacher's observability.InitLogger pattern: a global logger configured
// once at startup, with the standard library logger redirected into it so
// every dependency's incidental log.Printf call is captured too.
package logging

import (
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. When pretty is true, logs are
// rendered through zerolog's human-readable console writer (suited to local
// development); otherwise structured JSON is written to stdout, the way a
// deployed service would want it.
func Init(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	w := os.Stdout
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(w).With().Timestamp().Logger()
	}

	lvl := zerolog.InfoLevel
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// Component returns a child logger tagged with the given component name,
// for packages that want a bound logger rather than the package-global one.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
