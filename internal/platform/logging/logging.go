package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger.
// format "human" selects console output; anything else logs JSON lines.
func Setup(out io.Writer, format, level string) {
	if strings.EqualFold(format, "human") {
		out = zerolog.ConsoleWriter{Out: out}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = log.Output(out).With().Timestamp().Logger()
}
