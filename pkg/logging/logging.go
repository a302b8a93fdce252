// Package logging builds the zerolog logger used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "MESHBOOL_LOG_LEVEL"
	EnvLogFormat  = "MESHBOOL_LOG_FORMAT"
	EnvLogNoColor = "MESHBOOL_LOG_NOCOLOR"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the logger output.
type Config struct {
	Level     string
	Format    string
	Timestamp bool
	NoColor   bool
	Out       io.Writer
}

// DefaultConfig logs at info level to stderr through the console writer.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    FormatConsole,
		Timestamp: true,
		Out:       os.Stderr,
	}
}

// ApplyEnv overrides cfg from MESHBOOL_LOG_* variables. Unparseable
// values are ignored.
func ApplyEnv(cfg *Config) {
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		if _, err := ParseLevel(raw); err == nil {
			cfg.Level = raw
		}
	}
	switch f := strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogFormat))); f {
	case FormatConsole, FormatJSON:
		cfg.Format = f
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvLogNoColor))); err == nil {
		cfg.NoColor = v
	}
}

// ParseLevel maps a level name onto a zerolog level. On top of the names
// zerolog knows it accepts an empty string (info), "warning", and "off" or
// "none" (disabled).
func ParseLevel(raw string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "off", "none":
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", raw)
	}
	return lvl, nil
}

// New returns a logger for cfg. An unknown level falls back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	level, _ := ParseLevel(cfg.Level)

	ctx := zerolog.New(out).Level(level).With().Str("app", "meshbool")
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}
