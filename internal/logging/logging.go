// Package logging builds the root structured logger shared by the ddlgen
// commands.
//
// Every log line carries a fixed identity context (script, version,
// session_id, host, user) so lines from concurrent or historical runs can be
// correlated after the fact. Output is JSON; an optional console writer adds
// human-readable output during interactive use.
package logging

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// Options controls root logger construction.
type Options struct {
	// Script names the running command, e.g. "ddlgen" or "fetch".
	Script string

	// Version is the command version string embedded in every line.
	Version string

	// Level is a zerolog level name ("debug", "info", "warn", "error").
	// Empty means "info".
	Level string

	// Dir, when non-empty, enables file logging to <Dir>/<Script>_YYYYMMDD.log.
	// The directory is created if missing. The file is appended to, so
	// multiple runs on the same day share one file (session_id tells them
	// apart).
	Dir string

	// Console enables an additional human-readable writer on stderr.
	Console bool
}

// New builds the root logger and returns it with the generated session id.
// The returned closer is non-nil only when file logging is enabled.
func New(opts Options) (zerolog.Logger, string, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), "", nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var writers []io.Writer
	var closer io.Closer

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return zerolog.Nop(), "", nil, fmt.Errorf("create log dir: %w", err)
		}
		name := fmt.Sprintf("%s_%s.log", opts.Script, time.Now().Format("20060102"))
		f, err := os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), "", nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	sessionID := xid.New().String()

	logger := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("script", opts.Script).
		Str("version", opts.Version).
		Str("session_id", sessionID).
		Str("host", hostname()).
		Str("user", username()).
		Logger()

	return logger, sessionID, closer, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func username() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "unknown"
	}
	return u.Username
}
