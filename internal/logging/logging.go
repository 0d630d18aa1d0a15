// Package logging builds the zap logger shared by the rnadiff commands.
package logging

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options controls New.
type Options struct {
	Verbose bool   // debug level instead of info
	Quiet   bool   // warnings and errors only; wins over Verbose
	Format  string // FormatConsole (default) or FormatJSON
}

// New returns a logger that writes to w. Production encoder settings are used
// for JSON so the stream can be shipped as is.
func New(w io.Writer, opt Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	switch {
	case opt.Quiet:
		level.SetLevel(zapcore.WarnLevel)
	case opt.Verbose:
		level.SetLevel(zapcore.DebugLevel)
	}

	var enc zapcore.Encoder
	switch opt.Format {
	case "", FormatConsole:
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeCaller = nil
		enc = zapcore.NewConsoleEncoder(cfg)
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", opt.Format, FormatConsole, FormatJSON)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core), nil
}

// Stage returns a child logger tagged with a pipeline stage name.
func Stage(log *zap.Logger, name string) *zap.Logger {
	return log.With(zap.String("stage", name))
}
