package tlog

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format is the logging format
type Format string

// Format values
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Set implements pflag.Value
func (f *Format) Set(s string) error {
	switch Format(s) {
	case FormatJSON, FormatText:
		*f = Format(s)
		return nil
	default:
		return fmt.Errorf("unknown log format %q, expected json or text", s)
	}
}

func (f *Format) String() string {
	return string(*f)
}

// Type implements pflag.Value
func (f *Format) Type() string {
	return "format"
}

// Color is the coloring setting for text format
type Color string

// Color values
const (
	ColorAuto Color = ""
	ColorYes  Color = "yes"
	ColorNo   Color = "no"
)

// Set implements pflag.Value
func (c *Color) Set(s string) error {
	switch Color(s) {
	case ColorAuto, ColorYes, ColorNo:
		*c = Color(s)
		return nil
	case "auto":
		*c = ColorAuto
		return nil
	default:
		return fmt.Errorf("unknown color setting %q, expected yes, no or auto", s)
	}
}

func (c *Color) String() string {
	if *c == ColorAuto {
		return "auto"
	}
	return string(*c)
}

// Type implements pflag.Value
func (c *Color) Type() string {
	return "color"
}

// Config is the configuration of a top-level logger
type Config struct {
	Name    string // top-level logger name (optional)
	Format  Format
	Color   Color
	Verbose bool // enable messages at Debug level
}

func microTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
}

// EncoderConfig returns the encoder settings shared by both formats
func EncoderConfig(color bool) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = microTimeEncoder
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}
