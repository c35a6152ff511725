// Package output renders command results as verdict text, tables, JSON or
// YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format is a report output format.
type Format string

const (
	// FormatText prints one verdict line per scenario and a summary.
	FormatText Format = "text"
	// FormatTable prints an aligned table.
	FormatTable Format = "table"
	// FormatJSON prints indented JSON.
	FormatJSON Format = "json"
	// FormatYAML prints YAML.
	FormatYAML Format = "yaml"
)

// Formats lists the accepted values of --output, in help order.
var Formats = []Format{FormatText, FormatTable, FormatJSON, FormatYAML}

// ParseFormat parses a --output value. Empty selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: text, table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Structured reports whether f is meant for machines rather than people.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

// TextRenderer is implemented by values with a line-oriented human form.
type TextRenderer interface {
	RenderText(w io.Writer, color bool) error
}

// Printer writes values in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer. color only affects the text format.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{
		out:    out,
		format: format,
		color:  color,
	}
}

func (p *Printer) Format() Format {
	return p.format
}

func (p *Printer) Writer() io.Writer {
	return p.out
}

// Print outputs data in the configured format.
// Text falls back to the table form, and the table form to JSON, when
// data does not implement the corresponding renderer.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatText:
		if r, ok := data.(TextRenderer); ok {
			return r.RenderText(p.out, p.color)
		}
		fallthrough
	case FormatTable:
		if r, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, r)
		}
		return PrintJSON(p.out, data)
	case FormatJSON:
		return PrintJSON(p.out, data)
	case FormatYAML:
		return PrintYAML(p.out, data)
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

// Printf prints a formatted message.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// ANSI colors used by text renderers.
const (
	Green  = "32"
	Red    = "31"
	Yellow = "33"
)

// Colorize wraps s in the ANSI color code when enabled.
func Colorize(s, code string, enabled bool) string {
	if !enabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}
