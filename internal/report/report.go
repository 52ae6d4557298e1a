// Package report renders check reports as styled text, JSON or markdown.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cleanarch/internal/cleanarch"
	"cleanarch/internal/logging"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatMarkdown:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (valid: text, json, markdown)", s)
	}
}

// Ext returns the file extension used when publishing the format.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Options controls rendering.
type Options struct {
	Format Format
	// Color enables lipgloss styling of the text format.
	Color bool
}

// Render writes rep to w.
func Render(w io.Writer, rep *cleanarch.Report, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return renderJSON(w, rep)
	case FormatMarkdown:
		return renderMarkdown(w, rep)
	case FormatText, "":
		return renderText(w, rep, opts.Color)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// WriteFile renders rep into path, creating parent directories.
func WriteFile(path string, rep *cleanarch.Report, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := Render(f, rep, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	logging.Report("wrote %s report for run %s to %s", opts.Format, rep.RunID, path)
	return nil
}
