// Package output delivers a transcription to the console, a file and optionally the clipboard.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gquinteros/listen/internal/failure"
	"github.com/gquinteros/listen/internal/transcribe"
)

const clipboardTimeout = 2 * time.Second

// Options selects the console format and extra destinations.
type Options struct {
	JSON  bool
	Quiet bool
	// Path, when set, receives the verbatim text (overwritten).
	Path string
	// Clipboard is an argv that reads the text on stdin, e.g. wl-copy.
	Clipboard []string
}

// Sink writes one result per Emit.
type Sink struct {
	stdout io.Writer
	stderr io.Writer
	opts   Options
	logger *slog.Logger
}

func NewSink(stdout, stderr io.Writer, opts Options, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{stdout: stdout, stderr: stderr, opts: opts, logger: logger}
}

type jsonResult struct {
	Transcription string `json:"transcription"`
	Language      string `json:"language"`
	Model         string `json:"model"`
}

// Emit prints result and then persists it. A file failure is returned after
// the console output has already been written.
func (s *Sink) Emit(ctx context.Context, result transcribe.Result) error {
	if err := s.writeConsole(result); err != nil {
		return failure.File("write output: %w", err)
	}

	if s.opts.Path != "" {
		if err := os.WriteFile(s.opts.Path, []byte(result.Text), 0o644); err != nil {
			return failure.File("write %s: %w", s.opts.Path, err)
		}
		if !s.opts.Quiet {
			_, _ = fmt.Fprintf(s.stderr, "Saved to: %s\n", s.opts.Path)
		}
	}

	if len(s.opts.Clipboard) > 0 && result.Text != "" {
		clipCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
		defer cancel()
		if err := copyToClipboard(clipCtx, s.opts.Clipboard, result.Text); err != nil {
			s.logger.Warn("clipboard copy failed", "error", err.Error())
		}
	}
	return nil
}

func (s *Sink) writeConsole(result transcribe.Result) error {
	if !s.opts.JSON {
		_, err := fmt.Fprintln(s.stdout, result.Text)
		return err
	}

	enc := json.NewEncoder(s.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResult{
		Transcription: result.Text,
		Language:      result.Language,
		Model:         result.Model,
	})
}
