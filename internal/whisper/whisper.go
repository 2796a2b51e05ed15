// Package whisper adapts the whisper.cpp Go bindings to transcribe.Loader.
package whisper

import (
	"errors"
	"fmt"
	"io"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/gquinteros/listen/internal/transcribe"
)

var ErrUnsupportedStrategy = errors.New("unsupported sampling strategy")

// Loader loads ggml whisper models from disk.
type Loader struct{}

func (Loader) Load(path string) (transcribe.Model, error) {
	m, err := whispercpp.New(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", path, err)
	}
	return &model{model: m}, nil
}

type model struct {
	model whispercpp.Model
}

// Decode runs one full pass over samples and returns segment texts in order.
// The bindings decode greedily unless a beam size is set.
func (m *model) Decode(samples []float32, opts transcribe.DecodeOptions) ([]string, error) {
	if opts.Strategy.Name != "" && opts.Strategy != transcribe.Greedy {
		return nil, fmt.Errorf("whisper: %w: %s best_of=%d", ErrUnsupportedStrategy, opts.Strategy.Name, opts.Strategy.BestOf)
	}

	ctx, err := m.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if opts.Language != "" {
		if err := ctx.SetLanguage(opts.Language); err != nil {
			return nil, fmt.Errorf("whisper: set language %q: %w", opts.Language, err)
		}
	}
	ctx.SetTranslate(opts.Translate)
	if opts.Threads > 0 {
		ctx.SetThreads(uint(opts.Threads))
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}
	return segments, nil
}

func (m *model) Close() error {
	if m.model == nil {
		return nil
	}
	return m.model.Close()
}
