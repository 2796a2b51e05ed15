// Package transcribe turns a sample buffer into text with a pluggable recognition model.
package transcribe

import (
	"context"
	"log/slog"
	"time"

	"github.com/gquinteros/listen/internal/failure"
	"github.com/gquinteros/listen/internal/transcript"
)

// Request is one recognition job. It is consumed once.
type Request struct {
	Samples  []float32
	Language string
	Model    string
}

// Result is the recognized text plus the parameters that produced it.
type Result struct {
	Text     string
	Language string
	Model    string
}

// Strategy names the decoder sampling strategy.
type Strategy struct {
	Name   string
	BestOf int
}

// Greedy is the only strategy listen decodes with.
var Greedy = Strategy{Name: "greedy", BestOf: 1}

// DecodeOptions are the per-call decoder parameters.
type DecodeOptions struct {
	Language  string
	Strategy  Strategy
	Threads   int
	Translate bool
}

// Model decodes samples into ordered text segments.
type Model interface {
	Decode(samples []float32, opts DecodeOptions) ([]string, error)
	Close() error
}

// Loader opens a model artifact.
type Loader interface {
	Load(path string) (Model, error)
}

type LoaderFunc func(path string) (Model, error)

func (f LoaderFunc) Load(path string) (Model, error) { return f(path) }

// Options configures model lookup and decode parallelism.
type Options struct {
	ModelDirs []string
	// Threads is passed to the decoder; zero keeps the decoder default.
	Threads int
}

// Engine loads a model per call, decodes greedily and closes the model.
type Engine struct {
	loader Loader
	opts   Options
	logger *slog.Logger
}

func NewEngine(loader Loader, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(opts.ModelDirs) == 0 {
		opts.ModelDirs = DefaultModelDirs()
	}
	return &Engine{loader: loader, opts: opts, logger: logger}
}

// Transcribe runs req to completion. It is not cancellable once decoding starts.
func (e *Engine) Transcribe(_ context.Context, req Request) (Result, error) {
	if len(req.Samples) == 0 {
		return Result{}, failure.Audio("no audio captured")
	}
	if e.loader == nil {
		return Result{}, failure.Transcription("no recognition backend configured")
	}

	path, err := ResolveModel(req.Model, e.opts.ModelDirs)
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("loading model", "model", req.Model, "path", path)
	started := time.Now()
	model, err := e.loader.Load(path)
	if err != nil {
		return Result{}, failure.Transcription("failed to load model %s: %w", path, err)
	}
	defer func() {
		if cerr := model.Close(); cerr != nil {
			e.logger.Warn("close model failed", "error", cerr.Error())
		}
	}()
	e.logger.Debug("model loaded", "load_ms", time.Since(started).Milliseconds(), "samples", len(req.Samples))

	segments, err := model.Decode(req.Samples, DecodeOptions{
		Language: req.Language,
		Strategy: Greedy,
		Threads:  e.opts.Threads,
	})
	if err != nil {
		return Result{}, failure.Transcription("transcription failed: %w", err)
	}

	text := transcript.Assemble(segments)
	e.logger.Debug("transcription complete",
		"segments", len(segments),
		"chars", len(text),
		"total_ms", time.Since(started).Milliseconds(),
	)
	return Result{Text: text, Language: req.Language, Model: req.Model}, nil
}
