// Package pipeline wires one listen invocation: source, capture, recognition, and delivery.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gquinteros/listen/internal/audio"
	"github.com/gquinteros/listen/internal/capture"
	"github.com/gquinteros/listen/internal/failure"
	"github.com/gquinteros/listen/internal/fsm"
	"github.com/gquinteros/listen/internal/indicator"
	"github.com/gquinteros/listen/internal/ipc"
	"github.com/gquinteros/listen/internal/status"
	"github.com/gquinteros/listen/internal/transcribe"
)

const (
	socketProbeTimeout = 200 * time.Millisecond
	socketRetries      = 2
)

// Transcriber turns a sample buffer into a result.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// Emitter delivers a result.
type Emitter interface {
	Emit(ctx context.Context, result transcribe.Result) error
}

// Deps are the collaborators of one Pipeline.
type Deps struct {
	Format   audio.Format
	Language string
	Model    string

	Engine    Transcriber
	Sink      Emitter
	Indicator indicator.Indicator
	Status    *status.File
	Logger    *slog.Logger
	Stderr    io.Writer
	Quiet     bool

	// Capture configures live recording. Format, Indicator, Logger and
	// OnProgress are filled in by the pipeline.
	Capture capture.Options
	// SocketPath overrides $XDG_RUNTIME_DIR/listen.sock in interrupt mode.
	SocketPath string
	AudioDump  bool
}

// Pipeline runs exactly one file or live transcription.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger

	mu    sync.Mutex
	state fsm.State
}

func New(deps Deps) *Pipeline {
	if deps.Format == (audio.Format{}) {
		deps.Format = audio.DefaultFormat()
	}
	if deps.Indicator == nil {
		deps.Indicator = indicator.Noop{}
	}
	if deps.Stderr == nil {
		deps.Stderr = io.Discard
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{deps: deps, logger: logger, state: fsm.StateIdle}
}

func (p *Pipeline) State() fsm.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// transition advances the invocation fsm and publishes the new state.
func (p *Pipeline) transition(event fsm.Event, mutate func(*status.Snapshot)) error {
	p.mu.Lock()
	next, err := fsm.Transition(p.state, event)
	if err == nil {
		p.state = next
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}

	p.publish(func(s *status.Snapshot) {
		s.State = string(next)
		if mutate != nil {
			mutate(s)
		}
	})
	return nil
}

func (p *Pipeline) publish(mutate func(*status.Snapshot)) {
	if err := p.deps.Status.Update(mutate); err != nil {
		p.logger.Warn("status update failed", "path", p.deps.Status.Path(), "error", err.Error())
	}
}

// fail records err in the fsm and status file and returns it unchanged.
func (p *Pipeline) fail(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		p.mu.Lock()
		state := p.state
		p.mu.Unlock()
		if state == fsm.StateRecording {
			_ = p.transition(fsm.EventCancel, func(s *status.Snapshot) { s.Error = "cancelled" })
			return err
		}
	}
	_ = p.transition(fsm.EventFail, func(s *status.Snapshot) { s.Error = err.Error() })
	p.logger.Error("pipeline failed", "kind", string(failure.KindOf(err)), "error", err.Error())
	return err
}

func (p *Pipeline) identify(s *status.Snapshot) {
	s.Language = p.deps.Language
	s.Model = p.deps.Model
}

// RunFile transcribes a WAV file.
func (p *Pipeline) RunFile(ctx context.Context, path string) (transcribe.Result, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return transcribe.Result{}, p.fail(failure.File("File not found: %s", path))
	}
	if err := p.transition(fsm.EventLoad, p.identify); err != nil {
		return transcribe.Result{}, p.fail(err)
	}
	if !p.deps.Quiet {
		fmt.Fprintf(p.deps.Stderr, "Loading audio from: %s\n", path)
	}

	samples, err := audio.DecodeFile(path, p.deps.Format)
	if err != nil {
		return transcribe.Result{}, p.fail(err)
	}
	p.logger.Debug("audio file decoded",
		"path", path,
		"samples", len(samples),
		"duration_ms", p.deps.Format.Duration(len(samples)).Milliseconds(),
	)

	if err := p.transition(fsm.EventLoaded, func(s *status.Snapshot) {
		s.Samples = len(samples)
		s.ElapsedSeconds = p.deps.Format.Duration(len(samples)).Seconds()
	}); err != nil {
		return transcribe.Result{}, p.fail(err)
	}
	return p.finish(ctx, samples)
}

// RunLive records until a stop trigger fires and transcribes the capture.
func (p *Pipeline) RunLive(ctx context.Context) (transcribe.Result, error) {
	opts := p.deps.Capture
	opts.Format = p.deps.Format
	opts.Indicator = p.deps.Indicator
	opts.Logger = p.logger
	opts.OnProgress = func(pr capture.Progress) {
		p.publish(func(s *status.Snapshot) {
			s.SessionID = pr.SessionID
			s.ElapsedSeconds = pr.Elapsed.Seconds()
			s.Samples = pr.Samples
		})
	}
	controller := capture.NewController(opts)

	if opts.InterruptMode {
		release, err := p.serveInterrupts(ctx, controller)
		if err != nil {
			return transcribe.Result{}, p.fail(err)
		}
		defer release()
	}

	if err := p.transition(fsm.EventStart, p.identify); err != nil {
		return transcribe.Result{}, p.fail(err)
	}

	rec, err := controller.Run(ctx)
	if err != nil {
		return transcribe.Result{}, p.fail(err)
	}
	p.logger.Info("recording stopped",
		"session_id", rec.SessionID,
		"reason", string(rec.Reason),
		"device", rec.Device.Label(),
		"samples", len(rec.Samples),
		"duration_ms", rec.Duration().Milliseconds(),
	)

	if p.deps.AudioDump {
		p.writeDebugAudio(rec.Samples)
	}

	if err := p.transition(fsm.EventStop, func(s *status.Snapshot) {
		s.SessionID = rec.SessionID
		s.Samples = len(rec.Samples)
		s.ElapsedSeconds = rec.Duration().Seconds()
		s.StopReason = string(rec.Reason)
	}); err != nil {
		return transcribe.Result{}, p.fail(err)
	}
	p.deps.Indicator.ShowProcessing()
	return p.finish(ctx, rec.Samples)
}

// finish runs recognition and delivery from the transcribing state.
func (p *Pipeline) finish(ctx context.Context, samples []float32) (transcribe.Result, error) {
	if p.deps.Engine == nil {
		return transcribe.Result{}, p.fail(failure.Transcription("no recognition backend configured"))
	}
	result, err := p.deps.Engine.Transcribe(ctx, transcribe.Request{
		Samples:  samples,
		Language: p.deps.Language,
		Model:    p.deps.Model,
	})
	if err != nil {
		return transcribe.Result{}, p.fail(err)
	}

	if p.deps.Sink != nil {
		if err := p.deps.Sink.Emit(ctx, result); err != nil {
			return result, p.fail(err)
		}
	}

	if err := p.transition(fsm.EventTranscribed, nil); err != nil {
		return result, p.fail(err)
	}
	return result, nil
}

// serveInterrupts exposes controller on the runtime socket until release.
// Without a runtime dir the recording still stops on SIGUSR1.
func (p *Pipeline) serveInterrupts(ctx context.Context, controller ipc.Handler) (func(), error) {
	path := p.deps.SocketPath
	if path == "" {
		resolved, err := ipc.RuntimeSocketPath()
		if err != nil {
			p.logger.Warn("interrupt socket unavailable; SIGUSR1 only", "error", err.Error())
			if !p.deps.Quiet {
				fmt.Fprintf(p.deps.Stderr, "warning: %v; `listen stop` is unavailable, use SIGUSR1\n", err)
			}
			return func() {}, nil
		}
		path = resolved
	}

	listener, err := ipc.Acquire(ctx, path, socketProbeTimeout, socketRetries)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return nil, failure.Signal("%w", err)
		}
		return nil, failure.Signal("acquire interrupt socket: %w", err)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ipc.Serve(serveCtx, listener, controller); err != nil && !errors.Is(err, net.ErrClosed) {
			p.logger.Warn("interrupt socket serve failed", "error", err.Error())
		}
	}()
	p.logger.Debug("interrupt socket listening", "path", path)

	return func() {
		cancel()
		<-done
		if err := ipc.Release(listener, path); err != nil {
			p.logger.Warn("release interrupt socket failed", "path", path, "error", err.Error())
		}
	}, nil
}
