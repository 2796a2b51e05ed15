package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gquinteros/listen/internal/audio"
	"github.com/gquinteros/listen/internal/failure"
	"github.com/gquinteros/listen/internal/fsm"
	"github.com/gquinteros/listen/internal/indicator"
	"github.com/gquinteros/listen/internal/ipc"
	"github.com/gquinteros/listen/internal/vad"
)

const (
	defaultProgressInterval  = 100 * time.Millisecond
	defaultFirstChunkTimeout = 2 * time.Second
)

// Progress is reported on every tick while recording.
type Progress struct {
	SessionID string
	Elapsed   time.Duration
	Samples   int
	Level     float32
}

// Options configures one Controller.
type Options struct {
	Format    audio.Format
	Backend   audio.Backend
	Indicator indicator.Indicator
	Logger    *slog.Logger
	// OnProgress runs on the control goroutine once per ProgressInterval.
	OnProgress func(Progress)

	// KeyInput arms the key trigger when set and InterruptMode is off.
	KeyInput io.Reader
	KeyFd    int

	InterruptMode    bool
	InterruptTimeout time.Duration

	// Silence arms auto-stop when set.
	Silence      *vad.Monitor
	PollInterval time.Duration

	FirstChunkTimeout time.Duration
	ProgressInterval  time.Duration
}

// Controller owns one capture session from stream open to buffer snapshot.
type Controller struct {
	opts      Options
	logger    *slog.Logger
	indicator indicator.Indicator
	triggers  []Trigger

	mu      sync.RWMutex
	state   fsm.State
	session *Session

	stops chan struct{}
}

func NewController(opts Options) *Controller {
	if opts.Format == (audio.Format{}) {
		opts.Format = audio.DefaultFormat()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressInterval
	}
	if opts.FirstChunkTimeout <= 0 {
		opts.FirstChunkTimeout = defaultFirstChunkTimeout
	}
	ind := opts.Indicator
	if ind == nil {
		ind = indicator.Noop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller{
		opts:      opts,
		logger:    logger,
		indicator: ind,
		state:     fsm.StateIdle,
		stops:     make(chan struct{}, 1),
	}
	c.triggers = c.buildTriggers()
	return c
}

func (c *Controller) buildTriggers() []Trigger {
	var triggers []Trigger
	if c.opts.InterruptMode {
		triggers = append(triggers, &InterruptTrigger{Timeout: c.opts.InterruptTimeout})
	} else if c.opts.KeyInput != nil {
		triggers = append(triggers, &KeyTrigger{Input: c.opts.KeyInput, Fd: c.opts.KeyFd})
	}
	if c.opts.Silence != nil {
		triggers = append(triggers, &SilenceTrigger{Monitor: *c.opts.Silence, Interval: c.opts.PollInterval})
	}
	return triggers
}

func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) currentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Run records until a trigger fires and returns the captured buffer.
// Cancellation of ctx, or Ctrl-C on a raw terminal, returns an error
// wrapping context.Canceled.
func (c *Controller) Run(ctx context.Context) (Recording, error) {
	if c.opts.Backend == nil {
		return Recording{}, failure.Audio("no capture backend configured")
	}

	session := NewSession(c.opts.Format, time.Now())
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	stream, err := c.opts.Backend.Open(ctx, c.opts.Format, session.Append)
	if err != nil {
		_ = c.transition(fsm.EventFail)
		return Recording{}, failure.Wrap(err, failure.KindAudio)
	}
	device := stream.Device()
	c.logger.Debug("capture stream opened",
		"session_id", session.ID,
		"backend", c.opts.Backend.Name(),
		"device", device.Label(),
		"format", c.opts.Format.String(),
	)

	if err := c.transition(fsm.EventStart); err != nil {
		_ = stream.Stop()
		return Recording{}, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Stop()
		_ = c.transition(fsm.EventFail)
		return Recording{}, failure.Wrap(err, failure.KindAudio)
	}

	c.indicator.ShowRecording(c.banner(device))

	reason, waitErr := c.await(ctx, session)
	if waitErr == nil {
		waitErr = c.awaitFirstChunk(ctx, session, device)
	}

	stopErr := stream.Stop()
	stoppedAt := time.Now()

	if waitErr != nil {
		c.indicator.Hide()
		if errors.Is(waitErr, context.Canceled) {
			_ = c.transition(fsm.EventCancel)
		} else {
			_ = c.transition(fsm.EventFail)
		}
		return Recording{}, waitErr
	}
	if stopErr != nil {
		_ = c.transition(fsm.EventFail)
		return Recording{}, failure.Wrap(stopErr, failure.KindAudio)
	}

	rec := Recording{
		SessionID: session.ID,
		Callbacks: session.Callbacks(),
		Samples:   session.Snapshot(),
		Format:    c.opts.Format,
		Reason:    reason,
		Device:    device,
		StartedAt: session.StartedAt,
		StoppedAt: stoppedAt,
	}
	_ = c.transition(fsm.EventStop)

	c.logger.Debug("capture stopped",
		"session_id", rec.SessionID,
		"reason", string(rec.Reason),
		"samples", len(rec.Samples),
		"callbacks", rec.Callbacks,
		"duration_ms", rec.Duration().Milliseconds(),
	)
	return rec, nil
}

type triggerResult struct {
	trigger string
	reason  StopReason
	err     error
}

// await races the armed triggers against IPC stop requests and ctx.
func (c *Controller) await(ctx context.Context, session *Session) (StopReason, error) {
	var disarms []func()
	defer func() {
		for i := len(disarms) - 1; i >= 0; i-- {
			disarms[i]()
		}
	}()
	for _, t := range c.triggers {
		a, ok := t.(armer)
		if !ok {
			continue
		}
		disarm, err := a.Arm()
		if err != nil {
			return "", err
		}
		disarms = append(disarms, disarm)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	results := make(chan triggerResult, len(c.triggers))
	for _, t := range c.triggers {
		wg.Add(1)
		go func(t Trigger) {
			defer wg.Done()
			reason, err := t.Wait(waitCtx, session)
			results <- triggerResult{trigger: t.Name(), reason: reason, err: err}
		}(t)
	}

	ticker := time.NewTicker(c.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r := <-results:
			if r.err != nil {
				return "", r.err
			}
			c.logger.Debug("stop trigger fired", "trigger", r.trigger, "reason", string(r.reason))
			return r.reason, nil
		case <-c.stops:
			c.logger.Debug("stop trigger fired", "trigger", "ipc", "reason", string(StopExternalInterrupt))
			return StopExternalInterrupt, nil
		case <-ticker.C:
			c.reportProgress(session)
		}
	}
}

// awaitFirstChunk keeps the stream open until at least one buffer arrived.
func (c *Controller) awaitFirstChunk(ctx context.Context, session *Session, device audio.Device) error {
	select {
	case <-session.FirstChunk():
		return nil
	default:
	}

	timer := time.NewTimer(c.opts.FirstChunkTimeout)
	defer timer.Stop()
	select {
	case <-session.FirstChunk():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return failure.Audio("no audio captured from %s within %s", device.Label(), c.opts.FirstChunkTimeout)
	}
}

func (c *Controller) reportProgress(session *Session) {
	p := Progress{
		SessionID: session.ID,
		Elapsed:   time.Since(session.StartedAt),
		Samples:   session.Len(),
		Level:     vad.RMS(session.Tail(c.opts.Format.Samples(c.opts.ProgressInterval))),
	}
	c.indicator.Level(p.Level, p.Elapsed)
	if c.opts.OnProgress != nil {
		c.opts.OnProgress(p)
	}
}

func (c *Controller) banner(device audio.Device) indicator.Banner {
	b := indicator.Banner{
		PID:              os.Getpid(),
		InterruptMode:    c.opts.InterruptMode,
		InterruptTimeout: c.opts.InterruptTimeout,
		Device:           device.Label(),
	}
	for _, t := range c.triggers {
		if t.Name() == "key" {
			b.KeyStop = true
		}
	}
	if c.opts.Silence != nil {
		b.VADEnabled = true
		b.VADDuration = c.opts.Silence.Duration
	}
	return b
}

// Handle serves IPC commands while a recording is active.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.statusResponse()
	case ipc.CommandStop:
		return c.requestStop()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) statusResponse() ipc.Response {
	resp := ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	if s := c.currentSession(); s != nil {
		resp.SessionID = s.ID
		resp.Samples = s.Len()
		resp.ElapsedSeconds = time.Since(s.StartedAt).Seconds()
	}
	return resp
}

// requestStop enqueues an external stop when recording.
func (c *Controller) requestStop() ipc.Response {
	state := c.State()
	if state == fsm.StateTranscribing {
		return ipc.Response{OK: false, State: string(state), Error: "already transcribing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot stop from state %s", state)}
	}

	select {
	case c.stops <- struct{}{}:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}
