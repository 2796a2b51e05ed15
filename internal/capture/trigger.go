package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/gquinteros/listen/internal/failure"
	"github.com/gquinteros/listen/internal/vad"
)

const ctrlC = 0x03

// ErrInterrupted is returned when Ctrl-C is read while the terminal is raw.
var ErrInterrupted = fmt.Errorf("interrupted from keyboard: %w", context.Canceled)

// Trigger blocks until its stop condition holds or ctx ends.
type Trigger interface {
	Name() string
	Wait(ctx context.Context, s *Session) (StopReason, error)
}

// armer is implemented by triggers that hold process state while waiting.
type armer interface {
	Arm() (disarm func(), err error)
}

// KeyTrigger stops on space, newline or carriage return read from Input.
type KeyTrigger struct {
	Input io.Reader
	// Fd is put into raw mode while armed when it is a terminal. Negative disables.
	Fd int
}

func (k *KeyTrigger) Name() string { return "key" }

func (k *KeyTrigger) Arm() (func(), error) {
	if k.Fd < 0 || !term.IsTerminal(k.Fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(k.Fd)
	if err != nil {
		return nil, failure.Signal("enable raw terminal input: %w", err)
	}
	return func() { _ = term.Restore(k.Fd, state) }, nil
}

// Wait reads from Input on a helper goroutine that outlives Wait until the
// next byte or EOF arrives. End of input parks the trigger.
func (k *KeyTrigger) Wait(ctx context.Context, _ *Session) (StopReason, error) {
	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := k.Input.Read(buf)
			if n > 0 {
				select {
				case keys <- buf[0]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case b := <-keys:
			switch b {
			case ' ', '\n', '\r':
				return StopUserSignal, nil
			case ctrlC:
				return "", ErrInterrupted
			}
		}
	}
}

// InterruptTrigger stops on SIGUSR1, or with StopTimeout once Timeout elapses.
type InterruptTrigger struct {
	Timeout time.Duration

	signals chan os.Signal
}

func (t *InterruptTrigger) Name() string { return "interrupt" }

func (t *InterruptTrigger) Arm() (func(), error) {
	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGUSR1)
	return func() { signal.Stop(t.signals) }, nil
}

func (t *InterruptTrigger) Wait(ctx context.Context, _ *Session) (StopReason, error) {
	var timeout <-chan time.Time
	if t.Timeout > 0 {
		timer := time.NewTimer(t.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.signals:
		return StopExternalInterrupt, nil
	case <-timeout:
		return StopTimeout, nil
	}
}

// SilenceTrigger polls the session tail with Monitor.
type SilenceTrigger struct {
	Monitor  vad.Monitor
	Interval time.Duration
}

func (t *SilenceTrigger) Name() string { return "silence" }

func (t *SilenceTrigger) Wait(ctx context.Context, s *Session) (StopReason, error) {
	interval := t.Interval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	window := t.Monitor.Window()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		if window <= 0 || s.Len() < window {
			continue
		}
		silent, err := t.Monitor.Silent(s.Tail(window))
		if err != nil {
			return "", failure.Audio("silence detection: %w", err)
		}
		if silent {
			return StopSilence, nil
		}
	}
}
