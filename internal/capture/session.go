// Package capture runs one live recording session and decides when it stops.
package capture

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gquinteros/listen/internal/audio"
)

// StopReason records which trigger ended a recording.
type StopReason string

const (
	StopUserSignal        StopReason = "user_signal"
	StopSilence           StopReason = "silence"
	StopExternalInterrupt StopReason = "external_interrupt"
	StopTimeout           StopReason = "timeout"
)

// Session is the shared sample buffer of one recording.
// Append runs on the audio callback; everything else on the control side.
type Session struct {
	ID        string
	StartedAt time.Time
	Format    audio.Format

	mu        sync.Mutex
	samples   []float32
	callbacks int

	firstChunk     chan struct{}
	firstChunkOnce sync.Once
}

func NewSession(format audio.Format, startedAt time.Time) *Session {
	return &Session{
		ID:         uuid.NewString(),
		StartedAt:  startedAt,
		Format:     format,
		samples:    make([]float32, 0, format.Samples(10*time.Second)),
		firstChunk: make(chan struct{}),
	}
}

// Append copies p into the buffer. The lock covers only the append.
func (s *Session) Append(p []float32) {
	s.mu.Lock()
	s.samples = append(s.samples, p...)
	s.callbacks++
	s.mu.Unlock()

	if len(p) > 0 {
		s.firstChunkOnce.Do(func() { close(s.firstChunk) })
	}
}

// FirstChunk is closed once the first non-empty buffer arrives.
func (s *Session) FirstChunk() <-chan struct{} {
	return s.firstChunk
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func (s *Session) Callbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks
}

// Tail returns a copy of the last n samples, or fewer if the buffer is shorter.
func (s *Session) Tail(n int) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil
	}
	n = min(n, len(s.samples))
	out := make([]float32, n)
	copy(out, s.samples[len(s.samples)-n:])
	return out
}

// Snapshot moves the buffer out of the session. Call it only after the
// stream has stopped; later Appends start a fresh buffer.
func (s *Session) Snapshot() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.samples
	s.samples = nil
	return out
}

// Recording is the outcome of one completed capture.
type Recording struct {
	SessionID string
	Samples   []float32
	Format    audio.Format
	Reason    StopReason
	Device    audio.Device
	StartedAt time.Time
	StoppedAt time.Time
	Callbacks int
}

// Duration is the audio length of Samples.
func (r Recording) Duration() time.Duration {
	return r.Format.Duration(len(r.Samples))
}
