// Package audio acquires normalized mono float32 sample buffers from live devices and WAV files.
package audio

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

// Format is the sample rate and channel count every producer normalizes to.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat returns the 16kHz mono format whisper models expect.
func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels}
}

// Validate rejects formats no backend can open.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be > 0, got %d", f.Channels)
	}
	return nil
}

// Samples returns the interleaved sample count covering d.
func (f Format) Samples(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(f.SampleRate*f.Channels)))
}

// Duration returns the playback length of n interleaved samples.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(f.SampleRate*f.Channels) * float64(time.Second))
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Device describes one capture source surfaced to listen.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Label formats device metadata for logs and banners.
func (d Device) Label() string {
	switch {
	case d.Description == "":
		return d.ID
	case d.ID == "":
		return d.Description
	default:
		return fmt.Sprintf("%s (%s)", d.Description, d.ID)
	}
}

// SampleFunc receives one hardware buffer of float32 samples.
// The slice is only valid for the duration of the call.
type SampleFunc func([]float32)

// Stream is one open live capture stream.
type Stream interface {
	Start() error
	// Stop halts the stream. No SampleFunc invocation runs or starts after it returns.
	Stop() error
	Device() Device
}

// Backend opens live capture streams on the default (or configured) input device.
type Backend interface {
	Name() string
	Open(ctx context.Context, format Format, onSamples SampleFunc) (Stream, error)
}
