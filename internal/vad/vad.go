// Package vad decides whether trailing audio is silent.
package vad

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gquinteros/listen/internal/audio"
)

const (
	// DefaultThreshold is the RMS level below which a window counts as silent.
	DefaultThreshold float32 = 0.02
	// DefaultDuration is how long trailing audio must stay silent before auto-stop.
	DefaultDuration = 2 * time.Second
	// DefaultFrame is the sub-window each silence decision is made over.
	DefaultFrame = 100 * time.Millisecond
)

var ErrInvalidMonitor = errors.New("invalid silence monitor")

// Detector classifies one window of samples.
type Detector interface {
	Silent(window []float32) (bool, error)
}

// RMS returns the root-mean-square level of window, or 0 when empty.
func RMS(window []float32) float32 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(window))))
}

// IsSilent reports whether the RMS of window is below threshold.
// An empty window is silent.
func IsSilent(window []float32, threshold float32) bool {
	if len(window) == 0 {
		return true
	}
	return RMS(window) < threshold
}

// Amplitude is the energy-threshold Detector.
type Amplitude struct {
	Threshold float32
}

func (a Amplitude) Silent(window []float32) (bool, error) {
	return IsSilent(window, a.Threshold), nil
}

// Monitor applies a Detector to the trailing Duration of a growing buffer.
type Monitor struct {
	Format   audio.Format
	Duration time.Duration
	Frame    time.Duration
	Detector Detector
}

// NewMonitor returns an amplitude monitor with the default frame size.
func NewMonitor(format audio.Format, duration time.Duration, threshold float32) Monitor {
	return Monitor{
		Format:   format,
		Duration: duration,
		Frame:    DefaultFrame,
		Detector: Amplitude{Threshold: threshold},
	}
}

func (m Monitor) validate() error {
	if err := m.Format.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMonitor, err)
	}
	if m.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidMonitor)
	}
	if m.Detector == nil {
		return fmt.Errorf("%w: detector is required", ErrInvalidMonitor)
	}
	return nil
}

// Window returns the trailing sample count the monitor inspects.
func (m Monitor) Window() int {
	return m.Format.Samples(m.Duration)
}

// Silent reports whether every Frame-sized sub-window of the trailing
// Duration of buffer is silent. A buffer shorter than Duration is never silent.
func (m Monitor) Silent(buffer []float32) (bool, error) {
	if err := m.validate(); err != nil {
		return false, err
	}

	window := m.Window()
	if window <= 0 || len(buffer) < window {
		return false, nil
	}
	tail := buffer[len(buffer)-window:]

	frame := m.Format.Samples(m.Frame)
	if frame <= 0 || frame > window {
		frame = window
	}

	for start := 0; start < len(tail); start += frame {
		end := min(start+frame, len(tail))
		silent, err := m.Detector.Silent(tail[start:end])
		if err != nil {
			return false, err
		}
		if !silent {
			return false, nil
		}
	}
	return true, nil
}
