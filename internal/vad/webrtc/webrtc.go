// Package webrtc adapts the WebRTC voice activity detector to vad.Detector.
package webrtc

import (
	"fmt"
	"slices"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// FrameMillis is the frame length fed to the detector.
const FrameMillis = 10

var supportedRates = []int{8000, 16000, 32000, 48000}

// Detector reports a window silent when no 10ms frame in it is voiced.
type Detector struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
}

// New returns a Detector with aggressiveness mode 0 (least) to 3 (most).
func New(sampleRate, mode int) (*Detector, error) {
	if !slices.Contains(supportedRates, sampleRate) {
		return nil, fmt.Errorf("webrtc vad: sample rate %d not in %v", sampleRate, supportedRates)
	}
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("webrtc vad: mode must be between 0 and 3, got %d", mode)
	}

	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("webrtc vad: create: %w", err)
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("webrtc vad: set mode: %w", err)
	}
	return &Detector{vad: v, sampleRate: sampleRate, mode: mode}, nil
}

func (d *Detector) Mode() int { return d.mode }

func (d *Detector) frameSize() int { return d.sampleRate * FrameMillis / 1000 }

// Silent pads a trailing partial frame with zeros.
func (d *Detector) Silent(window []float32) (bool, error) {
	if len(window) == 0 {
		return true, nil
	}

	size := d.frameSize()
	frame := make([]byte, size*2)
	for start := 0; start < len(window); start += size {
		end := min(start+size, len(window))
		encodeFrame(frame, window[start:end])

		active, err := d.vad.Process(d.sampleRate, frame)
		if err != nil {
			return false, fmt.Errorf("webrtc vad: process: %w", err)
		}
		if active {
			return false, nil
		}
	}
	return true, nil
}

// encodeFrame writes samples as little-endian int16 into dst, zero-filling the rest.
func encodeFrame(dst []byte, samples []float32) {
	clear(dst)
	for i, s := range samples {
		s = max(-1, min(1, s))
		v := int16(s * 32767)
		dst[i*2] = byte(v)
		dst[i*2+1] = byte(v >> 8)
	}
}
