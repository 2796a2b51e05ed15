// Package portaudio provides a PortAudio capture backend with a per-buffer callback.
package portaudio

import (
	"context"
	"strings"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/gquinteros/listen/internal/audio"
	"github.com/gquinteros/listen/internal/failure"
)

// DefaultFramesPerBuffer is 32ms at 16kHz.
const DefaultFramesPerBuffer = 512

// Backend opens float32 input streams through PortAudio.
type Backend struct {
	// Input selects a device by case-insensitive name substring; empty or "default" uses the system default.
	Input           string
	FramesPerBuffer int
}

func (Backend) Name() string { return "portaudio" }

// Open initializes PortAudio and opens a stopped callback stream at format.
func (b Backend) Open(_ context.Context, format audio.Format, onSamples audio.SampleFunc) (audio.Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, failure.Audio("%w", err)
	}
	if err := pa.Initialize(); err != nil {
		return nil, failure.Audio("failed to initialize PortAudio: %w", err)
	}

	device, err := b.resolveDevice()
	if err != nil {
		_ = pa.Terminate()
		return nil, err
	}
	if device.MaxInputChannels < format.Channels {
		_ = pa.Terminate()
		return nil, failure.Audio("device %q supports %d input channel(s), need %d", device.Name, device.MaxInputChannels, format.Channels)
	}

	frames := b.FramesPerBuffer
	if frames <= 0 {
		frames = DefaultFramesPerBuffer
	}

	params := pa.LowLatencyParameters(device, nil)
	params.Input.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = frames

	s := &stream{
		device:    audio.Device{ID: device.Name, Description: device.Name, Available: true},
		onSamples: onSamples,
	}
	st, err := pa.OpenStream(params, s.callback)
	if err != nil {
		_ = pa.Terminate()
		return nil, failure.Audio("failed to build stream at %s float32: %w", format, err)
	}
	s.stream = st
	return s, nil
}

func (b Backend) resolveDevice() (*pa.DeviceInfo, error) {
	name := strings.TrimSpace(strings.ToLower(b.Input))
	if name == "" || name == "default" {
		device, err := pa.DefaultInputDevice()
		if err != nil || device == nil {
			return nil, failure.Audio("No input device found")
		}
		return device, nil
	}

	devices, err := pa.Devices()
	if err != nil {
		return nil, failure.Audio("list devices: %w", err)
	}
	device := matchDevice(devices, name)
	if device == nil {
		return nil, failure.Audio("audio.input %q did not match any input device", b.Input)
	}
	return device, nil
}

// ListDevices returns input-capable PortAudio devices.
func ListDevices() ([]audio.Device, error) {
	if err := pa.Initialize(); err != nil {
		return nil, failure.Audio("failed to initialize PortAudio: %w", err)
	}
	defer func() { _ = pa.Terminate() }()

	devices, err := pa.Devices()
	if err != nil {
		return nil, failure.Audio("list devices: %w", err)
	}
	defaultName := ""
	if dev, err := pa.DefaultInputDevice(); err == nil && dev != nil {
		defaultName = dev.Name
	}
	return inputDevices(devices, defaultName), nil
}

func inputDevices(devices []*pa.DeviceInfo, defaultName string) []audio.Device {
	out := make([]audio.Device, 0, len(devices))
	for _, dev := range devices {
		if dev == nil || dev.MaxInputChannels <= 0 {
			continue
		}
		hostAPI := ""
		if dev.HostApi != nil {
			hostAPI = dev.HostApi.Name
		}
		out = append(out, audio.Device{
			ID:          dev.Name,
			Description: dev.Name,
			State:       hostAPI,
			Available:   true,
			Default:     dev.Name == defaultName,
		})
	}
	return out
}

// matchDevice returns the first input-capable device whose name contains term.
func matchDevice(devices []*pa.DeviceInfo, term string) *pa.DeviceInfo {
	for _, dev := range devices {
		if dev == nil || dev.MaxInputChannels <= 0 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), term) {
			return dev
		}
	}
	return nil
}

type stream struct {
	device    audio.Device
	stream    *pa.Stream
	onSamples audio.SampleFunc

	mu      sync.Mutex
	stopped bool
}

func (s *stream) Device() audio.Device { return s.device }

func (s *stream) Start() error {
	if err := s.stream.Start(); err != nil {
		return failure.Audio("Failed to start stream: %w", err)
	}
	return nil
}

// Stop relies on Pa_StopStream returning only after the last callback completed.
func (s *stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	_ = pa.Terminate()
	if stopErr != nil {
		return failure.Audio("stop stream: %w", stopErr)
	}
	if closeErr != nil {
		return failure.Audio("close stream: %w", closeErr)
	}
	return nil
}

func (s *stream) callback(in []float32) {
	if s.onSamples != nil {
		s.onSamples(in)
	}
}
