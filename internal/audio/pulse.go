package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/gquinteros/listen/internal/failure"
)

const (
	bytesPerFloat32 = 4
	fragmentPeriod  = 20 * time.Millisecond
)

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no input device found")
	}

	var (
		defaultDevice *Device
		byInput       *Device
		byFallback    *Device
	)

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && isNamed(input) && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && isNamed(fallback) && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default input device is unavailable")
		}
		return defaultDevice, nil
	}

	var primary *Device
	if !isNamed(input) {
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, err
		}
		primary = d
	} else {
		if byInput == nil {
			return Selection{}, fmt.Errorf("audio.input %q did not match any device", input)
		}
		primary = byInput
	}
	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	primaryReason := "unavailable"
	if primary.Muted {
		primaryReason = "muted"
	}

	var fallbackDevice *Device
	if isNamed(fallback) {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("input %q is %s and fallback %q not found", primary.ID, primaryReason, fallback)
		}
		fallbackDevice = byFallback
	} else {
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, fmt.Errorf("input %q is %s and no usable fallback: %w", primary.ID, primaryReason, err)
		}
		fallbackDevice = d
	}

	if !fallbackDevice.Available {
		return Selection{}, fmt.Errorf("fallback device %q is not available", fallbackDevice.ID)
	}
	if fallbackDevice.Muted {
		return Selection{}, fmt.Errorf("fallback device %q is muted", fallbackDevice.ID)
	}

	return Selection{
		Device:   *fallbackDevice,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, primaryReason, fallbackDevice.ID),
		Fallback: primary.ID != fallbackDevice.ID,
	}, nil
}

func isNamed(term string) bool {
	return term != "" && term != "default"
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// PulseBackend opens float32 record streams on a PulseAudio/PipeWire server.
type PulseBackend struct {
	Input    string
	Fallback string
	// OnWarning receives non-fatal selection warnings (fallback used).
	OnWarning func(string)
}

func (b PulseBackend) Name() string { return "pulse" }

// Open resolves the input source and creates a stopped record stream.
func (b PulseBackend) Open(ctx context.Context, format Format, onSamples SampleFunc) (Stream, error) {
	if err := format.Validate(); err != nil {
		return nil, failure.Audio("%w", err)
	}
	channelOpt, err := pulseChannels(format.Channels)
	if err != nil {
		return nil, err
	}

	selection, err := SelectDevice(ctx, b.Input, b.Fallback)
	if err != nil {
		return nil, failure.Audio("%w", err)
	}
	if selection.Warning != "" && b.OnWarning != nil {
		b.OnWarning(selection.Warning)
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, failure.Audio("%w", err)
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, failure.Audio("resolve source %q: %w", selection.Device.ID, err)
	}

	capture := &pulseStream{
		device:    selection.Device,
		client:    client,
		onSamples: onSamples,
		stopCh:    make(chan struct{}),
	}

	fragment := format.Samples(fragmentPeriod) * bytesPerFloat32
	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatFloat32LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		channelOpt,
		pulse.RecordSampleRate(format.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(fragment)),
		pulse.RecordMediaName("listen transcription"),
	)
	if err != nil {
		client.Close()
		return nil, failure.Audio("failed to build stream at %s float32: %w", format, err)
	}
	capture.stream = stream
	return capture, nil
}

func pulseChannels(channels int) (pulse.RecordOption, error) {
	switch channels {
	case 1:
		return pulse.RecordMono, nil
	case 2:
		return pulse.RecordStereo, nil
	default:
		return nil, failure.Audio("unsupported channel count %d", channels)
	}
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("listen"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// pulseStream adapts a Pulse record stream to Stream, decoding float32le frames.
type pulseStream struct {
	device    Device
	client    *pulse.Client
	stream    *pulse.RecordStream
	onSamples SampleFunc

	stopCh chan struct{}

	mu      sync.Mutex
	carry   []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

func (c *pulseStream) Device() Device { return c.device }

func (c *pulseStream) Start() error {
	if c.stream == nil {
		return failure.Audio("stream not initialized")
	}
	c.stream.Start()
	return nil
}

// Stop halts the stream and waits for any in-flight callback to return.
func (c *pulseStream) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()
	return nil
}

// onPCM receives raw Pulse frames and forwards whole float32 samples.
func (c *pulseStream) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)
	data := append(c.carry, buffer...)
	whole := len(data) - len(data)%bytesPerFloat32
	c.carry = append([]byte(nil), data[whole:]...)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	if whole > 0 && c.onSamples != nil {
		c.onSamples(decodeFloat32LE(data[:whole]))
	}
	return len(buffer), nil
}

func decodeFloat32LE(b []byte) []float32 {
	out := make([]float32, len(b)/bytesPerFloat32)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*bytesPerFloat32:]))
	}
	return out
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
