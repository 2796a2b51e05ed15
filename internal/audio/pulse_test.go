package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestSelectDeviceFromList(t *testing.T) {
	headset := Device{ID: "alsa_input.usb-headset", Description: "USB Headset Mono", Available: true, Default: true}
	webcam := Device{ID: "alsa_input.webcam", Description: "HD Webcam Analog Stereo", Available: true}
	muted := headset
	muted.Muted = true
	unplugged := webcam
	unplugged.Available = false

	tests := []struct {
		name         string
		devices      []Device
		input        string
		fallback     string
		wantID       string
		wantFallback bool
		wantWarning  string
		wantErr      string
	}{
		{name: "default source", devices: []Device{headset, webcam}, input: "default", fallback: "default", wantID: headset.ID},
		{name: "empty terms mean default", devices: []Device{webcam, headset}, wantID: headset.ID},
		{name: "named by description", devices: []Device{headset, webcam}, input: "webcam", fallback: "default", wantID: webcam.ID},
		{name: "muted input uses fallback", devices: []Device{muted, webcam}, input: "headset", fallback: "webcam", wantID: webcam.ID, wantFallback: true, wantWarning: "muted"},
		{name: "unavailable input uses default", devices: []Device{headset, unplugged}, input: "webcam", fallback: "default", wantID: headset.ID, wantFallback: true, wantWarning: "unavailable"},
		{name: "muted without usable fallback", devices: []Device{muted}, input: "default", fallback: "default", wantErr: "muted"},
		{name: "fallback not found", devices: []Device{muted}, input: "headset", fallback: "bluetooth", wantErr: "not found"},
		{name: "unknown input", devices: []Device{headset}, input: "missing", fallback: "default", wantErr: "did not match"},
		{name: "no devices", input: "default", fallback: "default", wantErr: "no input device found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			selection, err := selectDeviceFromList(tc.devices, tc.input, tc.fallback)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantID, selection.Device.ID)
			require.Equal(t, tc.wantFallback, selection.Fallback)
			if tc.wantWarning == "" {
				require.Empty(t, selection.Warning)
			} else {
				require.Contains(t, selection.Warning, tc.wantWarning)
			}
		})
	}
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)
}

func TestPulseBackendOpenFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := PulseBackend{Input: "default", Fallback: "default"}.Open(context.Background(), DefaultFormat(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio error")
}

func TestPulseBackendRejectsUnsupportedChannels(t *testing.T) {
	_, err := PulseBackend{}.Open(context.Background(), Format{SampleRate: 16000, Channels: 6}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported channel count")
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{})) // no ports => available

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestPulseStreamOnPCMDecodesFloatsAndCarriesPartialSample(t *testing.T) {
	var got []float32
	stream := &pulseStream{
		stopCh:    make(chan struct{}),
		onSamples: func(p []float32) { got = append(got, p...) },
	}

	want := []float32{0.5, -0.25, 1, 0}
	raw := encodeFloat32LE(want)

	// Split mid-sample: 6 bytes then the rest.
	n, err := stream.onPCM(raw[:6])
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, []float32{0.5}, got)

	n, err = stream.onPCM(raw[6:])
	require.NoError(t, err)
	require.Equal(t, len(raw)-6, n)
	require.Equal(t, want, got)
	require.Equal(t, int64(len(raw)), stream.bytes.Load())
}

func TestPulseStreamOnPCMReturnsEOFWhenStopped(t *testing.T) {
	calls := 0
	stream := &pulseStream{
		stopCh:    make(chan struct{}),
		onSamples: func([]float32) { calls++ },
	}
	require.NoError(t, stream.Stop())
	require.NoError(t, stream.Stop())

	n, err := stream.onPCM(encodeFloat32LE([]float32{0.1}))
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, calls)
}

func TestPulseStreamStartWithoutStream(t *testing.T) {
	stream := &pulseStream{device: Device{ID: "mic-1"}, stopCh: make(chan struct{})}
	require.Equal(t, "mic-1", stream.Device().ID)
	require.Error(t, stream.Start())
}

func encodeFloat32LE(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerFloat32)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*bytesPerFloat32:], math.Float32bits(s))
	}
	return out
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	replyValue := reflect.ValueOf(reply).Elem().FieldByName("Ports")
	replyValue.Set(sliceValue)
}
