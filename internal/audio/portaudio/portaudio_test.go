package portaudio

import (
	"testing"

	pa "github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/require"
)

func TestMatchDeviceSkipsOutputOnlyDevices(t *testing.T) {
	devices := []*pa.DeviceInfo{
		nil,
		{Name: "USB Audio Speakers", MaxInputChannels: 0, MaxOutputChannels: 2},
		{Name: "USB Audio Mic", MaxInputChannels: 1},
		{Name: "Built-in Microphone", MaxInputChannels: 2},
	}

	require.Equal(t, "USB Audio Mic", matchDevice(devices, "usb audio").Name)
	require.Equal(t, "Built-in Microphone", matchDevice(devices, "built-in").Name)
	require.Nil(t, matchDevice(devices, "speakers"))
	require.Nil(t, matchDevice(devices, "missing"))
}

func TestInputDevicesMarksDefault(t *testing.T) {
	devices := []*pa.DeviceInfo{
		{Name: "HDMI Out", MaxOutputChannels: 2},
		{Name: "USB Audio Mic", MaxInputChannels: 1, HostApi: &pa.HostApiInfo{Name: "ALSA"}},
		{Name: "pulse", MaxInputChannels: 32},
	}

	got := inputDevices(devices, "pulse")
	require.Len(t, got, 2)
	require.Equal(t, "USB Audio Mic", got[0].ID)
	require.Equal(t, "ALSA", got[0].State)
	require.False(t, got[0].Default)
	require.True(t, got[1].Default)
}

func TestBackendName(t *testing.T) {
	require.Equal(t, "portaudio", Backend{}.Name())
}
