package vad

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gquinteros/listen/internal/audio"
)

func TestIsSilent(t *testing.T) {
	require.True(t, IsSilent(nil, DefaultThreshold))
	require.True(t, IsSilent(make([]float32, 1600), DefaultThreshold))
	require.True(t, IsSilent(constant(1600, 0.01), DefaultThreshold))
	require.False(t, IsSilent(constant(1600, 0.5), DefaultThreshold))
}

func TestRMS(t *testing.T) {
	require.Zero(t, RMS(nil))
	require.InDelta(t, 0.5, RMS([]float32{0.5, -0.5, 0.5, -0.5}), 1e-6)
}

func TestMonitorRequiresFullDuration(t *testing.T) {
	m := NewMonitor(audio.DefaultFormat(), 2*time.Second, DefaultThreshold)

	silent, err := m.Silent(make([]float32, 31999))
	require.NoError(t, err)
	require.False(t, silent)

	silent, err = m.Silent(make([]float32, 32000))
	require.NoError(t, err)
	require.True(t, silent)
}

func TestMonitorThreeSecondsOfSilenceTriggersAutoStop(t *testing.T) {
	format := audio.DefaultFormat()
	m := NewMonitor(format, 2*time.Second, 0.02)
	buffer := make([]float32, 0, 3*format.SampleRate)

	chunk := format.Samples(100 * time.Millisecond)
	stopAt := -1
	for i := 0; i < 30; i++ {
		buffer = append(buffer, make([]float32, chunk)...)
		silent, err := m.Silent(buffer)
		require.NoError(t, err)
		if silent {
			stopAt = len(buffer)
			break
		}
	}

	require.Positive(t, stopAt)
	require.Less(t, stopAt, 3*format.SampleRate)
	require.Equal(t, 2*format.SampleRate, stopAt)
}

func TestMonitorSpeechInAnySubWindowKeepsRecording(t *testing.T) {
	format := audio.DefaultFormat()
	m := NewMonitor(format, 2*time.Second, DefaultThreshold)

	buffer := make([]float32, 3*format.SampleRate)
	// One loud 100ms frame inside the trailing two seconds.
	copy(buffer[2*format.SampleRate:], constant(1600, 0.3))

	silent, err := m.Silent(buffer)
	require.NoError(t, err)
	require.False(t, silent)

	// The same burst before the trailing window no longer matters.
	buffer = append(buffer, make([]float32, 2*format.SampleRate)...)
	silent, err = m.Silent(buffer)
	require.NoError(t, err)
	require.True(t, silent)
}

func TestMonitorValidation(t *testing.T) {
	_, err := Monitor{Format: audio.DefaultFormat(), Duration: 0, Detector: Amplitude{}}.Silent(nil)
	require.ErrorIs(t, err, ErrInvalidMonitor)

	_, err = Monitor{Format: audio.DefaultFormat(), Duration: time.Second}.Silent(nil)
	require.ErrorIs(t, err, ErrInvalidMonitor)
}

func TestMonitorPropagatesDetectorError(t *testing.T) {
	boom := errors.New("boom")
	m := Monitor{
		Format:   audio.DefaultFormat(),
		Duration: time.Second,
		Frame:    DefaultFrame,
		Detector: detectorFunc(func([]float32) (bool, error) { return false, boom }),
	}

	_, err := m.Silent(make([]float32, 16000))
	require.ErrorIs(t, err, boom)
}

type detectorFunc func([]float32) (bool, error)

func (f detectorFunc) Silent(w []float32) (bool, error) { return f(w) }

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
