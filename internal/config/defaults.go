package config

import "time"

const (
	BackendPulse     = "pulse"
	BackendPortAudio = "portaudio"

	EngineAmplitude = "amplitude"
	EngineWebRTC    = "webrtc"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Language: "es",
		Model:    "base",
		Audio: AudioConfig{
			Backend:         BackendPulse,
			Input:           "default",
			Fallback:        "default",
			FramesPerBuffer: 512,
		},
		Capture: CaptureConfig{
			InterruptTimeout:  30 * time.Second,
			FirstChunkTimeout: 2 * time.Second,
			PollInterval:      50 * time.Millisecond,
		},
		VAD: VADConfig{
			SilenceDuration: 2 * time.Second,
			Threshold:       0.02,
			Engine:          EngineAmplitude,
			WebRTCMode:      2,
		},
	}
}
