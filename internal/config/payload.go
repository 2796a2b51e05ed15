package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// filePayload is the on-disk document shared by the JSONC, TOML, and YAML
// parsers. Nil fields leave the base config untouched.
type filePayload struct {
	Language  *string     `json:"language,omitempty" toml:"language,omitempty" yaml:"language,omitempty"`
	Model     *string     `json:"model,omitempty" toml:"model,omitempty" yaml:"model,omitempty"`
	ModelDirs *stringList `json:"model_dirs,omitempty" toml:"model_dirs,omitempty" yaml:"model_dirs,omitempty"`

	Audio   *fileAudio   `json:"audio,omitempty" toml:"audio,omitempty" yaml:"audio,omitempty"`
	Capture *fileCapture `json:"capture,omitempty" toml:"capture,omitempty" yaml:"capture,omitempty"`
	VAD     *fileVAD     `json:"vad,omitempty" toml:"vad,omitempty" yaml:"vad,omitempty"`
	Decode  *fileDecode  `json:"decode,omitempty" toml:"decode,omitempty" yaml:"decode,omitempty"`
	Output  *fileOutput  `json:"output,omitempty" toml:"output,omitempty" yaml:"output,omitempty"`
	Debug   *fileDebug   `json:"debug,omitempty" toml:"debug,omitempty" yaml:"debug,omitempty"`
}

type fileAudio struct {
	Backend         *string `json:"backend,omitempty" toml:"backend,omitempty" yaml:"backend,omitempty"`
	Input           *string `json:"input,omitempty" toml:"input,omitempty" yaml:"input,omitempty"`
	Fallback        *string `json:"fallback,omitempty" toml:"fallback,omitempty" yaml:"fallback,omitempty"`
	FramesPerBuffer *int    `json:"frames_per_buffer,omitempty" toml:"frames_per_buffer,omitempty" yaml:"frames_per_buffer,omitempty"`
}

// Durations are expressed in seconds.
type fileCapture struct {
	InterruptMode     *bool    `json:"interrupt_mode,omitempty" toml:"interrupt_mode,omitempty" yaml:"interrupt_mode,omitempty"`
	InterruptTimeout  *float64 `json:"interrupt_timeout,omitempty" toml:"interrupt_timeout,omitempty" yaml:"interrupt_timeout,omitempty"`
	FirstChunkTimeout *float64 `json:"first_chunk_timeout,omitempty" toml:"first_chunk_timeout,omitempty" yaml:"first_chunk_timeout,omitempty"`
	PollInterval      *float64 `json:"poll_interval,omitempty" toml:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
}

type fileVAD struct {
	Enabled         *bool    `json:"enabled,omitempty" toml:"enabled,omitempty" yaml:"enabled,omitempty"`
	SilenceDuration *float64 `json:"silence_duration,omitempty" toml:"silence_duration,omitempty" yaml:"silence_duration,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty" toml:"threshold,omitempty" yaml:"threshold,omitempty"`
	Engine          *string  `json:"engine,omitempty" toml:"engine,omitempty" yaml:"engine,omitempty"`
	WebRTCMode      *int     `json:"webrtc_mode,omitempty" toml:"webrtc_mode,omitempty" yaml:"webrtc_mode,omitempty"`
}

type fileDecode struct {
	Threads  *int  `json:"threads,omitempty" toml:"threads,omitempty" yaml:"threads,omitempty"`
	FastMode *bool `json:"fast_mode,omitempty" toml:"fast_mode,omitempty" yaml:"fast_mode,omitempty"`
}

type fileOutput struct {
	JSON         *bool   `json:"json,omitempty" toml:"json,omitempty" yaml:"json,omitempty"`
	Quiet        *bool   `json:"quiet,omitempty" toml:"quiet,omitempty" yaml:"quiet,omitempty"`
	Verbose      *bool   `json:"verbose,omitempty" toml:"verbose,omitempty" yaml:"verbose,omitempty"`
	Visual       *bool   `json:"visual,omitempty" toml:"visual,omitempty" yaml:"visual,omitempty"`
	File         *string `json:"file,omitempty" toml:"file,omitempty" yaml:"file,omitempty"`
	StatusFile   *string `json:"status_file,omitempty" toml:"status_file,omitempty" yaml:"status_file,omitempty"`
	ClipboardCmd *string `json:"clipboard_cmd,omitempty" toml:"clipboard_cmd,omitempty" yaml:"clipboard_cmd,omitempty"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump,omitempty" toml:"audio_dump,omitempty" yaml:"audio_dump,omitempty"`
}

// stringList accepts either a list or a comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = splitList(node.Value)
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return fmt.Errorf("expected string array or comma-delimited string: %w", err)
	}
	*l = list
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func (payload filePayload) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Language != nil {
		cfg.Language = strings.TrimSpace(*payload.Language)
	}
	if payload.Model != nil {
		cfg.Model = strings.TrimSpace(*payload.Model)
	}
	if payload.ModelDirs != nil {
		cfg.ModelDirs = append([]string(nil), (*payload.ModelDirs)...)
	}

	if a := payload.Audio; a != nil {
		if a.Backend != nil {
			cfg.Audio.Backend = strings.ToLower(strings.TrimSpace(*a.Backend))
		}
		if a.Input != nil {
			cfg.Audio.Input = *a.Input
		}
		if a.Fallback != nil {
			cfg.Audio.Fallback = *a.Fallback
		}
		if a.FramesPerBuffer != nil {
			cfg.Audio.FramesPerBuffer = *a.FramesPerBuffer
		}
	}

	if c := payload.Capture; c != nil {
		if c.InterruptMode != nil {
			cfg.Capture.InterruptMode = *c.InterruptMode
		}
		if c.InterruptTimeout != nil {
			cfg.Capture.InterruptTimeout = seconds(*c.InterruptTimeout)
		}
		if c.FirstChunkTimeout != nil {
			cfg.Capture.FirstChunkTimeout = seconds(*c.FirstChunkTimeout)
		}
		if c.PollInterval != nil {
			cfg.Capture.PollInterval = seconds(*c.PollInterval)
		}
	}

	if v := payload.VAD; v != nil {
		if v.Enabled != nil {
			cfg.VAD.Enabled = *v.Enabled
		}
		if v.SilenceDuration != nil {
			cfg.VAD.SilenceDuration = seconds(*v.SilenceDuration)
		}
		if v.Threshold != nil {
			cfg.VAD.Threshold = *v.Threshold
		}
		if v.Engine != nil {
			cfg.VAD.Engine = strings.ToLower(strings.TrimSpace(*v.Engine))
		}
		if v.WebRTCMode != nil {
			cfg.VAD.WebRTCMode = *v.WebRTCMode
		}
	}

	if d := payload.Decode; d != nil {
		if d.Threads != nil {
			cfg.Decode.Threads = *d.Threads
		}
		if d.FastMode != nil {
			cfg.Decode.FastMode = *d.FastMode
		}
	}

	if o := payload.Output; o != nil {
		if o.JSON != nil {
			cfg.Output.JSON = *o.JSON
		}
		if o.Quiet != nil {
			cfg.Output.Quiet = *o.Quiet
		}
		if o.Verbose != nil {
			cfg.Output.Verbose = *o.Verbose
		}
		if o.Visual != nil {
			cfg.Output.Visual = *o.Visual
		}
		if o.File != nil {
			cfg.Output.File = strings.TrimSpace(*o.File)
		}
		if o.StatusFile != nil {
			cfg.Output.StatusFile = strings.TrimSpace(*o.StatusFile)
		}
		if o.ClipboardCmd != nil {
			clipboard, err := ParseCommand(*o.ClipboardCmd)
			if err != nil {
				return nil, fmt.Errorf("invalid output.clipboard_cmd: %w", err)
			}
			cfg.Output.Clipboard = clipboard
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return warnings, nil
}

// payloadFrom renders every field of cfg, for writing a complete file.
func payloadFrom(cfg Config) filePayload {
	var dirs *stringList
	if len(cfg.ModelDirs) > 0 {
		list := stringList(append([]string(nil), cfg.ModelDirs...))
		dirs = &list
	}
	return filePayload{
		Language:  ptr(cfg.Language),
		Model:     ptr(cfg.Model),
		ModelDirs: dirs,
		Audio: &fileAudio{
			Backend:         ptr(cfg.Audio.Backend),
			Input:           ptr(cfg.Audio.Input),
			Fallback:        ptr(cfg.Audio.Fallback),
			FramesPerBuffer: ptr(cfg.Audio.FramesPerBuffer),
		},
		Capture: &fileCapture{
			InterruptMode:     ptr(cfg.Capture.InterruptMode),
			InterruptTimeout:  ptr(cfg.Capture.InterruptTimeout.Seconds()),
			FirstChunkTimeout: ptr(cfg.Capture.FirstChunkTimeout.Seconds()),
			PollInterval:      ptr(cfg.Capture.PollInterval.Seconds()),
		},
		VAD: &fileVAD{
			Enabled:         ptr(cfg.VAD.Enabled),
			SilenceDuration: ptr(cfg.VAD.SilenceDuration.Seconds()),
			Threshold:       ptr(cfg.VAD.Threshold),
			Engine:          ptr(cfg.VAD.Engine),
			WebRTCMode:      ptr(cfg.VAD.WebRTCMode),
		},
		Decode: &fileDecode{
			Threads:  ptr(cfg.Decode.Threads),
			FastMode: ptr(cfg.Decode.FastMode),
		},
		Output: &fileOutput{
			JSON:         ptr(cfg.Output.JSON),
			Quiet:        ptr(cfg.Output.Quiet),
			Verbose:      ptr(cfg.Output.Verbose),
			Visual:       ptr(cfg.Output.Visual),
			File:         ptr(cfg.Output.File),
			StatusFile:   ptr(cfg.Output.StatusFile),
			ClipboardCmd: ptr(cfg.Output.Clipboard.Raw),
		},
		Debug: &fileDebug{AudioDump: ptr(cfg.Debug.EnableAudioDump)},
	}
}

func ptr[T any](v T) *T { return &v }
