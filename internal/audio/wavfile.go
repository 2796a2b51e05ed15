package audio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/gquinteros/listen/internal/failure"
)

const (
	wavFormatPCM = 1
	pcm16Scale   = 32768.0
)

// DecodeFile reads a 16-bit PCM WAV file into a normalized buffer at format.
func DecodeFile(path string, format Format) ([]float32, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.File("File not found: %s", path)
		}
		return nil, failure.File("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, failure.File("%s is a directory, not an audio file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, failure.File("open %s: %w", path, err)
	}
	defer f.Close()

	return Decode(f, path, format)
}

// Decode reads a WAV stream. name is only used in error guidance.
func Decode(r io.ReadSeeker, name string, format Format) ([]float32, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil || decoder.SampleRate == 0 {
		return nil, unsupportedContainer(name)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, unsupportedContainer(name)
	}

	if int(decoder.SampleRate) != format.SampleRate {
		return nil, failure.Audio(
			"Audio must be %dkHz, got %dHz. Use ffmpeg to convert:\n  ffmpeg -i %s -ar %d -ac %d output.wav",
			format.SampleRate/1000, decoder.SampleRate, name, format.SampleRate, format.Channels,
		)
	}
	if int(decoder.NumChans) != format.Channels {
		return nil, failure.Audio(
			"Audio must have %d channel(s), got %d. Use ffmpeg to convert:\n  ffmpeg -i %s -ar %d -ac %d output.wav",
			format.Channels, decoder.NumChans, name, format.SampleRate, format.Channels,
		)
	}
	if decoder.BitDepth != 16 {
		return nil, failure.Audio(
			"Audio must be 16-bit PCM, got %d-bit. Use ffmpeg to convert:\n  ffmpeg -i %s -ar %d -ac %d -sample_fmt s16 output.wav",
			decoder.BitDepth, name, format.SampleRate, format.Channels,
		)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, failure.Audio("read PCM data from %s: %w", name, err)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / pcm16Scale
	}
	return samples, nil
}

// WriteWAV encodes samples as 16-bit PCM WAV at format.
func WriteWAV(w io.WriteSeeker, samples []float32, format Format) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		clamped := math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(clamped * (pcm16Scale - 1)))
	}

	encoder := wav.NewEncoder(w, format.SampleRate, 16, format.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

func unsupportedContainer(name string) error {
	return failure.Audio(
		"File format not supported directly. Convert to WAV first:\n  ffmpeg -i %s -ar 16000 -ac 1 -f wav output.wav",
		name,
	)
}
