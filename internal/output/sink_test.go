package output

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gquinteros/listen/internal/failure"
	"github.com/gquinteros/listen/internal/transcribe"
)

var sample = transcribe.Result{Text: "hola <mundo> & más", Language: "es", Model: "base"}

func TestEmitPlainText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, NewSink(&stdout, &stderr, Options{}, nil).Emit(context.Background(), sample))

	require.Equal(t, "hola <mundo> & más\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestEmitJSONKeysOrderAndNoEscaping(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, NewSink(&stdout, &bytes.Buffer{}, Options{JSON: true}, nil).Emit(context.Background(), sample))

	want := "{\n" +
		"  \"transcription\": \"hola <mundo> & más\",\n" +
		"  \"language\": \"es\",\n" +
		"  \"model\": \"base\"\n" +
		"}\n"
	require.Equal(t, want, stdout.String())

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.Len(t, decoded, 3)
}

func TestEmitWritesFileVerbatimAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous much longer content"), 0o600))

	var stdout, stderr bytes.Buffer
	require.NoError(t, NewSink(&stdout, &stderr, Options{Path: path}, nil).Emit(context.Background(), sample))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, sample.Text, string(data))
	require.Equal(t, "Saved to: "+path+"\n", stderr.String())
}

func TestEmitQuietSuppressesSavedNotice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	var stdout, stderr bytes.Buffer
	require.NoError(t, NewSink(&stdout, &stderr, Options{Path: path, Quiet: true}, nil).Emit(context.Background(), sample))

	require.Empty(t, stderr.String())
	require.Equal(t, "hola <mundo> & más\n", stdout.String())
}

func TestEmitFileFailureKeepsConsoleOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.txt")
	var stdout bytes.Buffer
	err := NewSink(&stdout, &bytes.Buffer{}, Options{Path: path, JSON: true}, nil).Emit(context.Background(), sample)

	require.True(t, failure.Is(err, failure.KindFile))
	require.Contains(t, stdout.String(), "\"transcription\"")
}

func TestEmitCopiesToClipboardCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "capture.sh")
	target := filepath.Join(dir, "clipboard.txt")
	require.NoError(t, os.WriteFile(script, []byte("#!/usr/bin/env bash\ncat > \"$1\"\n"), 0o755))

	err := NewSink(&bytes.Buffer{}, &bytes.Buffer{}, Options{Clipboard: []string{script, target}}, nil).
		Emit(context.Background(), sample)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, sample.Text, string(data))
}

func TestEmitClipboardFailureIsNotFatal(t *testing.T) {
	err := NewSink(&bytes.Buffer{}, &bytes.Buffer{}, Options{Clipboard: []string{filepath.Join(t.TempDir(), "missing")}}, nil).
		Emit(context.Background(), sample)
	require.NoError(t, err)
}

func TestCopyToClipboardRejectsEmptyArgv(t *testing.T) {
	err := copyToClipboard(context.Background(), nil, "payload")
	require.ErrorIs(t, err, errNoClipboardCommand)
}

func TestCopyToClipboardPipesText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clip.txt")
	err := copyToClipboard(context.Background(), []string{"sh", "-c", "cat > " + out}, "hola mundo")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "hola mundo", string(data))
}

func TestCopyToClipboardIncludesStderr(t *testing.T) {
	err := copyToClipboard(context.Background(), []string{"sh", "-c", "echo no display >&2; exit 3"}, "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no display")
}
