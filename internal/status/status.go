// Package status publishes a JSON snapshot of the current invocation for external watchers.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Snapshot is the status file document.
type Snapshot struct {
	State          string    `json:"state"`
	SessionID      string    `json:"session_id,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Samples        int       `json:"samples"`
	StopReason     string    `json:"stop_reason,omitempty"`
	Language       string    `json:"language,omitempty"`
	Model          string    `json:"model,omitempty"`
	Error          string    `json:"error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// File atomically replaces a status document on every Update.
// A nil File or one with an empty path discards updates.
type File struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	current Snapshot
}

func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Update applies mutate to the last snapshot and writes the result.
func (f *File) Update(mutate func(*Snapshot)) error {
	if f == nil || f.path == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.current
	mutate(&next)
	next.UpdatedAt = f.now().UTC()
	if err := writeAtomic(f.path, next); err != nil {
		return err
	}
	f.current = next
	return nil
}

// Current returns the last written snapshot.
func (f *File) Current() Snapshot {
	if f == nil {
		return Snapshot{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Read decodes the status document at path.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read status file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode status file %s: %w", path, err)
	}
	return snap, nil
}

func writeAtomic(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create status temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write status temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close status temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}
