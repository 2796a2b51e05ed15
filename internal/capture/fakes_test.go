package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gquinteros/listen/internal/audio"
	"github.com/gquinteros/listen/internal/indicator"
)

// fakeBackend emits fixed chunks on a timer, like a microphone would.
type fakeBackend struct {
	chunk    []float32
	chunks   int // <0 means unbounded
	interval time.Duration
	openErr  error
	startErr error

	mu     sync.Mutex
	stream *fakeStream
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(_ context.Context, _ audio.Format, onSamples audio.SampleFunc) (audio.Stream, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	s := &fakeStream{
		backend:   b,
		onSamples: onSamples,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	b.mu.Lock()
	b.stream = s
	b.mu.Unlock()
	return s, nil
}

func (b *fakeBackend) current() *fakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stream
}

type fakeStream struct {
	backend   *fakeBackend
	onSamples audio.SampleFunc

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	stopped        atomic.Bool
	lateCallbacks  atomic.Int32
	emittedSamples atomic.Int64
}

func (s *fakeStream) Device() audio.Device {
	return audio.Device{ID: "fake-mic", Description: "Fake Mic", Available: true}
}

func (s *fakeStream) Start() error {
	if s.backend.startErr != nil {
		return s.backend.startErr
	}
	s.started.Store(true)
	go s.loop()
	return nil
}

func (s *fakeStream) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.backend.interval)
	defer ticker.Stop()

	for i := 0; s.backend.chunks < 0 || i < s.backend.chunks; i++ {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
		if s.stopped.Load() {
			s.lateCallbacks.Add(1)
		}
		buf := make([]float32, len(s.backend.chunk))
		copy(buf, s.backend.chunk)
		s.onSamples(buf)
		s.emittedSamples.Add(int64(len(buf)))
	}
	<-s.stopCh
}

func (s *fakeStream) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.started.Load() {
			<-s.done
		}
		s.stopped.Store(true)
	})
	return nil
}

type fakeIndicator struct {
	recordings atomic.Int32
	levels     atomic.Int32
	hides      atomic.Int32

	mu     sync.Mutex
	banner indicator.Banner
}

func (f *fakeIndicator) ShowRecording(b indicator.Banner) {
	f.recordings.Add(1)
	f.mu.Lock()
	f.banner = b
	f.mu.Unlock()
}

func (f *fakeIndicator) Level(float32, time.Duration) { f.levels.Add(1) }
func (f *fakeIndicator) ShowProcessing()              {}
func (f *fakeIndicator) Hide()                        { f.hides.Add(1) }

func (f *fakeIndicator) lastBanner() indicator.Banner {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banner
}

// blockingReader never returns, like an idle terminal.
type blockingReader struct{ ch chan struct{} }

func newBlockingReader() *blockingReader { return &blockingReader{ch: make(chan struct{})} }

func (r *blockingReader) Read([]byte) (int, error) {
	<-r.ch
	return 0, context.Canceled
}
