// Package indicator renders recording and processing state on the terminal.
package indicator

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	clearScreen = "\x1b[2J\x1b[H"
	clearLine   = "\r\x1b[K"

	meterWidth = 10
	meterGain  = 200
)

// Banner describes which stop triggers are armed for this recording.
type Banner struct {
	PID              int
	KeyStop          bool
	InterruptMode    bool
	InterruptTimeout time.Duration
	VADEnabled       bool
	VADDuration      time.Duration
	Device           string
}

// Indicator is the capture and pipeline facing contract.
type Indicator interface {
	ShowRecording(Banner)
	Level(rms float32, elapsed time.Duration)
	ShowProcessing()
	Hide()
}

// Noop is the indicator used in quiet and JSON modes.
type Noop struct{}

func (Noop) ShowRecording(Banner)        {}
func (Noop) Level(float32, time.Duration) {}
func (Noop) ShowProcessing()              {}
func (Noop) Hide()                        {}

var (
	recordingDot = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	meterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Terminal writes the banner and, in visual mode, a live level meter.
type Terminal struct {
	out      io.Writer
	visual   bool
	clear    bool
	messages messages

	mu      sync.Mutex
	metered bool
}

// NewTerminal returns a terminal indicator writing to out.
// clear resets the screen before the banner.
func NewTerminal(out io.Writer, visual, clear bool) *Terminal {
	return &Terminal{
		out:      out,
		visual:   visual,
		clear:    clear,
		messages: messagesFromEnv(),
	}
}

func (t *Terminal) ShowRecording(b Banner) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	if t.clear {
		sb.WriteString(clearScreen)
	}
	stopHint := t.messages.recordingKey
	if !b.KeyStop {
		stopHint = t.messages.recording
	}
	fmt.Fprintf(&sb, "%s %s\n", recordingDot.Render("●"), stopHint)
	if b.InterruptMode {
		sb.WriteString(hintStyle.Render(fmt.Sprintf(t.messages.signalHint, b.PID)) + "\n")
		if b.InterruptTimeout > 0 {
			sb.WriteString(hintStyle.Render(fmt.Sprintf(t.messages.timeoutHint, b.InterruptTimeout.Seconds())) + "\n")
		}
	}
	if b.VADEnabled {
		sb.WriteString(hintStyle.Render(fmt.Sprintf(t.messages.silenceHint, b.VADDuration.Seconds())) + "\n")
	}
	_, _ = io.WriteString(t.out, sb.String())
}

// Level redraws the meter line. It is a no-op outside visual mode.
func (t *Terminal) Level(rms float32, elapsed time.Duration) {
	if !t.visual {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metered = true
	_, _ = fmt.Fprintf(t.out, "%s%s %s [%s] %.1fs",
		clearLine, recordingDot.Render("●"), t.messages.listening, meterStyle.Render(Meter(rms)), elapsed.Seconds())
}

func (t *Terminal) ShowProcessing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := "\n"
	if t.metered {
		prefix = clearLine
		t.metered = false
	}
	_, _ = fmt.Fprintf(t.out, "%s● %s\n", prefix, t.messages.processing)
}

func (t *Terminal) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.metered {
		_, _ = io.WriteString(t.out, clearLine)
		t.metered = false
	}
}

// Meter renders rms as a fixed-width bar of '=' cells.
func Meter(rms float32) string {
	n := min(max(int(rms*meterGain), 0), meterWidth)
	return strings.Repeat("=", n) + strings.Repeat(" ", meterWidth-n)
}
