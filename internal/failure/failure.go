// Package failure classifies terminal errors by the pipeline stage that raised them.
package failure

import (
	"errors"
	"fmt"
)

// Kind is a short machine-readable error class.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindAudio         Kind = "audio"
	KindTranscription Kind = "transcription"
	KindConfig        Kind = "config"
	KindFile          Kind = "file"
	KindSignal        Kind = "signal"
)

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches kind to err. An error that already carries a kind keeps it.
func Wrap(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the first kind found in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func Audio(format string, args ...any) error {
	return &Error{Kind: KindAudio, Err: fmt.Errorf(format, args...)}
}

func Transcription(format string, args ...any) error {
	return &Error{Kind: KindTranscription, Err: fmt.Errorf(format, args...)}
}

func Config(format string, args ...any) error {
	return &Error{Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

func File(format string, args ...any) error {
	return &Error{Kind: KindFile, Err: fmt.Errorf(format, args...)}
}

func Signal(format string, args ...any) error {
	return &Error{Kind: KindSignal, Err: fmt.Errorf(format, args...)}
}
