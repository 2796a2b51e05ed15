// Package ipc carries stop and status requests to the recording process over a unix socket.
package ipc

const (
	CommandStop   = "stop"
	CommandStatus = "status"
)

// Request is one newline-delimited JSON command.
type Request struct {
	Command string `json:"command"`
}

// Response reports the recording state back to the requester.
type Response struct {
	OK             bool    `json:"ok"`
	State          string  `json:"state,omitempty"`
	Message        string  `json:"message,omitempty"`
	Error          string  `json:"error,omitempty"`
	SessionID      string  `json:"session_id,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
	Samples        int     `json:"samples,omitempty"`
}
