package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveTest(t *testing.T, socketPath string, handler Handler) (cancel func(), done <-chan error) {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancelFn := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- Serve(ctx, listener, handler) }()
	return cancelFn, ch
}

func TestSendStopRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	cancel, done := serveTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		require.Equal(t, CommandStop, req.Command)
		return Response{OK: true, State: "recording", Message: "stop requested", SessionID: "abc", Samples: 1600}
	}))

	resp, err := Send(context.Background(), socketPath, Request{Command: CommandStop}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "recording", resp.State)
	require.Equal(t, "stop requested", resp.Message)
	require.Equal(t, "abc", resp.SessionID)
	require.Equal(t, 1600, resp.Samples)

	cancel()
	require.NoError(t, <-done)
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestSendWithoutListenerIsNotRunning(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), SocketName), Request{Command: CommandStop}, 50*time.Millisecond)
	require.Error(t, err)
	require.True(t, IsNotRunning(err))
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	cancel, done := serveTest(t, socketPath, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-done)
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	cancel, done := serveTest(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command == CommandStatus {
			return Response{OK: true, State: "recording"}
		}
		return Response{OK: false, Error: "bad"}
	}))

	alive, err := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-done)

	alive, err = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}
