package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/benchlink/iox"
)

// fakeRuntime answers session requests the way the device runtime does.
type fakeRuntime struct {
	mu       sync.Mutex
	models   []string
	invoke   func(model string, inputs [][]float32) ([][]float32, string)
	stall    bool
	requests []string
}

func (f *fakeRuntime) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeRuntime) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := NewFrameDecoder(conn)
	for {
		var req Request
		if err := dec.ReadMessage(&req); err != nil {
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req.Type)
		stall := f.stall
		f.mu.Unlock()
		if stall {
			continue
		}

		var reply Reply
		switch req.Type {
		case typeDiscover:
			reply = Reply{Type: typeModels, Models: f.models}
		case typeInvoke:
			out, msg := f.invoke(req.Model, req.Inputs)
			if msg != "" {
				reply = Reply{Type: typeError, Message: msg}
			} else {
				reply = Reply{Type: typeOutputs, Outputs: out, Meta: Metadata{DurationMs: 1.5, Device: "fake"}}
			}
		case typeBye:
			return
		default:
			reply = Reply{Type: typeError, Message: "unknown request " + req.Type}
		}
		if err := WriteMessage(conn, &reply); err != nil {
			return
		}
	}
}

func newPipeClient(t *testing.T, rt *fakeRuntime, timeout time.Duration) *Client {
	t.Helper()
	host, dev := net.Pipe()
	go rt.serve(dev)
	c := NewClient(host, timeout)
	t.Cleanup(iox.CloseFunc(c))
	return c
}

func echoArgmax(_ string, inputs [][]float32) ([][]float32, string) {
	out := make([]float32, 10)
	out[int(inputs[0][0])%10] = 1
	return [][]float32{out}, ""
}

func TestClient_DiscoverAndInvoke(t *testing.T) {
	rt := &fakeRuntime{models: []string{"network", "other"}, invoke: echoArgmax}
	c := newPipeClient(t, rt, time.Second)

	model, err := FirstModel(t.Context(), c)
	require.NoError(t, err)
	assert.Equal(t, "network", model)

	out, meta, err := c.Invoke(t.Context(), model, [][]float32{{3, 0, 0}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, float32(1), out[0][3])
	assert.Equal(t, "fake", meta.Device)

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool {
		s := rt.seen()
		return len(s) == 3 && s[2] == typeBye
	}, time.Second, 5*time.Millisecond)
}

func TestFirstModel_NoneDeployed(t *testing.T) {
	c := newPipeClient(t, &fakeRuntime{}, time.Second)
	_, err := FirstModel(t.Context(), c)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestClient_RemoteError(t *testing.T) {
	rt := &fakeRuntime{models: []string{"network"}, invoke: func(string, [][]float32) ([][]float32, string) {
		return nil, "tensor shape mismatch"
	}}
	c := newPipeClient(t, rt, time.Second)

	_, _, err := c.Invoke(t.Context(), "network", [][]float32{{1}})
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "tensor shape mismatch", re.Message)

	// A remote error leaves the session usable.
	_, err = c.Discover(t.Context())
	assert.NoError(t, err)
}

func TestClient_Timeout(t *testing.T) {
	rt := &fakeRuntime{stall: true}
	c := newPipeClient(t, rt, 30*time.Millisecond)

	_, err := c.Discover(t.Context())
	require.Error(t, err)
	var ne net.Error
	assert.True(t, errors.As(err, &ne) && ne.Timeout(), "got %v", err)

	_, err = c.Discover(t.Context())
	assert.Error(t, err, "timed-out session is unusable")
}

func TestClient_ContextCanceled(t *testing.T) {
	rt := &fakeRuntime{stall: true}
	c := newPipeClient(t, rt, time.Minute)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Closed(t *testing.T) {
	c := newPipeClient(t, &fakeRuntime{}, time.Second)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err := c.Discover(t.Context())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_InvokeWithoutModel(t *testing.T) {
	c := newPipeClient(t, &fakeRuntime{}, time.Second)
	_, _, err := c.Invoke(t.Context(), "", nil)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestConnect_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(iox.CloseFunc(ln))

	rt := &fakeRuntime{models: []string{"network"}}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		rt.serve(conn)
	}()

	c, err := Connect(t.Context(), Options{Transport: TransportTCP, Address: ln.Addr().String()})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	models, err := c.Discover(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"network"}, models)
}

func TestConnect_Failures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Connect(t.Context(), Options{Transport: TransportTCP, Address: addr})
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TransportTCP, ce.Transport)

	_, err = Connect(t.Context(), Options{Transport: "carrier-pigeon", Address: "x"})
	assert.ErrorAs(t, err, &ce)
}

// stubPort mimics a serial port: reads time out as (0, nil).
type stubPort struct {
	data     []byte
	timeouts []time.Duration
}

func (p *stubPort) Read(b []byte) (int, error) {
	if len(p.data) == 0 {
		return 0, nil
	}
	n := copy(b, p.data)
	p.data = p.data[n:]
	return n, nil
}

func (p *stubPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *stubPort) Close() error                { return nil }
func (p *stubPort) SetReadTimeout(t time.Duration) error {
	p.timeouts = append(p.timeouts, t)
	return nil
}

func TestSerialConn_TimeoutBecomesError(t *testing.T) {
	frame, err := EncodeFrame(&Reply{Type: typeModels, Models: []string{"network"}})
	require.NoError(t, err)
	port := &stubPort{data: frame[:len(frame)-1]}
	conn := newSerialConn(port)
	require.NoError(t, conn.SetDeadline(time.Now().Add(time.Second)))

	var r Reply
	err = NewFrameDecoder(conn).ReadMessage(&r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.NotEmpty(t, port.timeouts)
	for _, d := range port.timeouts {
		assert.Positive(t, d)
	}
}

func TestSerialConn_PastDeadline(t *testing.T) {
	conn := newSerialConn(&stubPort{data: []byte{1}})
	require.NoError(t, conn.SetDeadline(time.Now().Add(-time.Second)))
	_, err := io.ReadFull(conn, make([]byte, 1))
	assert.ErrorIs(t, err, ErrReadTimeout)
}
