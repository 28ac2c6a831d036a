package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/types"
)

// scriptedChannel records writes and serves reads from fixed chunks.
type scriptedChannel struct {
	mu       sync.Mutex
	writes   [][]byte
	chunks   [][]byte
	readErr  error
	writeErr error
	closed   bool
	timeouts []time.Duration
}

func (c *scriptedChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *scriptedChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, c.readErr
	}
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *scriptedChannel) SetReadTimeout(t time.Duration) error {
	c.mu.Lock()
	c.timeouts = append(c.timeouts, t)
	c.mu.Unlock()
	return nil
}

func (c *scriptedChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type scriptedOpener struct {
	ch  *scriptedChannel
	err error
}

func (o *scriptedOpener) Open(context.Context) (Channel, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.ch, nil
}

func (o *scriptedOpener) String() string { return "scripted" }

func grayPayload() []byte {
	p := make([]byte, types.ModeGrayOtsu.PayloadLen())
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

func testConfig() Config {
	return Config{SettleDelay: 0, Timeout: 50 * time.Millisecond}
}

func TestEncodeHeader(t *testing.T) {
	for _, m := range types.KnownModes {
		h := EncodeHeader(m)
		assert.Equal(t, [HeaderSize]byte{byte(m), 0}, h)
	}
}

func TestTransfer_WritesHeaderThenPayloadInOneWrite(t *testing.T) {
	payload := grayPayload()
	ch := &scriptedChannel{chunks: [][]byte{payload[:1000], payload[1000:]}}
	tr := NewTransferer(&scriptedOpener{ch: ch}, testConfig())

	resp, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeErode, Payload: payload})
	require.NoError(t, err)

	require.Len(t, ch.writes, 2)
	assert.Equal(t, []byte{4, 0}, ch.writes[0])
	assert.Equal(t, payload, ch.writes[1])
	assert.Equal(t, len(payload), resp.Length)
	assert.Equal(t, payload, resp.Bytes)
	assert.True(t, ch.closed)
	assert.NotEmpty(t, ch.timeouts)
}

func TestTransfer_UnknownModesAnyLength(t *testing.T) {
	for _, mode := range []types.Mode{0, 9, 255} {
		t.Run(mode.String(), func(t *testing.T) {
			payload := []byte{1, 2, 3, 4, 5}
			ch := &scriptedChannel{chunks: [][]byte{payload}}
			tr := NewTransferer(&scriptedOpener{ch: ch}, testConfig())

			resp, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: mode, Payload: payload})
			require.NoError(t, err)
			assert.Equal(t, []byte{byte(mode), 0}, ch.writes[0])
			assert.Equal(t, payload, resp.Bytes)
		})
	}
}

func TestTransfer_ShortRead(t *testing.T) {
	payload := grayPayload()
	ch := &scriptedChannel{chunks: [][]byte{payload[:16000]}}
	c := metrics.NewCollector("transform", "strict", "fs", "run-1")
	cfg := testConfig()
	cfg.Collector = c
	tr := NewTransferer(&scriptedOpener{ch: ch}, cfg)

	resp, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: payload})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, IsShortRead(err))
	assert.False(t, IsChannelError(err))

	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 16384, te.Expected)
	assert.Equal(t, 16000, te.Got)
	assert.Equal(t, types.FailureShortRead, te.FailureKind())
	assert.True(t, ch.closed)
	assert.EqualValues(t, 1, c.Snapshot().ShortReads)
}

func TestTransfer_OpenFailure(t *testing.T) {
	cause := errors.New("no such device")
	tr := NewTransferer(&scriptedOpener{err: cause}, testConfig())

	_, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: grayPayload()})
	require.Error(t, err)
	assert.True(t, IsChannelError(err))
	assert.ErrorIs(t, err, cause)
}

func TestTransfer_WriteFailureClosesChannel(t *testing.T) {
	cause := errors.New("broken pipe")
	ch := &scriptedChannel{writeErr: cause}
	tr := NewTransferer(&scriptedOpener{ch: ch}, testConfig())

	_, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: grayPayload()})
	require.Error(t, err)
	assert.True(t, IsChannelError(err))
	assert.ErrorIs(t, err, cause)
	assert.True(t, ch.closed)
}

func TestTransfer_ReadFailure(t *testing.T) {
	cause := errors.New("framing error")
	ch := &scriptedChannel{readErr: cause}
	tr := NewTransferer(&scriptedOpener{ch: ch}, testConfig())

	_, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeDilate, Payload: grayPayload()})
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ChannelError, te.Kind)
	assert.Equal(t, "read", te.Op)
	assert.True(t, ch.closed)
}

func TestTransfer_InvalidRequest(t *testing.T) {
	ch := &scriptedChannel{}
	tr := NewTransferer(&scriptedOpener{ch: ch}, testConfig())

	tests := []struct {
		name string
		req  types.TransferRequest
	}{
		{"empty payload", types.TransferRequest{Mode: types.ModeGrayOtsu}},
		{"color size mismatch", types.TransferRequest{Mode: types.ModeColorOtsu, Payload: grayPayload()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Transfer(t.Context(), tt.req)
			require.Error(t, err)
			var te *TransferError
			assert.False(t, errors.As(err, &te))
		})
	}
	assert.Empty(t, ch.writes)
}

func TestTransfer_SettleDelayCanceled(t *testing.T) {
	ch := &scriptedChannel{}
	cfg := testConfig()
	cfg.SettleDelay = time.Hour
	tr := NewTransferer(&scriptedOpener{ch: ch}, cfg)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Transfer(ctx, types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: grayPayload()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, ch.closed)
	require.Len(t, ch.writes, 1, "payload must not be sent after cancellation")
}

func TestTransfer_LoopbackRoundTrip(t *testing.T) {
	dev := NewDevice()
	tr := NewTransferer(NewLoopbackOpener(dev), testConfig())

	payload := grayPayload()
	for range 3 {
		resp, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: payload})
		require.NoError(t, err)
		assert.Equal(t, len(payload), resp.Length)
		assert.Equal(t, Threshold(payload), resp.Bytes)
	}

	stats := dev.Stats()
	assert.Equal(t, 3, stats.Opens, "channel reopened per exchange")
	assert.Equal(t, 3, stats.Closes, "channel closed after each exchange")
	assert.Equal(t, []types.Mode{1, 1, 1}, stats.Handled)
}

func TestTransfer_LoopbackColor(t *testing.T) {
	dev := NewDevice()
	tr := NewTransferer(NewLoopbackOpener(dev), testConfig())

	payload := bytes.Repeat(grayPayload(), 3)
	resp, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeColorOtsu, Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, 49152, resp.Length)
	assert.Equal(t, Process(types.ModeColorOtsu, payload), resp.Bytes)
}

func TestTransfer_LoopbackTruncatedResponse(t *testing.T) {
	dev := NewDevice()
	dev.SetFaults(Faults{ResponseLimit: 16000})
	tr := NewTransferer(NewLoopbackOpener(dev), testConfig())

	_, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: grayPayload()})
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ShortRead, te.Kind)
	assert.Equal(t, 16000, te.Got)
	assert.Equal(t, 1, dev.Stats().Closes)
}

func TestTransfer_LoopbackSilentTimesOut(t *testing.T) {
	dev := NewDevice()
	dev.SetFaults(Faults{Silent: true})
	tr := NewTransferer(NewLoopbackOpener(dev), Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: grayPayload()})
	assert.True(t, IsShortRead(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTransfer_LoopbackUnknownModeGetsNoResponse(t *testing.T) {
	tr := NewTransferer(NewLoopbackOpener(NewDevice()), Config{Timeout: 20 * time.Millisecond})

	payload := bytes.Repeat([]byte{7}, 64)
	_, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.Mode(9), Payload: payload})
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ShortRead, te.Kind)
	assert.Zero(t, te.Got)
}

func TestTransfer_LoopbackOpenRefused(t *testing.T) {
	dev := NewDevice()
	dev.SetFaults(Faults{OpenErr: errors.New("busy")})
	tr := NewTransferer(NewLoopbackOpener(dev), testConfig())

	_, err := tr.Transfer(t.Context(), types.TransferRequest{Mode: types.ModeGrayOtsu, Payload: grayPayload()})
	assert.True(t, IsChannelError(err))
	assert.Zero(t, dev.Stats().Opens)
}

func TestNewOpener(t *testing.T) {
	_, ok := NewOpener(LoopbackPort, 0).(*LoopbackOpener)
	assert.True(t, ok)

	o, ok := NewOpener("/dev/ttyACM0", 0).(*SerialOpener)
	require.True(t, ok)
	assert.Equal(t, DefaultBaudRate, o.BaudRate)
	assert.Equal(t, "/dev/ttyACM0@115200", o.String())
}
