package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/types"
)

// Config configures a Transferer.
type Config struct {
	// SettleDelay is waited between header and payload. Zero disables it.
	SettleDelay time.Duration
	// Timeout bounds the response read. Zero or negative uses DefaultTimeout.
	Timeout time.Duration
	// Logger receives per-exchange entries. Nil disables logging.
	Logger *log.Logger
	// Collector receives transfer counters. May be nil.
	Collector *metrics.Collector
}

// Transferer performs request/response exchanges, one channel per exchange.
// It never retries.
type Transferer struct {
	opener    Opener
	settle    time.Duration
	timeout   time.Duration
	logger    *log.Logger
	collector *metrics.Collector
}

// NewTransferer creates a Transferer over opener.
func NewTransferer(opener Opener, cfg Config) *Transferer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Transferer{
		opener:    opener,
		settle:    cfg.SettleDelay,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		collector: cfg.Collector,
	}
}

// Validate checks a request before any I/O happens.
// Known modes must carry exactly their fixed payload length; any other
// mode byte, 0 included, is passed through with whatever payload it has.
func Validate(req types.TransferRequest) error {
	if len(req.Payload) == 0 {
		return errors.New("link: empty payload")
	}
	if req.Mode.Known() && len(req.Payload) != req.Mode.PayloadLen() {
		return fmt.Errorf("link: %s payload is %d bytes, want %d",
			req.Mode, len(req.Payload), req.Mode.PayloadLen())
	}
	return nil
}

// Transfer runs one exchange and returns exactly len(req.Payload) bytes.
//
// Errors:
//   - plain error: the request is invalid, nothing was sent
//   - *TransferError with Kind=ChannelError: open, write or read failed
//   - *TransferError with Kind=ShortRead: fewer bytes than expected before the timeout
func (t *Transferer) Transfer(ctx context.Context, req types.TransferRequest) (*types.TransferResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.exchange(ctx, req)
	fields := map[string]any{
		"endpoint":    t.opener.String(),
		"mode":        req.Mode.String(),
		"payload":     len(req.Payload),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		var te *TransferError
		if errors.As(err, &te) {
			fields["failure_kind"] = string(te.FailureKind())
			fields["op"] = te.Op
			fields["received"] = te.Got
		}
		fields["error"] = err.Error()
		t.logger.Warn("transfer failed", fields)
		return nil, err
	}
	t.logger.Debug("transfer complete", fields)
	return resp, nil
}

func (t *Transferer) exchange(ctx context.Context, req types.TransferRequest) (*types.TransferResponse, error) {
	want := len(req.Payload)
	sent := 0

	ch, err := t.opener.Open(ctx)
	if err != nil {
		t.collector.IncChannelError()
		return nil, &TransferError{Kind: ChannelError, Op: "open", Expected: want, Err: err}
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil {
			t.logger.Warn("channel close failed", map[string]any{
				"endpoint": t.opener.String(),
				"error":    cerr.Error(),
			})
		}
	}()

	channelErr := func(op string, cause error) error {
		t.collector.IncChannelError()
		return &TransferError{Kind: ChannelError, Op: op, Expected: want, Err: cause}
	}

	header := EncodeHeader(req.Mode)
	n, err := ch.Write(header[:])
	sent += n
	if err == nil && n != HeaderSize {
		err = io.ErrShortWrite
	}
	if err != nil {
		return nil, channelErr("write header", err)
	}

	if t.settle > 0 {
		timer := time.NewTimer(t.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, channelErr("settle", ctx.Err())
		case <-timer.C:
		}
	}

	n, err = ch.Write(req.Payload)
	sent += n
	if err == nil && n != want {
		err = io.ErrShortWrite
	}
	if err != nil {
		return nil, channelErr("write payload", err)
	}

	buf := make([]byte, want)
	got, err := readExactly(ctx, ch, buf, t.timeout)
	if err != nil {
		return nil, channelErr("read", err)
	}
	if got != want {
		t.collector.AddShortRead(sent, got)
		return nil, &TransferError{Kind: ShortRead, Op: "read", Expected: want, Got: got}
	}

	t.collector.AddTransfer(sent, got)
	return &types.TransferResponse{Bytes: buf, Length: got}, nil
}

// readExactly fills buf until it is full, the stream ends, or timeout elapses.
// It returns the number of bytes read; running out of time or hitting EOF
// is not an error, the caller compares the count.
func readExactly(ctx context.Context, ch Channel, buf []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	n := 0
	for n < len(buf) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return n, nil
		}
		if err := ch.SetReadTimeout(remaining); err != nil {
			return n, err
		}
		m, err := ch.Read(buf[n:])
		n += m
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
