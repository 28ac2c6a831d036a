package link

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/benchlink/types"
)

// ErrorKind classifies transfer failures.
type ErrorKind int

const (
	// ChannelError covers open, write and read failures on the channel.
	ChannelError ErrorKind = iota
	// ShortRead indicates the response ended before the expected length.
	ShortRead
)

func (k ErrorKind) String() string {
	switch k {
	case ChannelError:
		return "channel error"
	case ShortRead:
		return "short read"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TransferError is the single failure value returned by Transfer.
type TransferError struct {
	Kind ErrorKind
	// Op is the step that failed: open, write header, settle, write payload, read.
	Op       string
	Expected int
	Got      int
	Err      error
}

func (e *TransferError) Error() string {
	if e.Kind == ShortRead {
		return fmt.Sprintf("link: short read: got %d of %d bytes", e.Got, e.Expected)
	}
	if e.Err != nil {
		return fmt.Sprintf("link: %s: %v", e.Op, e.Err)
	}
	return "link: " + e.Op
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// FailureKind maps the error onto the reporting taxonomy.
func (e *TransferError) FailureKind() types.FailureKind {
	if e.Kind == ShortRead {
		return types.FailureShortRead
	}
	return types.FailureChannel
}

// IsShortRead reports whether err is a short-read transfer failure.
func IsShortRead(err error) bool {
	var te *TransferError
	return errors.As(err, &te) && te.Kind == ShortRead
}

// IsChannelError reports whether err is a channel transfer failure.
func IsChannelError(err error) bool {
	var te *TransferError
	return errors.As(err, &te) && te.Kind == ChannelError
}

// ErrChannelClosed is returned by channel operations after Close.
var ErrChannelClosed = errors.New("channel closed")
