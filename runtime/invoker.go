package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/benchlink/session"
	"github.com/pithecene-io/benchlink/types"
)

// Invoker runs the device model on one feature vector and returns the
// first output tensor.
type Invoker interface {
	Invoke(ctx context.Context, fv types.FeatureVector) ([]float32, error)
}

// Connector establishes a device session.
type Connector func(ctx context.Context, opts session.Options) (session.Session, error)

// DefaultConnector connects with session.Connect.
func DefaultConnector(ctx context.Context, opts session.Options) (session.Session, error) {
	c, err := session.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetupError is a failure before any sample is attempted. It ends the batch.
type SetupError struct {
	Kind types.FailureKind
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// ErrNoOutput is returned when the device replies without an output tensor.
var ErrNoOutput = errors.New("device returned no output tensor")

// SessionInvoker invokes the first model a session reports.
type SessionInvoker struct {
	sess  session.Session
	model string
}

// OpenSessionInvoker connects, discovers the model, and returns an invoker
// bound to it. Connect and discovery failures are *SetupError with kind
// connect_error or model_not_found.
func OpenSessionInvoker(ctx context.Context, connect Connector, opts session.Options) (*SessionInvoker, error) {
	if connect == nil {
		connect = DefaultConnector
	}
	sess, err := connect(ctx, opts)
	if err != nil {
		return nil, &SetupError{Kind: types.FailureConnect, Err: err}
	}
	model, err := session.FirstModel(ctx, sess)
	if err != nil {
		_ = sess.Close()
		kind := types.FailureConnect
		if errors.Is(err, session.ErrModelNotFound) {
			kind = types.FailureModelNotFound
		}
		return nil, &SetupError{Kind: kind, Err: err}
	}
	return NewSessionInvoker(sess, model), nil
}

// NewSessionInvoker binds an established session to model.
func NewSessionInvoker(sess session.Session, model string) *SessionInvoker {
	return &SessionInvoker{sess: sess, model: model}
}

// Model returns the bound model name.
func (i *SessionInvoker) Model() string {
	return i.model
}

// Invoke sends fv as a single input tensor.
func (i *SessionInvoker) Invoke(ctx context.Context, fv types.FeatureVector) ([]float32, error) {
	outputs, _, err := i.sess.Invoke(ctx, i.model, [][]float32{fv.Values()})
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 || len(outputs[0]) == 0 {
		return nil, ErrNoOutput
	}
	return outputs[0], nil
}

// Close ends the session.
func (i *SessionInvoker) Close() error {
	return i.sess.Close()
}

var _ Invoker = (*SessionInvoker)(nil)
