// Package iox holds small cleanup helpers shared by every package that owns
// a port, file or client.
package iox

import "io"

// DiscardClose closes c when the close error cannot change the outcome,
// typically read-only files and response bodies:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc adapts c for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(session))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr runs fn and drops its error, for best-effort flushes.
func DiscardErr(fn func() error) { _ = fn() }

// CloseInto closes c and stores its error in *errp when *errp is still nil.
// Use with a named error result so write-side close failures surface:
//
//	defer iox.CloseInto(f, &err)
func CloseInto(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = cerr
	}
}
