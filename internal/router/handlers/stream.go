package handlers

import (
	"context"
	"io"
)

// cancelOnClose releases the storage request context once fasthttp is done
// streaming the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	defer r.cancel()
	return r.ReadCloser.Close()
}
