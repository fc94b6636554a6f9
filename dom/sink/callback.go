package sink

import (
	"context"

	"github.com/hazyhaar/creatorsforacause/dom/mutation"
)

// BatchFunc is called for each batch (in-process, zero serialisation).
type BatchFunc func(ctx context.Context, batch mutation.Batch) error

// Callback delivers batches via Go function calls. Node references on
// records survive, unlike the Stdout path.
type Callback struct {
	onBatch BatchFunc
}

// NewCallback creates a Callback sink. onBatch may be nil.
func NewCallback(onBatch BatchFunc) *Callback {
	return &Callback{onBatch: onBatch}
}

func (c *Callback) Send(ctx context.Context, batch mutation.Batch) error {
	if c.onBatch != nil {
		return c.onBatch(ctx, batch)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
