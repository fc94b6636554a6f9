// Package sink defines output backends for observed mutation batches.
package sink

import (
	"context"

	"github.com/hazyhaar/creatorsforacause/dom/mutation"
)

// Sink is the output interface. Implementations deliver batches to
// different backends (stdout, in-process callback, fan-out).
type Sink interface {
	Send(ctx context.Context, batch mutation.Batch) error
	Close() error
}
