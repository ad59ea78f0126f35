package i

import (
	"context"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/google/uuid"
)

// Batcher runs a batch to completion.
type Batcher interface {
	Run(ctx context.Context, req dmn.BatchRequest) (*dmn.BatchSummary, error)
}

// RunManager runs batches in the background and reports on them.
type RunManager interface {
	// Submit validates and starts a batch, returning its run ID.
	Submit(owner string, req dmn.BatchRequest) (uuid.UUID, error)

	// Info returns a snapshot of a run.
	Info(id uuid.UUID) (*dmn.RunInfo, error)

	// StopAll cancels every unfinished run.
	StopAll()
}
