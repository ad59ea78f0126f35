package i

import (
	"context"

	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
)

// EpisodeRepo defines the interface for episode persistence operations.
type EpisodeRepo interface {
	// Save inserts or updates an episode. Saving the same episode twice
	// replaces the earlier record.
	Save(ctx context.Context, rec sim.EpisodeRecord) error

	// ByID retrieves an episode by its ID.
	// Returns an error wrapping domain.ErrNotFound if there is no such episode.
	ByID(ctx context.Context, id uuid.UUID) (*sim.EpisodeRecord, error)

	// ByAlgorithm lists up to limit episodes of an algorithm label, newest first.
	ByAlgorithm(ctx context.Context, algorithm string, limit int) ([]sim.EpisodeRecord, error)
}
