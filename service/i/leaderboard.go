package i

import (
	"context"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/sim"
)

// Leaderboard ranks successful episodes per algorithm.
type Leaderboard interface {
	// Submit offers an episode. Unsuccessful episodes are ignored.
	Submit(ctx context.Context, rec sim.EpisodeRecord) error

	// Top returns up to n best standings of an algorithm, best first.
	Top(ctx context.Context, algorithm string, n int64) ([]dmn.Standing, error)
}
