package i

import (
	"context"

	dmn "github.com/beka-birhanu/ohrace/domain"
)

// PathPlanner answers single path queries.
type PathPlanner interface {
	Plan(ctx context.Context, q dmn.PlanQuery) (*dmn.PlanAnswer, error)
}
