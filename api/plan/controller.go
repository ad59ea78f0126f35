package plan

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultLeaderboardLimit = 10

// Controller serves single path queries and the public race results.
type Controller struct {
	planner     i.PathPlanner
	repo        i.EpisodeRepo
	leaderboard i.Leaderboard
}

// NewController creates a plan controller. The leaderboard may be nil, in
// which case its route answers 503.
func NewController(p i.PathPlanner, r i.EpisodeRepo, l i.Leaderboard) (*Controller, error) {
	if p == nil || r == nil {
		return nil, errors.New("plan controller needs a planner and an episode repo")
	}
	return &Controller{planner: p, repo: r, leaderboard: l}, nil
}

// RegisterPublic registers public routes.
func (c *Controller) RegisterPublic(route *gin.RouterGroup) {
	route.GET("/algorithms", c.algorithms)
	route.POST("/plans", c.plan)
	route.GET("/episodes/:ID", c.episode)
	route.GET("/leaderboard/:algorithm", c.standings)
}

// RegisterProtected registers privileged routes.
func (c *Controller) RegisterProtected(route *gin.RouterGroup) {
}

func (c *Controller) algorithms(ctx *gin.Context) {
	var names []string
	for _, a := range planner.All() {
		names = append(names, a.String())
	}
	ctx.JSON(http.StatusOK, AlgorithmsResponse{Algorithms: names})
}

func (c *Controller) plan(ctx *gin.Context) {
	var request PlanRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	algorithm, err := planner.ParseAlgorithm(request.Algorithm)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params, err := planner.ParseParams(request.Params)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := dmn.PlanQuery{
		Layout:       request.Layout,
		Connectivity: world.Connectivity(request.Connectivity),
		Seed:         request.Seed,
		Start:        request.Start,
		Goal:         request.Goal,
		Algorithm:    algorithm,
		Params:       params,
	}
	if request.Campus != nil {
		query.Campus = *request.Campus
	}

	answer, err := c.planner.Plan(ctx.Request.Context(), query)
	if err != nil {
		ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, &PlanResponse{
		Algorithm:  answer.Algorithm.String(),
		Success:    answer.Success,
		Path:       answer.Path,
		Moves:      answer.Moves(),
		Cost:       answer.Cost,
		Expansions: answer.Expansions,
		RuntimeMS:  float64(answer.Runtime) / float64(time.Millisecond),
		Start:      answer.Start,
		Goal:       answer.Goal,
		World:      answer.World,
	})
}

func (c *Controller) episode(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid episode id"})
		return
	}

	rec, err := c.repo.ByID(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, rec)
}

func (c *Controller) standings(ctx *gin.Context) {
	if c.leaderboard == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard is disabled"})
		return
	}

	algorithm := ctx.Param("algorithm")
	if algorithm != sim.MixedAlgorithms {
		a, err := planner.ParseAlgorithm(algorithm)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		algorithm = a.String()
	}

	limit := int64(defaultLeaderboardLimit)
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	standings, err := c.leaderboard.Top(ctx.Request.Context(), algorithm, limit)
	if err != nil {
		ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"algorithm": algorithm, "standings": standings})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, dmn.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, dmn.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
