package run

import (
	"errors"
	"net/http"

	"github.com/beka-birhanu/ohrace/api/identity"
	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/service"
	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Controller lets authenticated users submit batches and follow them.
type Controller struct {
	runs i.RunManager
}

func NewController(runs i.RunManager) (*Controller, error) {
	if runs == nil {
		return nil, errors.New("run controller needs a run manager")
	}
	return &Controller{runs: runs}, nil
}

// RegisterPublic registers public routes.
func (c *Controller) RegisterPublic(route *gin.RouterGroup) {
}

// RegisterProtected registers privileged routes.
func (c *Controller) RegisterProtected(route *gin.RouterGroup) {
	runs := route.Group("/runs")
	{
		runs.POST("", c.submit)
		runs.GET("/:ID", c.info)
	}
}

func (c *Controller) submit(ctx *gin.Context) {
	var request RunRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := toBatchRequest(request)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := c.runs.Submit(identity.Subject(ctx), req)
	if err != nil {
		ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusAccepted, SubmitResponse{ID: id.String()})
}

func (c *Controller) info(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	info, err := c.runs.Info(id)
	if err != nil {
		ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	// Other users' runs are reported as missing.
	if info.Owner != identity.Subject(ctx) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": dmn.ErrNotFound.Error()})
		return
	}

	out := *info
	if out.Summary != nil && ctx.Query("episodes") != "true" {
		summary := *out.Summary
		summary.Episodes = nil
		out.Summary = &summary
	}
	ctx.JSON(http.StatusOK, out)
}

func toBatchRequest(r RunRequest) (dmn.BatchRequest, error) {
	req := dmn.BatchRequest{
		Name:     r.Name,
		Seed:     r.Seed,
		Episodes: r.Episodes,
		Agents:   r.Agents,
		Mixed:    r.Mixed,
		Rules:    sim.DefaultConfig(),
	}
	if req.Agents == 0 {
		req.Agents = 1
	}
	if r.World != nil {
		req.World = *r.World
	}
	if r.Rules != nil {
		req.Rules = *r.Rules
	}

	for _, e := range r.Algorithms {
		a, err := planner.ParseAlgorithm(e.Algorithm)
		if err != nil {
			return dmn.BatchRequest{}, err
		}
		params, err := planner.ParseParams(e.Params)
		if err != nil {
			return dmn.BatchRequest{}, err
		}
		req.Entrants = append(req.Entrants, sim.AgentSpec{Algorithm: a, Params: params})
	}
	return req, nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, dmn.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, dmn.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTooManyRuns):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
