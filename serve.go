package main

import (
	"context"
	"fmt"
	"os"

	"github.com/beka-birhanu/ohrace/api"
	api_i "github.com/beka-birhanu/ohrace/api/i"
	"github.com/beka-birhanu/ohrace/api/identity"
	planapi "github.com/beka-birhanu/ohrace/api/plan"
	runapi "github.com/beka-birhanu/ohrace/api/run"
	"github.com/beka-birhanu/ohrace/config"
	"github.com/beka-birhanu/ohrace/infrastruture/token"
	"github.com/beka-birhanu/ohrace/logger"
	"github.com/beka-birhanu/ohrace/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const maxActiveRuns = 4

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planning and batch API over HTTP",
	Long: `Serve the HTTP API. Path queries, stored episodes and the leaderboard
are public. Submitting and following batches requires a bearer token signed
with JWT_SECRET (see the token command).`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	gin.SetMode(config.Envs.GinMode)

	initEpisodeRepo(ctx)
	initRedis(ctx)
	defer closeAll()
	initLeaderboard()
	initPublisher()
	initTelemetry()
	initBatchRunner(nil)

	runLogger, err := logger.New("RUN-MANAGER", config.ColorBlue, os.Stdout)
	if err != nil {
		return fmt.Errorf("creating run manager logger: %w", err)
	}
	runManager, err := service.NewRunManager(&service.RunManagerConfig{
		Batcher:   batchRunner,
		MaxActive: maxActiveRuns,
		Logger:    runLogger,
	})
	if err != nil {
		return fmt.Errorf("creating run manager: %w", err)
	}
	defer runManager.StopAll()
	appLogger.Info("Run manager initialized")

	planLogger, err := logger.New("PLANNER", config.ColorMagenta, os.Stdout)
	if err != nil {
		return fmt.Errorf("creating planner logger: %w", err)
	}
	pathPlanner, err := service.NewPathPlanner(planLogger)
	if err != nil {
		return fmt.Errorf("creating path planner: %w", err)
	}

	planController, err := planapi.NewController(pathPlanner, episodeRepo, leaderboard)
	if err != nil {
		return err
	}
	runController, err := runapi.NewController(runManager)
	if err != nil {
		return err
	}

	tokenizer := token.NewJwtService(config.MustGetEnv("JWT_SECRET"), config.Envs.JWTIssuer)
	router := api.NewRouter(api.Config{
		Addr:                    fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.RESTPort),
		BaseURL:                 "/api",
		Controllers:             []api_i.Controller{planController, runController},
		AuthorizationMiddleware: identity.Authoriz(tokenizer),
	})
	appLogger.Info(fmt.Sprintf("Serving on %s:%v", config.Envs.HostIP, config.Envs.RESTPort))

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("serving HTTP: %w", err)
	}
	appLogger.Info("Server stopped")
	reportTelemetry(context.Background())
	return nil
}
