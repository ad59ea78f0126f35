package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/beka-birhanu/ohrace/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ohrace",
	Short: "Multi-agent path planning race on a generated campus",
	Long: `ohrace races grid search planners (bfs, dfs, ucs, greedy, astar,
wastar, hill, sa, restart) against each other. Agents plan from their start
to the office and move in lock step while the simulation resolves their
collisions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", config.Envs.DBDriver, "episode store: memory, sqlite or mongo")
	rootCmd.PersistentFlags().IntVar(&workersCount, "workers", config.Envs.Workers, "episodes simulated in parallel")

	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(worldCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(watchCmd)
}
