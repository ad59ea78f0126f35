package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow episodes published by running batches",
	Long: `Follow the live stream published over Redis. By default every finished
episode is printed. With --episode the ticks of that episode are printed as
they are simulated.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("episode", "", "episode id whose ticks to follow")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	initRedis(ctx)
	defer closeAll()
	if redisClient == nil {
		return errors.New("watch needs REDIS_ADDR")
	}
	initPublisher()

	out := cmd.OutOrStdout()
	if raw, _ := cmd.Flags().GetString("episode"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("--episode: %w", err)
		}
		steps, err := publisher.SubscribeSteps(ctx, id)
		if err != nil {
			return err
		}
		for s := range steps {
			printStep(out, s)
		}
		return nil
	}

	episodes, err := publisher.SubscribeEpisodes(ctx)
	if err != nil {
		return err
	}
	for e := range episodes {
		fmt.Fprintf(out, "%s %-8s seed %-6d %-9s ticks %-4d expansions %-7d collisions %-3d %s\n",
			e.EpisodeID, e.Algorithm, e.Seed, e.Outcome, e.Ticks, e.Expansions, e.Collisions,
			e.Runtime.Round(time.Microsecond))
	}
	return nil
}

func printStep(out io.Writer, s sim.StepRecord) {
	fmt.Fprintf(out, "tick %d\n", s.Tick)
	for _, a := range s.Agents {
		fmt.Fprintf(out, "  agent %d %-8s %s %-9s points %d %s\n", a.AgentID, a.Algorithm, a.Pos, a.Status, a.Points, a.Reason)
	}
}
