package main

import (
	"fmt"
	"math/rand"

	"github.com/beka-birhanu/ohrace/config"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/spf13/cobra"
)

var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "Generate a campus and print it",
	Example: `  ohrace world --seed 42
  ohrace world --scenario race.yaml --seed 3`,
	RunE: runWorld,
}

func init() {
	worldCmd.Flags().Int64("seed", 0, "random seed")
	worldCmd.Flags().String("scenario", "", "YAML scenario whose world section shapes the campus")
}

func runWorld(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetInt64("seed")

	cfg := world.DefaultBuildConfig()
	if path, _ := cmd.Flags().GetString("scenario"); path != "" {
		scenario, err := config.LoadScenario(path)
		if err != nil {
			return err
		}
		cfg = scenario.World
	}

	w, pl, err := world.Build(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return fmt.Errorf("building campus with seed %d: %w", seed, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, w)
	fmt.Fprintf(out, "\n%dx%d, %d-connected\n", w.Height(), w.Width(), w.Connectivity())
	fmt.Fprintf(out, "start %s  office %s  chair %s\n", pl.Start, pl.Office, pl.Chair)
	fmt.Fprintf(out, "bridge %s -> %s\n", pl.BridgeEntranceMain, pl.BridgeEntrancePAB)
	return nil
}
