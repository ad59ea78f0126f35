package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/beka-birhanu/ohrace/config"
	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/infrastruture/csvsink"
	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/service"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a batch of seeded episodes and print per lineup statistics",
	Long: `Run a batch of seeded episodes. Every algorithm races alone on the same
campuses (episode k uses seed+k), optionally followed by a mixed lineup.

The batch comes from --scenario when given, otherwise from the default
scenario. Flags that are set explicitly override the scenario.`,
	Example: `  ohrace batch --episodes 50 --algorithms astar,ucs,greedy
  ohrace batch --scenario race.yaml --out results/ --json`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.String("scenario", "", "YAML scenario file")
	f.String("name", "", "batch name")
	f.Int64("seed", 0, "base seed, episode k uses seed+k")
	f.Int("episodes", 0, "episodes per lineup")
	f.Int("agents", 0, "agents per episode")
	f.StringSlice("algorithms", nil, "algorithms to race (default all)")
	f.Bool("mixed", false, "add a lineup cycling through every algorithm")
	f.String("out", "", "directory for CSV step and episode logs")
	f.Bool("json", false, "print the summary as JSON")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	scenario, err := scenarioFromFlags(cmd)
	if err != nil {
		return err
	}

	var recorders service.RecorderFactory
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		sink, err := csvsink.New(out)
		if err != nil {
			return fmt.Errorf("opening CSV output: %w", err)
		}
		defer func() {
			if err := sink.Close(); err != nil {
				appLogger.Warning(fmt.Sprintf("Closing CSV output: %v", err))
			}
		}()
		recorders = func(id uuid.UUID, label string, index int) (sim.Recorder, error) {
			return sink.Episode(id, label, index)
		}
	}

	initEpisodeRepo(ctx)
	initRedis(ctx)
	defer closeAll()
	initLeaderboard()
	initPublisher()
	initTelemetry()
	initBatchRunner(recorders)

	summary, err := batchRunner.Run(ctx, batchRequest(scenario))
	if err != nil {
		return fmt.Errorf("batch %q: %w", scenario.Name, err)
	}
	reportTelemetry(ctx)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		summary.Episodes = nil
		return enc.Encode(summary)
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

func scenarioFromFlags(cmd *cobra.Command) (config.Scenario, error) {
	f := cmd.Flags()

	scenario := config.DefaultScenario()
	if path, _ := f.GetString("scenario"); path != "" {
		var err error
		if scenario, err = config.LoadScenario(path); err != nil {
			return config.Scenario{}, err
		}
	}

	if f.Changed("name") {
		scenario.Name, _ = f.GetString("name")
	}
	if f.Changed("seed") {
		scenario.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("episodes") {
		scenario.Episodes, _ = f.GetInt("episodes")
	}
	if f.Changed("agents") {
		scenario.Agents, _ = f.GetInt("agents")
	}
	if f.Changed("mixed") {
		scenario.Mixed, _ = f.GetBool("mixed")
	}
	if f.Changed("algorithms") {
		names, _ := f.GetStringSlice("algorithms")
		scenario.Algorithms = nil
		for _, name := range names {
			a, err := planner.ParseAlgorithm(name)
			if err != nil {
				return config.Scenario{}, err
			}
			scenario.Algorithms = append(scenario.Algorithms, config.Entrant{Algorithm: a, Params: planner.DefaultParams()})
		}
	}
	return scenario, scenario.Validate()
}

func batchRequest(s config.Scenario) dmn.BatchRequest {
	return dmn.BatchRequest{
		Name:     s.Name,
		Seed:     s.Seed,
		Episodes: s.Episodes,
		Agents:   s.Agents,
		Mixed:    s.Mixed,
		World:    s.World,
		Rules:    s.Rules,
		Entrants: s.Entrants(),
	}
}

func printSummary(out io.Writer, s *dmn.BatchSummary) {
	fmt.Fprintf(out, "batch %q seed %d finished in %s\n\n", s.Name, s.Seed, s.Elapsed.Round(time.Millisecond))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINEUP\tEPISODES\tSUCCESS\tFAIL\tTIMEOUT\tRATE\tTICKS\tEXPANSIONS\tCOLLISIONS\tPATH\tPOINTS\tRUNTIME")
	for _, l := range s.Lineups {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.2f\t%.1f\t%.1f\t%.2f\t%.1f\t%.1f\t%s\n",
			l.Algorithm, l.Episodes, l.Successes, l.Failures, l.Timeouts, l.SuccessRate,
			l.MeanTicks, l.MeanExpansions, l.MeanCollisions, l.MeanPathLength, l.MeanPoints,
			l.MeanRuntime.Round(time.Microsecond))
	}
	_ = w.Flush()
}
