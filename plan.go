package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beka-birhanu/ohrace/config"
	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/logger"
	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/service"
	"github.com/beka-birhanu/ohrace/world"
	"github.com/spf13/cobra"
)

const pathSymbol = '*'

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a single path and draw it",
	Long: `Plan one path with one algorithm. The grid is read from --layout, a text
file using '.' empty, '#' wall, '=' bridge, 'A' angry, 'P' chair and 'O'
office; --start and --goal are then required. Without a layout a campus is
generated from --seed and the path runs from its start to the office.`,
	Example: `  ohrace plan --algorithm astar --seed 7
  ohrace plan --algorithm sa --layout maze.txt --start 0,0 --goal 9,9`,
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.String("algorithm", planner.AStar.String(), "planner to use")
	f.String("layout", "", "grid layout file")
	f.Int("connectivity", int(world.Four), "4 or 8 neighbors on a layout")
	f.Int64("seed", 0, "random seed")
	f.String("start", "", "start cell as row,col")
	f.String("goal", "", "goal cell as row,col")
	f.String("scenario", "", "YAML scenario whose world section shapes the campus")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()

	name, _ := f.GetString("algorithm")
	algorithm, err := planner.ParseAlgorithm(name)
	if err != nil {
		return err
	}
	query := dmn.PlanQuery{Algorithm: algorithm, Params: planner.DefaultParams()}
	query.Seed, _ = f.GetInt64("seed")

	if path, _ := f.GetString("layout"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading layout: %w", err)
		}
		query.Layout = strings.Split(string(data), "\n")
		conn, _ := f.GetInt("connectivity")
		query.Connectivity = world.Connectivity(conn)
	}
	if path, _ := f.GetString("scenario"); path != "" {
		scenario, err := config.LoadScenario(path)
		if err != nil {
			return err
		}
		query.Campus = scenario.World
	}
	for flag, dst := range map[string]**world.Pos{"start": &query.Start, "goal": &query.Goal} {
		raw, _ := f.GetString(flag)
		if raw == "" {
			continue
		}
		p, err := parsePos(raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
		*dst = &p
	}

	planLogger, err := logger.New("PLANNER", config.ColorMagenta, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	pp, err := service.NewPathPlanner(planLogger)
	if err != nil {
		return err
	}
	answer, err := pp.Plan(cmd.Context(), query)
	if err != nil {
		return err
	}

	printPlan(cmd.OutOrStdout(), answer)
	return nil
}

func printPlan(out io.Writer, a *dmn.PlanAnswer) {
	outcome := "found"
	if !a.Success {
		outcome = "not found"
	}
	fmt.Fprintf(out, "%s: path %s from %s to %s\n", a.Algorithm, outcome, a.Start, a.Goal)
	fmt.Fprintf(out, "moves %d  cost %.2f  expansions %d  runtime %s\n\n",
		a.Moves(), a.Cost, a.Expansions, a.Runtime.Round(time.Microsecond))
	fmt.Fprint(out, overlay(a.World, a.Path))
}

// overlay marks the path on a rendered world, keeping the endpoints' symbols.
func overlay(rendered string, path []world.Pos) string {
	lines := strings.Split(rendered, "\n")
	grid := make([][]byte, len(lines))
	for r, line := range lines {
		grid[r] = []byte(line)
	}
	for k, p := range path {
		if k == 0 || k == len(path)-1 {
			continue
		}
		col := 2 * p.Col
		if p.Row < len(grid) && col < len(grid[p.Row]) {
			grid[p.Row][col] = pathSymbol
		}
	}
	for r := range grid {
		lines[r] = string(grid[r])
	}
	return strings.Join(lines, "\n")
}

func parsePos(s string) (world.Pos, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return world.Pos{}, errors.New("want row,col")
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return world.Pos{}, fmt.Errorf("row: %w", err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return world.Pos{}, fmt.Errorf("col: %w", err)
	}
	return world.Pos{Row: row, Col: col}, nil
}
