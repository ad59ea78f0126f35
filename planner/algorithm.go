package planner

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Algorithm identifies one of the supported planning strategies.
type Algorithm uint8

const (
	BFS Algorithm = iota + 1
	DFS
	UCS
	Greedy
	AStar
	WeightedAStar
	HillClimbing
	SimulatedAnnealing
	RandomRestart
)

var algorithmNames = map[Algorithm]string{
	BFS:                "bfs",
	DFS:                "dfs",
	UCS:                "ucs",
	Greedy:             "greedy",
	AStar:              "astar",
	WeightedAStar:      "wastar",
	HillClimbing:       "hill",
	SimulatedAnnealing: "sa",
	RandomRestart:      "restart",
}

var algorithmAliases = map[string]Algorithm{
	"breadth-first":       BFS,
	"depth-first":         DFS,
	"uniform-cost":        UCS,
	"gbfs":                Greedy,
	"a*":                  AStar,
	"weighted-astar":      WeightedAStar,
	"wa*":                 WeightedAStar,
	"hc":                  HillClimbing,
	"hill-climbing":       HillClimbing,
	"simulated-annealing": SimulatedAnnealing,
	"shc":                 RandomRestart,
	"random-restart":      RandomRestart,
}

// All returns every algorithm in a stable order.
func All() []Algorithm {
	return []Algorithm{BFS, DFS, UCS, Greedy, AStar, WeightedAStar, HillClimbing, SimulatedAnnealing, RandomRestart}
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// Valid reports whether a is one of the known algorithms.
func (a Algorithm) Valid() bool {
	_, ok := algorithmNames[a]
	return ok
}

// Local reports whether a is a local search that may return a partial path.
func (a Algorithm) Local() bool {
	return a == HillClimbing || a == SimulatedAnnealing || a == RandomRestart
}

// ParseAlgorithm resolves a name or a common alias, ignoring case.
func ParseAlgorithm(s string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for a, name := range algorithmNames {
		if name == key {
			return a, nil
		}
	}
	if a, ok := algorithmAliases[key]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
