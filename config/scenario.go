package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/beka-birhanu/ohrace/planner"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/beka-birhanu/ohrace/world"
	"gopkg.in/yaml.v3"
)

const (
	defaultEpisodes = 30
	maxAgents       = 16
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Entrant is one algorithm taking part in a batch. Params left out of the
// file keep their defaults.
type Entrant struct {
	Algorithm planner.Algorithm `yaml:"algorithm"`
	Params    planner.Params    `yaml:"params"`
}

func (e *Entrant) UnmarshalYAML(value *yaml.Node) error {
	type plain Entrant
	raw := plain{Params: planner.DefaultParams()}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*e = Entrant(raw)
	return nil
}

// Scenario describes a batch: the campus to generate, who races on it and
// under which rules.
type Scenario struct {
	Name       string            `yaml:"name"`
	Seed       int64             `yaml:"seed"`
	Episodes   int               `yaml:"episodes"`
	Agents     int               `yaml:"agents"` // agents per episode
	Mixed      bool              `yaml:"mixed"`  // add a lineup cycling through every entrant
	World      world.BuildConfig `yaml:"world"`
	Rules      sim.Config        `yaml:"rules"`
	Algorithms []Entrant         `yaml:"algorithms"`
}

// DefaultScenario races every algorithm alone on the default campus.
func DefaultScenario() Scenario {
	s := Scenario{
		Name:     "default",
		Episodes: defaultEpisodes,
		Agents:   1,
		World:    world.DefaultBuildConfig(),
		Rules:    sim.DefaultConfig(),
	}
	for _, a := range planner.All() {
		s.Algorithms = append(s.Algorithms, Entrant{Algorithm: a, Params: planner.DefaultParams()})
	}
	return s
}

// LoadScenario reads a YAML scenario. Fields missing from the file keep the
// values of DefaultScenario.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (Scenario, error) {
	s := DefaultScenario()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func (s Scenario) Validate() error {
	if s.Episodes <= 0 {
		return fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalidScenario, s.Episodes)
	}
	if s.Agents <= 0 || s.Agents > maxAgents {
		return fmt.Errorf("%w: agents must be in 1..%d, got %d", ErrInvalidScenario, maxAgents, s.Agents)
	}
	if s.Rules.MaxTicks < 0 || s.Rules.ReplanAfter < 0 || s.Rules.StartPoints < 0 || s.Rules.AngryPenalty < 0 {
		return fmt.Errorf("%w: rules must not be negative", ErrInvalidScenario)
	}
	if len(s.Algorithms) == 0 {
		return fmt.Errorf("%w: no algorithms", ErrInvalidScenario)
	}
	if err := s.World.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	for _, e := range s.Algorithms {
		if !e.Algorithm.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidScenario, planner.ErrUnknownAlgorithm)
		}
		if err := e.Params.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidScenario, e.Algorithm, err)
		}
	}
	return nil
}

// Entrants returns the algorithms as agent specs; placement fills in starts and goals.
func (s Scenario) Entrants() []sim.AgentSpec {
	out := make([]sim.AgentSpec, 0, len(s.Algorithms))
	for _, e := range s.Algorithms {
		out = append(out, sim.AgentSpec{Algorithm: e.Algorithm, Params: e.Params})
	}
	return out
}
