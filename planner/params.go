package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/beka-birhanu/ohrace/world"
)

var ErrInvalidParams = errors.New("invalid planner params")

// Heuristic selects the distance estimate used by informed strategies.
// AutoHeuristic picks the tightest admissible one for the world's
// connectivity when a plan starts.
type Heuristic uint8

const (
	AutoHeuristic Heuristic = iota
	Manhattan
	Euclidean
	Octile
)

func (h Heuristic) String() string {
	switch h {
	case Manhattan:
		return "manhattan"
	case Euclidean:
		return "euclidean"
	case Octile:
		return "octile"
	default:
		return "auto"
	}
}

// resolve turns AutoHeuristic into Manhattan on 4-connected worlds and
// Octile on 8-connected ones. Explicit choices are kept.
func (h Heuristic) resolve(conn world.Connectivity) Heuristic {
	if h != AutoHeuristic {
		return h
	}
	if conn == world.Eight {
		return Octile
	}
	return Manhattan
}

func (h Heuristic) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Heuristic) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "auto":
		*h = AutoHeuristic
	case "manhattan":
		*h = Manhattan
	case "euclidean":
		*h = Euclidean
	case "octile", "diagonal":
		*h = Octile
	default:
		return fmt.Errorf("%w: unknown heuristic %q", ErrInvalidParams, text)
	}
	return nil
}

// distance returns the estimate between a and b, scaled by scale.
func (h Heuristic) distance(a, b world.Pos, scale float64) float64 {
	dr := float64(a.Row - b.Row)
	dc := float64(a.Col - b.Col)
	switch h {
	case Euclidean:
		return math.Hypot(dr, dc) * scale
	case Octile:
		lo, hi := math.Abs(dr), math.Abs(dc)
		if lo > hi {
			lo, hi = hi, lo
		}
		return (hi - lo + math.Sqrt2*lo) * scale
	default:
		return (math.Abs(dr) + math.Abs(dc)) * scale
	}
}

// Cooling is the temperature schedule of simulated annealing.
type Cooling uint8

const (
	Exponential Cooling = iota
	Linear
	Adaptive
)

func (c Cooling) String() string {
	switch c {
	case Linear:
		return "linear"
	case Adaptive:
		return "adaptive"
	default:
		return "exp"
	}
}

func (c Cooling) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Cooling) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "exp", "exponential", "geometric":
		*c = Exponential
	case "linear":
		*c = Linear
	case "adaptive":
		*c = Adaptive
	default:
		return fmt.Errorf("%w: unknown cooling schedule %q", ErrInvalidParams, text)
	}
	return nil
}

const (
	defaultHillIterations   = 4000
	defaultAnnealIterations = 6000
	minTemperature          = 1e-12
	oscillationMemory       = 20
	revisitLimit            = 12

	// Upper bounds keep a single plan from running unbounded.
	maxIterationsLimit  = 100000
	maxStagnationLimit  = 100000
	maxRestartsLimit    = 100
	maxRestartWalkLimit = 1000
	maxTemperatureLimit = 1e6
	maxWeightLimit      = 100
)

// Params tunes the strategies. Each algorithm only reads the fields it needs.
// A zero weight, bound, cooling rate or walk length falls back to its default;
// a zero temperature or restart count is taken literally.
type Params struct {
	Heuristic          Heuristic `json:"heuristic" yaml:"heuristic"`
	Weight             float64   `json:"weight" yaml:"weight"`                   // weighted A*, >= 1
	MaxIterations      int       `json:"max_iterations" yaml:"max_iterations"`   // local search bound
	InitialTemperature float64   `json:"initial_temperature" yaml:"initial_temperature"`
	CoolingRate        float64   `json:"cooling_rate" yaml:"cooling_rate"` // alpha in (0, 1]
	Cooling            Cooling   `json:"cooling" yaml:"cooling"`
	StagnationLimit    int       `json:"stagnation_limit" yaml:"stagnation_limit"`
	Restarts           int       `json:"restarts" yaml:"restarts"`
	RestartWalk        int       `json:"restart_walk" yaml:"restart_walk"` // longest random walk before a restart climbs
}

// DefaultParams returns the tuning used when a request leaves params empty.
func DefaultParams() Params {
	return Params{
		Heuristic:          AutoHeuristic,
		Weight:             2,
		InitialTemperature: 15,
		CoolingRate:        0.995,
		Cooling:            Exponential,
		StagnationLimit:    250,
		Restarts:           6,
		RestartWalk:        12,
	}
}

// ParseParams decodes JSON params over DefaultParams, so fields left out keep
// their defaults. Empty input yields the defaults.
func ParseParams(data []byte) (Params, error) {
	p := DefaultParams()
	if len(data) == 0 || string(data) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return p, p.Validate()
}

// withDefaults fills unset fields for algorithm a.
func (p Params) withDefaults(a Algorithm) Params {
	d := DefaultParams()
	if p.Weight == 0 {
		p.Weight = d.Weight
	}
	if p.MaxIterations == 0 {
		p.MaxIterations = defaultHillIterations
		if a == SimulatedAnnealing {
			p.MaxIterations = defaultAnnealIterations
		}
	}
	if p.CoolingRate == 0 {
		p.CoolingRate = d.CoolingRate
	}
	if p.StagnationLimit == 0 {
		p.StagnationLimit = d.StagnationLimit
	}
	if p.RestartWalk == 0 {
		p.RestartWalk = d.RestartWalk
	}
	return p
}

// Validate rejects values no strategy can work with.
func (p Params) Validate() error {
	switch {
	case p.Weight != 0 && p.Weight < 1:
		return fmt.Errorf("%w: weight must be at least 1, got %v", ErrInvalidParams, p.Weight)
	case p.MaxIterations < 0:
		return fmt.Errorf("%w: max iterations must not be negative", ErrInvalidParams)
	case p.InitialTemperature < 0:
		return fmt.Errorf("%w: initial temperature must not be negative", ErrInvalidParams)
	case p.CoolingRate < 0 || p.CoolingRate > 1:
		return fmt.Errorf("%w: cooling rate must be in (0, 1], got %v", ErrInvalidParams, p.CoolingRate)
	case p.StagnationLimit < 0 || p.Restarts < 0 || p.RestartWalk < 0:
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidParams)
	case p.Heuristic > Octile:
		return fmt.Errorf("%w: unknown heuristic %d", ErrInvalidParams, p.Heuristic)
	case p.Weight > maxWeightLimit:
		return fmt.Errorf("%w: weight must be at most %d, got %v", ErrInvalidParams, maxWeightLimit, p.Weight)
	case p.MaxIterations > maxIterationsLimit:
		return fmt.Errorf("%w: max iterations must be at most %d, got %d", ErrInvalidParams, maxIterationsLimit, p.MaxIterations)
	case p.InitialTemperature > maxTemperatureLimit:
		return fmt.Errorf("%w: initial temperature must be at most %g, got %v", ErrInvalidParams, maxTemperatureLimit, p.InitialTemperature)
	case p.StagnationLimit > maxStagnationLimit:
		return fmt.Errorf("%w: stagnation limit must be at most %d, got %d", ErrInvalidParams, maxStagnationLimit, p.StagnationLimit)
	case p.Restarts > maxRestartsLimit:
		return fmt.Errorf("%w: restarts must be at most %d, got %d", ErrInvalidParams, maxRestartsLimit, p.Restarts)
	case p.RestartWalk > maxRestartWalkLimit:
		return fmt.Errorf("%w: restart walk must be at most %d, got %d", ErrInvalidParams, maxRestartWalkLimit, p.RestartWalk)
	}
	return nil
}
