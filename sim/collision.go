package sim

import (
	"fmt"
	"strings"

	"github.com/beka-birhanu/ohrace/world"
)

// TieBreak decides which agent wins a contested cell.
type TieBreak uint8

const (
	LowestIDWins TieBreak = iota
	HighestIDWins
)

func (t TieBreak) String() string {
	if t == HighestIDWins {
		return "highest"
	}
	return "lowest"
}

func (t *TieBreak) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "lowest", "lowest_id":
		*t = LowestIDWins
	case "highest", "highest_id":
		*t = HighestIDWins
	default:
		return fmt.Errorf("unknown tie break %q", text)
	}
	return nil
}

func (t TieBreak) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t TieBreak) prefers(a, b int) bool {
	if t == HighestIDWins {
		return a > b
	}
	return a < b
}

type proposal struct {
	agent    int
	from, to world.Pos
}

// verdict is the outcome of resolving one tick of proposals.
type verdict struct {
	granted map[int]bool
	denied  map[int]bool
	swaps   [][2]int // denied head-on swaps, favored agent first
}

// resolve grants or denies every proposal at once:
//   - when several agents target one cell only the favored one keeps its claim;
//   - two agents trading cells are both denied;
//   - a move into a cell whose occupant is not leaving is denied, and that
//     denial cascades to whoever was following behind.
//
// Cycles of three or more agents rotate together.
func resolve(proposals []proposal, occupied map[world.Pos]int, tie TieBreak) verdict {
	v := verdict{granted: make(map[int]bool), denied: make(map[int]bool)}
	moving := make(map[int]proposal, len(proposals))
	for _, p := range proposals {
		moving[p.agent] = p
	}

	byTarget := make(map[world.Pos][]int)
	for _, p := range proposals {
		byTarget[p.to] = append(byTarget[p.to], p.agent)
	}
	for _, claimants := range byTarget {
		if len(claimants) < 2 {
			continue
		}
		winner := claimants[0]
		for _, c := range claimants[1:] {
			if tie.prefers(c, winner) {
				winner = c
			}
		}
		for _, c := range claimants {
			if c != winner {
				v.denied[c] = true
			}
		}
	}

	for _, p := range proposals {
		if v.denied[p.agent] {
			continue
		}
		other, ok := occupied[p.to]
		if !ok || other == p.agent || v.denied[other] {
			continue
		}
		if q, moves := moving[other]; moves && q.to == p.from && tie.prefers(p.agent, other) {
			v.denied[p.agent] = true
			v.denied[other] = true
			v.swaps = append(v.swaps, [2]int{p.agent, other})
		}
	}

	for changed := true; changed; {
		changed = false
		for _, p := range proposals {
			if v.denied[p.agent] {
				continue
			}
			other, ok := occupied[p.to]
			if !ok || other == p.agent {
				continue
			}
			if _, moves := moving[other]; !moves || v.denied[other] {
				v.denied[p.agent] = true
				changed = true
			}
		}
	}

	for _, p := range proposals {
		if !v.denied[p.agent] {
			v.granted[p.agent] = true
		}
	}
	return v
}
