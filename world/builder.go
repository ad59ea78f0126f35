package world

import (
	"errors"
	"fmt"
	"math/rand"
)

// Fixed geometry of the three-building campus.
const (
	MainHeight   = 7
	PABHeight    = 5
	BridgeLength = 3
	BridgeRow    = 3
	PABRowOffset = 2

	MinMainWidth = 7
	MaxMainWidth = 100
	MinPABWidth  = 4
	MaxPABWidth  = 80

	defaultMaxTries = 10_000
	maxTriesLimit   = 100_000
)

var (
	ErrInvalidBuildConfig = errors.New("invalid build config")
	ErrNoSolvableWorld    = errors.New("failed to generate a solvable world")
)

// BuildConfig describes the campus to generate.
type BuildConfig struct {
	MainWidth    int          `yaml:"main_width" json:"main_width"`
	PABWidth     int          `yaml:"pab_width" json:"pab_width"`
	WallsMain    int          `yaml:"walls_main" json:"walls_main"`
	WallsPAB     int          `yaml:"walls_pab" json:"walls_pab"`
	AngryMain    int          `yaml:"angry_main" json:"angry_main"`
	AngryPAB     int          `yaml:"angry_pab" json:"angry_pab"`
	AngryCost    float64      `yaml:"angry_cost" json:"angry_cost"` // entering cost of angry cells, 1 when unset
	Connectivity Connectivity `yaml:"connectivity" json:"connectivity"`
	MaxTries     int          `yaml:"max_tries" json:"max_tries"`
}

// DefaultBuildConfig returns the campus used when nothing else is configured.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		MainWidth:    10,
		PABWidth:     7,
		WallsMain:    4,
		WallsPAB:     2,
		AngryMain:    2,
		AngryPAB:     1,
		AngryCost:    1,
		Connectivity: Four,
		MaxTries:     defaultMaxTries,
	}
}

// Validate checks widths and obstacle counts. Angry people may fill at most
// one row's worth of a building, walls at most what is left of that row.
func (c BuildConfig) Validate() error {
	if c.MainWidth < MinMainWidth || c.MainWidth > MaxMainWidth {
		return fmt.Errorf("%w: main width must be %d-%d, got %d", ErrInvalidBuildConfig, MinMainWidth, MaxMainWidth, c.MainWidth)
	}
	if c.PABWidth < MinPABWidth || c.PABWidth > MaxPABWidth {
		return fmt.Errorf("%w: pab width must be %d-%d, got %d", ErrInvalidBuildConfig, MinPABWidth, MaxPABWidth, c.PABWidth)
	}
	if c.AngryMain < 0 || c.AngryMain > c.MainWidth {
		return fmt.Errorf("%w: main angry must be 0-%d, got %d", ErrInvalidBuildConfig, c.MainWidth, c.AngryMain)
	}
	if c.WallsMain < 0 || c.WallsMain > c.MainWidth-c.AngryMain {
		return fmt.Errorf("%w: main walls must be 0-%d, got %d", ErrInvalidBuildConfig, c.MainWidth-c.AngryMain, c.WallsMain)
	}
	if c.AngryPAB < 0 || c.AngryPAB > c.PABWidth {
		return fmt.Errorf("%w: pab angry must be 0-%d, got %d", ErrInvalidBuildConfig, c.PABWidth, c.AngryPAB)
	}
	if c.WallsPAB < 0 || c.WallsPAB > c.PABWidth-c.AngryPAB {
		return fmt.Errorf("%w: pab walls must be 0-%d, got %d", ErrInvalidBuildConfig, c.PABWidth-c.AngryPAB, c.WallsPAB)
	}
	if c.AngryCost < 0 {
		return fmt.Errorf("%w: angry cost must not be negative", ErrInvalidBuildConfig)
	}
	if c.MaxTries < 0 || c.MaxTries > maxTriesLimit {
		return fmt.Errorf("%w: max tries must be 0-%d, got %d", ErrInvalidBuildConfig, maxTriesLimit, c.MaxTries)
	}
	if c.Connectivity != 0 && c.Connectivity != Four && c.Connectivity != Eight {
		return fmt.Errorf("%w: connectivity must be 4 or 8", ErrInvalidBuildConfig)
	}
	return nil
}

// Placement holds the special locations of a generated campus.
type Placement struct {
	Start              Pos `json:"start"`
	Office             Pos `json:"office"`
	Chair              Pos `json:"chair"`
	BridgeEntranceMain Pos `json:"bridge_entrance_main"`
	BridgeEntrancePAB  Pos `json:"bridge_entrance_pab"`
}

type posSet map[Pos]struct{}

func (s posSet) has(p Pos) bool {
	_, ok := s[p]
	return ok
}

func (s posSet) union(others ...posSet) posSet {
	out := make(posSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	for _, o := range others {
		for p := range o {
			out[p] = struct{}{}
		}
	}
	return out
}

func setOf(ps ...Pos) posSet {
	s := make(posSet, len(ps))
	for _, p := range ps {
		s[p] = struct{}{}
	}
	return s
}

// campus holds the geometry derived from a BuildConfig.
type campus struct {
	mainW, pabW, width int
	entranceMain       Pos
	entrancePAB        Pos
}

func newCampus(c BuildConfig) campus {
	return campus{
		mainW:        c.MainWidth,
		pabW:         c.PABWidth,
		width:        c.MainWidth + BridgeLength + c.PABWidth,
		entranceMain: Pos{Row: BridgeRow, Col: c.MainWidth - 1},
		entrancePAB:  Pos{Row: BridgeRow, Col: c.MainWidth + BridgeLength},
	}
}

func (g campus) building(p Pos) Building {
	switch {
	case p.Col < g.mainW:
		return BuildingMain
	case p.Col < g.mainW+BridgeLength:
		if p.Row == BridgeRow {
			return BuildingBridge
		}
		return BuildingNone
	case p.Row >= PABRowOffset && p.Row < PABRowOffset+PABHeight:
		return BuildingPAB
	default:
		return BuildingNone
	}
}

func (g campus) cells(b Building) []Pos {
	var out []Pos
	for r := 0; r < MainHeight; r++ {
		for c := 0; c < g.width; c++ {
			if p := (Pos{Row: r, Col: c}); g.building(p) == b {
				out = append(out, p)
			}
		}
	}
	return out
}

// sampleUnique draws k distinct positions from candidates that are not excluded.
func sampleUnique(candidates []Pos, k int, rng *rand.Rand, exclude posSet) (posSet, bool) {
	pool := make([]Pos, 0, len(candidates))
	for _, c := range candidates {
		if !exclude.has(c) {
			pool = append(pool, c)
		}
	}
	if len(pool) < k {
		return nil, false
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return setOf(pool[:k]...), true
}

// Build generates a solvable campus: MAIN and PAB joined by a three cell
// bridge, with walls, angry people, one chair and the office. The anchor
// start always keeps a two-row corridor toward the bridge, and both the
// bridge and the office are reachable from it without touching hazards.
func Build(cfg BuildConfig, rng *rand.Rand) (*World, Placement, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Placement{}, err
	}
	if cfg.Connectivity == 0 {
		cfg.Connectivity = Four
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = defaultMaxTries
	}
	if cfg.AngryCost == 0 {
		cfg.AngryCost = 1
	}

	g := newCampus(cfg)
	mainCells := g.cells(BuildingMain)
	pabCells := g.cells(BuildingPAB)
	bridge := setOf(g.cells(BuildingBridge)...)
	forbidden := bridge.union(setOf(g.entranceMain, g.entrancePAB))

	startCandidates := make([]Pos, 0, len(mainCells))
	for _, p := range mainCells {
		if !forbidden.has(p) {
			startCandidates = append(startCandidates, p)
		}
	}

	for try := 0; try < cfg.MaxTries; try++ {
		kinds := make(map[Pos]Kind)
		for p := range bridge {
			kinds[p] = KindBridge
		}

		start := startCandidates[rng.Intn(len(startCandidates))]
		corridor := g.corridor(start)

		wallsMain, ok := sampleUnique(mainCells, cfg.WallsMain, rng, forbidden.union(setOf(start), corridor))
		if !ok {
			continue
		}
		for p := range wallsMain {
			kinds[p] = KindWall
		}

		wallsPAB, ok := sampleUnique(pabCells, cfg.WallsPAB, rng, forbidden)
		if !ok {
			continue
		}
		for p := range wallsPAB {
			kinds[p] = KindWall
		}

		angryMain, ok := sampleUnique(mainCells, cfg.AngryMain, rng,
			wallsMain.union(setOf(start, g.entranceMain), bridge, corridor))
		if !ok {
			continue
		}
		for p := range angryMain {
			kinds[p] = KindAngry
		}

		office, chair, angryPAB, ok := g.placePAB(cfg, rng, kinds, pabCells, wallsPAB.union(bridge, setOf(g.entrancePAB)))
		if !ok {
			continue
		}
		kinds[office] = KindOffice
		kinds[chair] = KindChair
		for _, p := range angryPAB {
			kinds[p] = KindAngry
		}

		w, err := g.world(cfg, kinds)
		if err != nil {
			return nil, Placement{}, err
		}
		hazards := map[Kind]bool{KindWall: true, KindChair: true, KindAngry: true}
		if !pathAvoiding(w, start, g.entranceMain, hazards) || !pathAvoiding(w, start, office, hazards) {
			continue
		}

		return w, Placement{
			Start:              start,
			Office:             office,
			Chair:              chair,
			BridgeEntranceMain: g.entranceMain,
			BridgeEntrancePAB:  g.entrancePAB,
		}, nil
	}

	return nil, Placement{}, fmt.Errorf("%w after %d tries", ErrNoSolvableWorld, cfg.MaxTries)
}

// corridor keeps two rows from start to the east edge of MAIN free of obstacles.
func (g campus) corridor(start Pos) posSet {
	rows := []int{start.Row}
	if start.Row+1 < MainHeight {
		rows = append(rows, start.Row+1)
	} else if start.Row-1 >= 0 {
		rows = append(rows, start.Row-1)
	}

	out := make(posSet)
	for c := start.Col; c < g.mainW; c++ {
		for _, r := range rows {
			out[Pos{Row: r, Col: c}] = struct{}{}
		}
	}
	return out
}

// placePAB picks the office, the chair and the angry people inside PAB. The
// office never touches a wall or an angry person and is never on the entrance
// column; angry people are never next to the office.
func (g campus) placePAB(cfg BuildConfig, rng *rand.Rand, kinds map[Pos]Kind, pabCells []Pos, occupied posSet) (Pos, Pos, []Pos, bool) {
	var candidates []Pos
	for _, p := range pabCells {
		if !occupied.has(p) && p.Col != g.entrancePAB.Col {
			candidates = append(candidates, p)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	touchesHazard := func(p Pos) bool {
		for _, d := range orthogonal {
			k := kinds[Pos{Row: p.Row + d.dRow, Col: p.Col + d.dCol}]
			if k == KindWall || k == KindAngry {
				return true
			}
		}
		return false
	}

	office, found := Pos{}, false
	for _, p := range candidates {
		if kinds[p] == KindEmpty && !touchesHazard(p) {
			office, found = p, true
			break
		}
	}
	if !found {
		return Pos{}, Pos{}, nil, false
	}

	var chairs []Pos
	for _, p := range candidates {
		if p != office && kinds[p] == KindEmpty {
			chairs = append(chairs, p)
		}
	}
	if len(chairs) == 0 {
		return Pos{}, Pos{}, nil, false
	}
	chair := chairs[rng.Intn(len(chairs))]

	var free []Pos
	for _, p := range candidates {
		if p == office || p == chair || kinds[p] != KindEmpty {
			continue
		}
		if abs(p.Row-office.Row)+abs(p.Col-office.Col) == 1 {
			continue
		}
		free = append(free, p)
	}
	if len(free) < cfg.AngryPAB {
		return Pos{}, Pos{}, nil, false
	}
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	return office, chair, free[:cfg.AngryPAB], true
}

func (g campus) world(cfg BuildConfig, kinds map[Pos]Kind) (*World, error) {
	rows := make([][]Cell, MainHeight)
	for r := range rows {
		rows[r] = make([]Cell, g.width)
		for c := range rows[r] {
			p := Pos{Row: r, Col: c}
			b := g.building(p)
			k := kinds[p]
			cost := 1.0
			if k == KindAngry {
				cost = cfg.AngryCost
			}
			rows[r][c] = Cell{
				Pos:      p,
				Building: b,
				Kind:     k,
				Walkable: b != BuildingNone && k != KindWall,
				Cost:     cost,
			}
		}
	}
	return New(rows, cfg.Connectivity)
}

// pathAvoiding runs a breadth-first search that refuses to enter blocked kinds.
func pathAvoiding(w *World, start, goal Pos, blocked map[Kind]bool) bool {
	seen := map[Pos]bool{start: true}
	queue := []Pos{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == goal {
			return true
		}
		for _, n := range w.Neighbors(cur) {
			if seen[n] {
				continue
			}
			if c, _ := w.Cell(n); blocked[c.Kind] && n != goal {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
