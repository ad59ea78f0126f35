package world

import "fmt"

// Pos is a cell coordinate on the grid.
type Pos struct {
	Row int `json:"row" yaml:"row" bson:"row"`
	Col int `json:"col" yaml:"col" bson:"col"`
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Building identifies the region a cell belongs to.
type Building uint8

const (
	BuildingNone Building = iota
	BuildingMain
	BuildingBridge
	BuildingPAB
)

func (b Building) String() string {
	switch b {
	case BuildingMain:
		return "MAIN"
	case BuildingBridge:
		return "BRIDGE"
	case BuildingPAB:
		return "PAB"
	default:
		return "NONE"
	}
}

// Kind is the content of a cell.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindWall
	KindBridge
	KindAngry
	KindChair
	KindOffice
)

var kindSymbols = map[Kind]byte{
	KindEmpty:  '.',
	KindWall:   '#',
	KindBridge: '=',
	KindAngry:  'A',
	KindChair:  'P',
	KindOffice: 'O',
}

// Symbol returns the single character used when rendering the kind.
func (k Kind) Symbol() byte {
	if s, ok := kindSymbols[k]; ok {
		return s
	}
	return '?'
}

func kindFromSymbol(s byte) (Kind, bool) {
	for k, sym := range kindSymbols {
		if sym == s {
			return k, true
		}
	}
	return 0, false
}

// Cell is a single immutable grid square.
type Cell struct {
	Pos      Pos
	Walkable bool
	Building Building
	Kind     Kind
	Cost     float64 // cost of entering the cell; must be positive
}

// Connectivity is the number of neighbors considered around a cell.
type Connectivity int

const (
	Four  Connectivity = 4
	Eight Connectivity = 8
)

type direction struct {
	dRow, dCol int
}

// Orthogonal moves come first, in the order East, West, South, North.
var (
	orthogonal = []direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	diagonal   = []direction{{-1, 1}, {-1, -1}, {1, 1}, {1, -1}}
)
