package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BuildConfig)
		valid  bool
	}{
		{name: "defaults", mutate: func(*BuildConfig) {}, valid: true},
		{name: "main too narrow", mutate: func(c *BuildConfig) { c.MainWidth = 6 }},
		{name: "pab too wide", mutate: func(c *BuildConfig) { c.PABWidth = 81 }},
		{name: "too many angry", mutate: func(c *BuildConfig) { c.AngryMain = c.MainWidth + 1 }},
		{name: "walls exceed what angry leaves", mutate: func(c *BuildConfig) {
			c.AngryPAB = 3
			c.WallsPAB = c.PABWidth - 2
		}},
		{name: "odd connectivity", mutate: func(c *BuildConfig) { c.Connectivity = 6 }},
		{name: "unbounded tries", mutate: func(c *BuildConfig) { c.MaxTries = maxTriesLimit + 1 }},
		{name: "negative tries", mutate: func(c *BuildConfig) { c.MaxTries = -1 }},
		{name: "tries left to default", mutate: func(c *BuildConfig) { c.MaxTries = 0 }, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBuildConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidBuildConfig)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		w, pl, err := Build(DefaultBuildConfig(), rand.New(rand.NewSource(seed)))
		require.NoError(t, err, "seed %d", seed)

		assert.Equal(t, 10+BridgeLength+7, w.Width())
		assert.Equal(t, MainHeight, w.Height())

		start, _ := w.Cell(pl.Start)
		assert.Equal(t, BuildingMain, start.Building)
		assert.Equal(t, KindEmpty, start.Kind)

		office, _ := w.Cell(pl.Office)
		assert.Equal(t, BuildingPAB, office.Building)
		assert.Equal(t, KindOffice, office.Kind)
		assert.NotEqual(t, pl.BridgeEntrancePAB.Col, pl.Office.Col)

		chair, _ := w.Cell(pl.Chair)
		assert.Equal(t, KindChair, chair.Kind)

		for _, n := range w.Neighbors(pl.Office) {
			c, _ := w.Cell(n)
			assert.NotEqual(t, KindAngry, c.Kind, "seed %d: angry next to office", seed)
		}

		hazards := map[Kind]bool{KindWall: true, KindChair: true, KindAngry: true}
		assert.True(t, pathAvoiding(w, pl.Start, pl.Office, hazards))
		assert.True(t, w.IsGoalReachable(pl.Start, pl.Office))

		walls := w.Cells(func(c Cell) bool { return c.Kind == KindWall })
		assert.Len(t, walls, 4+2)
		angry := w.Cells(func(c Cell) bool { return c.Kind == KindAngry })
		assert.Len(t, angry, 2+1)
	}
}

func TestBuildIsSeeded(t *testing.T) {
	a, pa, err := Build(DefaultBuildConfig(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, pb, err := Build(DefaultBuildConfig(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, pa, pb)
}

func TestBuildOutsideCellsAreBlocked(t *testing.T) {
	w, _, err := Build(DefaultBuildConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// Column 10 is the first bridge column; only the bridge row is walkable there.
	for r := 0; r < MainHeight; r++ {
		assert.Equal(t, r == BridgeRow, w.Walkable(Pos{Row: r, Col: 10}), "row %d", r)
	}
	// PAB spans rows 2-6.
	assert.False(t, w.Walkable(Pos{Row: 0, Col: 14}))
	assert.False(t, w.Walkable(Pos{Row: 1, Col: 14}))
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultBuildConfig()
	cfg.MainWidth = 3
	_, _, err := Build(cfg, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInvalidBuildConfig)
}
