// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/buf"
	"github.com/zintix-labs/cascadelab/sdk/core"
)

func grid(t *testing.T, rows ...string) *board.Grid {
	t.Helper()
	st, err := board.StateFromRows(rows, core.NewStreams(core.Default(), 1))
	require.NoError(t, err)
	return st.Grid
}

func rng(seed int64) *core.Core {
	return core.NewStreams(core.Default(), seed).Gameplay()
}

func pos(c, r int) board.Position { return board.Position{Col: c, Row: r} }

func positions(g *board.Grid, s *Shape) []board.Position {
	out := make([]board.Position, 0, len(s.Cells))
	for _, i := range s.Cells {
		out = append(out, g.Pos(i))
	}
	return out
}

func TestSwapCreatesPlainThree(t *testing.T) {
	g := grid(t,
		"R R B R R",
		"G Y G Y G",
		"Y G Y G Y",
		"G Y G Y G",
		"Y G Y G Y",
	)
	d := NewDetector(DefaultConfig())
	assert.Empty(t, d.Detect(g, nil, rng(1)))

	g.Swap(pos(2, 0), pos(1, 0))
	focus := []board.Position{pos(2, 0), pos(1, 0)}
	shapes := d.Detect(g, focus, rng(1))
	require.Len(t, shapes, 1)
	s := shapes[0]
	assert.Equal(t, Plain, s.Kind)
	assert.Equal(t, board.None, s.Bomb)
	assert.False(t, s.HasOrigin)
	assert.Equal(t, []board.Position{pos(2, 0), pos(3, 0), pos(4, 0)}, positions(g, s))
}

func TestSquareOriginAtFocus(t *testing.T) {
	g := grid(t,
		"Y R Y R",
		"R G G Y",
		"Y G G R",
		"R Y R Y",
	)
	d := NewDetector(DefaultConfig())

	shapes := d.Detect(g, []board.Position{pos(2, 2), pos(3, 2)}, rng(1))
	require.Len(t, shapes, 1)
	s := shapes[0]
	assert.Equal(t, Square, s.Kind)
	assert.Equal(t, board.Target, s.Bomb)
	require.True(t, s.HasOrigin)
	assert.Equal(t, pos(2, 2), s.Origin)

	// 焦點不在方塊內：取 (Col, Row) 最小者
	shapes = d.Detect(g, []board.Position{pos(0, 0), pos(0, 1)}, rng(1))
	require.Len(t, shapes, 1)
	assert.Equal(t, pos(1, 1), shapes[0].Origin)
}

func TestSquareOriginSkipsExistingBomb(t *testing.T) {
	g := grid(t,
		"Gh G",
		"G  G",
	)
	shapes := NewDetector(DefaultConfig()).Detect(g, nil, rng(1))
	require.Len(t, shapes, 1)
	assert.Equal(t, pos(0, 1), shapes[0].Origin)
}

func TestBothFocusInsideUsesCoin(t *testing.T) {
	g := grid(t,
		"R G G G G",
		"Y R Y R Y",
	)
	focus := []board.Position{pos(1, 0), pos(2, 0)}
	seen := map[board.Position]bool{}
	for seed := int64(0); seed < 32; seed++ {
		a := NewDetector(DefaultConfig()).Detect(g, focus, rng(seed))
		b := NewDetector(DefaultConfig()).Detect(g, focus, rng(seed))
		require.Len(t, a, 1)
		assert.Equal(t, a[0].Origin, b[0].Origin, "same seed must pick the same endpoint")
		assert.Equal(t, Line4, a[0].Kind)
		assert.Equal(t, board.Column, a[0].Bomb)
		seen[a[0].Origin] = true
	}
	assert.Len(t, seen, 2, "both endpoints must be reachable")
}

func TestPlusVersusCross(t *testing.T) {
	plus := grid(t,
		"Y R Y",
		"R R R",
		"Y R Y",
	)
	shapes := NewDetector(DefaultConfig()).Detect(plus, nil, rng(1))
	require.Len(t, shapes, 1)
	assert.Equal(t, Plus, shapes[0].Kind)
	assert.Equal(t, board.Area3, shapes[0].Bomb)
	assert.Equal(t, pos(1, 1), shapes[0].Origin, "origin defaults to the intersection")

	ell := grid(t,
		"R Y G",
		"R G Y",
		"R R R",
	)
	shapes = NewDetector(DefaultConfig()).Detect(ell, nil, rng(1))
	require.Len(t, shapes, 1)
	assert.Equal(t, Cross, shapes[0].Kind)
	assert.Equal(t, board.Area5, shapes[0].Bomb)
	assert.Equal(t, 5, shapes[0].Size())
	assert.Equal(t, pos(0, 2), shapes[0].Origin)
	assert.Greater(t, DefaultWeights().Cross, DefaultWeights().Plus)
}

func TestLineFiveBeatsCross(t *testing.T) {
	g := grid(t,
		"B B B B B",
		"B Y G Y G",
		"B G Y G Y",
	)
	shapes := NewDetector(DefaultConfig()).Detect(g, nil, rng(1))
	require.Len(t, shapes, 1)
	s := shapes[0]
	assert.Equal(t, Line5, s.Kind)
	assert.Equal(t, board.ColorBomb, s.Bomb)
	// 垂直 run 剩下的兩格併入 Line5
	assert.Equal(t, 7, s.Size())
}

func TestLineFourVertical(t *testing.T) {
	g := grid(t,
		"P Y",
		"P G",
		"P Y",
		"P G",
	)
	shapes := NewDetector(DefaultConfig()).Detect(g, nil, rng(1))
	require.Len(t, shapes, 1)
	assert.Equal(t, Line4, shapes[0].Kind)
	assert.Equal(t, Vertical, shapes[0].Dir)
	assert.Equal(t, board.Row, shapes[0].Bomb)
}

func TestSquarePrunedByLines(t *testing.T) {
	g := grid(t,
		"O O O O",
		"O O O O",
	)
	d := NewDetector(DefaultConfig())
	shapes := d.Detect(g, nil, rng(1))
	for _, s := range shapes {
		assert.NotEqual(t, Square, s.Kind)
	}
	total := 0
	for _, s := range shapes {
		total += s.Size()
	}
	assert.Equal(t, 8, total)
}

func TestNoMatchBelowThree(t *testing.T) {
	g := grid(t,
		"R R G",
		"G Y R",
		"R G Y",
	)
	assert.Empty(t, NewDetector(DefaultConfig()).Detect(g, nil, rng(1)))
	assert.False(t, AnyMatch(g))
}

func TestSuspendedAndRainbowNeverMatch(t *testing.T) {
	g := grid(t,
		"R * R",
		"# # #",
		"G Y G",
	)
	assert.Empty(t, NewDetector(DefaultConfig()).Detect(g, nil, rng(1)))
}

func TestPartitionValidityOnRandomBoards(t *testing.T) {
	d := NewDetector(DefaultConfig())
	for seed := int64(0); seed < 200; seed++ {
		c := rng(seed)
		g := board.NewGrid(7, 7)
		for i := range g.Cells {
			g.Cells[i] = board.Tile{ID: uint64(i + 1), Color: board.Color(c.IntN(3) + 1)}
			g.Cells[i].Place(g.Pos(i))
		}
		shapes := d.Detect(g, []board.Position{pos(3, 3), pos(3, 4)}, c)

		cover := &buf.Bitset{}
		cover.Resize(len(g.Cells))
		for _, s := range shapes {
			require.False(t, s.Bits.Intersects(cover), "seed %d: shapes overlap", seed)
			cover.Or(s.Bits)
			require.GreaterOrEqual(t, s.Size(), 3, "seed %d", seed)
			for _, i := range s.Cells {
				require.Equal(t, s.Color, g.Cells[i].Color)
			}
			if s.HasOrigin {
				require.True(t, s.Contains(g.Idx(s.Origin)))
			}
		}
		// 所有位於 3+ 直線上的格子都必須被清除
		for i := range g.Cells {
			if MatchesAt(g, g.Pos(i)) && !inSquareOnly(g, g.Pos(i)) {
				require.True(t, cover.Has(i), "seed %d: run cell %v not covered\n%s", seed, g.Pos(i), g)
			}
		}
	}
}

// inSquareOnly 格子只因 2x2 方塊而 MatchesAt，不在任何 3+ 直線上
func inSquareOnly(g *board.Grid, p board.Position) bool {
	c := g.At(p).Color
	same := func(col, row int) bool {
		return col >= 0 && col < g.W && row >= 0 && row < g.H && g.AtCR(col, row).Color == c
	}
	h, v := 1, 1
	for x := p.Col - 1; same(x, p.Row); x-- {
		h++
	}
	for x := p.Col + 1; same(x, p.Row); x++ {
		h++
	}
	for y := p.Row - 1; same(p.Col, y); y-- {
		v++
	}
	for y := p.Row + 1; same(p.Col, y); y++ {
		v++
	}
	return h < 3 && v < 3
}

func TestDetectDeterministic(t *testing.T) {
	g := grid(t,
		"R R R G",
		"R G G G",
		"R G Y Y",
		"B B B Y",
	)
	a := NewDetector(DefaultConfig()).Detect(g, nil, rng(5))
	b := NewDetector(DefaultConfig()).Detect(g, nil, rng(5))
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Kind, b[i].Kind)
		assert.Equal(t, a[i].Cells, b[i].Cells)
		assert.Equal(t, a[i].Origin, b[i].Origin)
	}
}

func TestMatchesAt(t *testing.T) {
	g := grid(t,
		"R R Y",
		"R R G",
		"G Y G",
	)
	assert.True(t, MatchesAt(g, pos(0, 0)))
	assert.False(t, MatchesAt(g, pos(2, 2)))
	assert.False(t, MatchesAt(g, pos(9, 9)))
	assert.True(t, AnyMatch(g))
}

func TestConfigValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Valid())
	bad := DefaultConfig()
	bad.MaxSearchIters = -1
	assert.Error(t, bad.Valid())
	bad = DefaultConfig()
	bad.Weights.Square = -3
	assert.Error(t, bad.Valid())
	assert.Equal(t, "cross", Cross.String())
}

// 這個盤面貪婪挑選只拿到 170，局部搜尋換掉已選形狀後可達 200
func TestLocalSearchBeatsGreedy(t *testing.T) {
	rows := []string{
		"R R R G G G G",
		"R R R R G R G",
		"R G G G G G R",
		"R G G R G R R",
		"G G G G G R R",
		"G G R R G R R",
		"R R G G R G R",
	}
	total := func(cfg Config) int {
		g := grid(t, rows...)
		shapes := NewDetector(cfg).Detect(g, nil, rng(85))
		require.NotEmpty(t, shapes)
		seen := map[int]bool{}
		sum := 0
		for _, s := range shapes {
			for _, i := range s.Cells {
				require.False(t, seen[i], "cell %v in two shapes", g.Pos(i))
				seen[i] = true
			}
			sum += s.Weight
		}
		return sum
	}

	greedyCfg := DefaultConfig()
	greedyCfg.MaxSearchIters = 0
	greedy := total(greedyCfg)
	searched := total(DefaultConfig())
	assert.Greater(t, searched, greedy)
	assert.Equal(t, 170, greedy)
	assert.Equal(t, 200, searched)
}

func TestDetectBorrowsRegionScratch(t *testing.T) {
	g := grid(t,
		"R R R",
		"G Y G",
		"Y G Y",
	)
	d := NewDetector(DefaultConfig())
	require.Len(t, d.Detect(g, nil, rng(1)), 1)
	_, ints := d.arena.InUse()
	// 每個同色區塊各借一份
	assert.Equal(t, 7, ints)
}
