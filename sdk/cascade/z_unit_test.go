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

package cascade

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/fx"
	"github.com/zintix-labs/cascadelab/sdk/refill"
	"github.com/zintix-labs/cascadelab/sdk/score"
)

func pos(c, r int) board.Position { return board.Position{Col: c, Row: r} }

func newEngine(t *testing.T, cfg Config, pred refill.Predictor, sink event.Sink, rows ...string) *Engine {
	t.Helper()
	st, err := board.StateFromRows(rows, core.NewStreams(core.Default(), 42))
	require.NoError(t, err)
	e, err := New(cfg, st, pred, score.DefaultTable(), sink)
	require.NoError(t, err)
	return e
}

func kinds(evs []event.Event) []event.Kind {
	out := make([]event.Kind, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Kind)
	}
	return out
}

var checker = []string{
	"G Y G Y G",
	"Y G Y G Y",
	"G Y G Y G",
	"Y G Y G Y",
}

func TestSwapClearsThreeWithoutBomb(t *testing.T) {
	out := &event.Buffer{}
	rows := append([]string{"R R B R R"}, checker...)
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{5, 6}}, out, rows...)

	res, err := e.Swap(pos(2, 0), pos(1, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, 1, res.Cascades)
	assert.Equal(t, 3, res.Cleared)
	assert.Equal(t, 0, res.BombsCreated)
	assert.Equal(t, int64(60), res.Score)
	assert.Equal(t, int64(60), e.State().Score)
	assert.Equal(t, 1, e.State().Moves)
	assert.Equal(t, "R B P O P", e.State().Grid.Rows()[0])
	assert.Greater(t, res.Ticks, 0)
	assert.Equal(t, AwaitingInput, e.Phase())

	ks := kinds(out.Events)
	require.NotEmpty(t, ks)
	assert.Equal(t, event.TileSwapped, ks[0])
	assert.Equal(t, event.MatchCleared, ks[1])
	assert.NotContains(t, ks, event.BombCreated)
	for i := 1; i < len(out.Events); i++ {
		assert.Equal(t, out.Events[i-1].Seq+1, out.Events[i].Seq)
	}
}

func TestSwapRevertRestoresGrid(t *testing.T) {
	out := &event.Buffer{}
	rows := append([]string{"R R B R R"}, checker...)
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{5}}, out, rows...)
	before := e.State().Grid.Clone()

	res, err := e.Swap(pos(0, 1), pos(0, 2))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReverted, res.Outcome)
	assert.Equal(t, before.Hash(), e.State().Grid.Hash())
	assert.Equal(t, before.Rows(), e.State().Grid.Rows())
	assert.Equal(t, []event.Kind{event.TileSwapped, event.SwapReverted}, kinds(out.Events))
	assert.Zero(t, e.State().Moves)
	assert.Equal(t, 1, e.State().RecentFailures)

	// 不相鄰：同樣回報 revert，盤面不動
	out.Reset()
	res, _ = e.Swap(pos(0, 1), pos(3, 3))
	assert.Equal(t, OutcomeReverted, res.Outcome)
	assert.Equal(t, before.Rows(), e.State().Grid.Rows())
	assert.Equal(t, []event.Kind{event.TileSwapped, event.SwapReverted}, kinds(out.Events))
}

func TestSwapOutOfBoundsRejected(t *testing.T) {
	out := &event.Buffer{}
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{5}}, out, checker...)
	for _, p := range []board.Position{pos(-1, 0), pos(5, 0), pos(0, 4), pos(0, -1)} {
		res, err := e.Swap(pos(0, 0), p)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, res.Outcome)
	}
	res, _ := e.Activate(pos(9, 9))
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Empty(t, out.Events)
}

func TestOutOfMoves(t *testing.T) {
	rows := append([]string{"R R B R R"}, checker...)
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{5, 6}}, nil, rows...)
	e.State().MoveLimit = 1
	res, err := e.Swap(pos(2, 0), pos(1, 0))
	require.NoError(t, err)
	require.Equal(t, OutcomeResolved, res.Outcome)
	assert.True(t, e.Over())

	res, _ = e.Swap(pos(1, 1), pos(1, 2))
	assert.Equal(t, OutcomeOutOfMoves, res.Outcome)
}

func TestActivateBomb(t *testing.T) {
	rows := []string{
		"G Y G Y G",
		"Y G Rh G Y",
		"G Y G Y G",
	}
	// 補入 Y G Y G Y：不成形且仍留有可行步
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{4, 2}}, nil, rows...)
	res, _ := e.Activate(pos(0, 0))
	assert.Equal(t, OutcomeRejected, res.Outcome)

	res, err := e.Activate(pos(2, 1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, 1, res.Detonations)
	assert.Equal(t, 5, res.Cleared)
	assert.Zero(t, res.Shuffled)
	assert.Equal(t, 15, e.State().Grid.Count())
	assert.Equal(t, []string{"Y G Y G Y", "G Y G Y G", "G Y G Y G"}, e.State().Grid.Rows())
}

func TestSwapRainbowCombo(t *testing.T) {
	rows := []string{
		"G Y * * G",
		"Y G Y G Y",
		"G Y G Y G",
	}
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{5, 6}}, nil, rows...)
	res, err := e.Swap(pos(2, 0), pos(3, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, 1, res.Combos)
	assert.GreaterOrEqual(t, res.Cleared, 15)
	assert.Equal(t, 1, e.State().Moves)
}

func TestCascadeLimitIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCascadeSteps = 5
	e := newEngine(t, cfg, &refill.CyclePredictor{Colors: []board.Color{1}}, nil,
		"R R R",
		"G Y G",
		"Y G Y",
	)
	var res MoveResult
	err := e.Resolve(&res)
	require.Error(t, err)
	assert.True(t, errs.IsFatal(err))
	assert.True(t, errors.Is(err, errs.ErrCascadeLimit))
	assert.Equal(t, Stalled, e.Phase())
	assert.Equal(t, 5, res.Cascades)
}

func TestShuffleFindsMove(t *testing.T) {
	out := &event.Buffer{}
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{5}}, out,
		"R G Y",
		"G Y R",
		"Y R G",
	)
	require.False(t, e.HasValidMove())
	require.True(t, e.Shuffle())
	assert.True(t, e.HasValidMove())
	counts := map[board.Color]int{}
	for _, tl := range e.State().Grid.Cells {
		counts[tl.Color]++
	}
	assert.Equal(t, map[board.Color]int{1: 3, 2: 3, 4: 3}, counts)
	assert.Contains(t, kinds(out.Events), event.BoardShuffled)
}

func TestUnsolvableBoardStalls(t *testing.T) {
	cells, w, h, err := board.ParseRows([]string{
		"R G B",
		"Y P O",
		"R G B",
	})
	require.NoError(t, err)
	lv := &board.Level{ID: 1, Width: w, Height: h, Cells: cells, Colors: 6}
	out := &event.Buffer{}
	e, err := Start(DefaultConfig(), lv, core.NewStreams(core.Default(), 3), &refill.CyclePredictor{Colors: []board.Color{1}}, nil, out)
	require.NoError(t, err)
	assert.Equal(t, Stalled, e.Phase())
	assert.True(t, e.Over())

	res, err := e.Swap(pos(0, 0), pos(1, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnsolvable, res.Outcome)
	assert.Equal(t, []string{"R G B", "Y P O", "R G B"}, e.State().Grid.Rows(), "failed shuffles restore colors")
}

func randomLevel(w, h int) *board.Level {
	cells := make([]board.LevelCell, w*h)
	for i := range cells {
		cells[i].Random = true
	}
	return &board.Level{ID: 7, Width: w, Height: h, Cells: cells, Colors: 5}
}

func play(t *testing.T, seed int64, moves int) (*Engine, []byte) {
	t.Helper()
	lv := randomLevel(7, 8)
	pred, err := refill.NewWeightedPredictor(lv.Colors, nil)
	require.NoError(t, err)
	out := &event.Buffer{}
	e, err := Start(DefaultConfig(), lv, core.NewStreams(core.Default(), seed), pred, nil, out)
	require.NoError(t, err)
	require.False(t, e.Over())

	g := e.State().Grid
	for m := 0; m < moves && !e.Over(); m++ {
		a, b, ok := FindMove(g)
		require.True(t, ok)
		var res MoveResult
		if a == b {
			res, err = e.Activate(a)
		} else {
			res, err = e.Swap(a, b)
		}
		require.NoError(t, err)
		require.Contains(t, []Outcome{OutcomeResolved, OutcomeUnsolvable}, res.Outcome)
		checkStable(t, g)
	}
	log, err := json.Marshal(out.Events)
	require.NoError(t, err)
	return e, log
}

// checkStable 穩定盤面：每格都有方塊、id 唯一、連續座標對齊格子
func checkStable(t *testing.T, g *board.Grid) {
	t.Helper()
	require.Equal(t, g.W*g.H, g.Count(), "tile conservation\n%s", g)
	seen := map[uint64]bool{}
	for i := range g.Cells {
		tl := &g.Cells[i]
		p := g.Pos(i)
		require.False(t, seen[tl.ID], "duplicate id %d", tl.ID)
		seen[tl.ID] = true
		require.False(t, tl.Falling())
		require.Equal(t, fx.FromInt(p.Row), tl.Y)
		require.Equal(t, fx.FromInt(p.Col), tl.X)
	}
}

func TestDeterministicPlaythrough(t *testing.T) {
	a, logA := play(t, 2025, 12)
	b, logB := play(t, 2025, 12)
	assert.Equal(t, a.State().Grid.Rows(), b.State().Grid.Rows())
	assert.Equal(t, a.State().Score, b.State().Score)
	assert.Equal(t, a.State().Tick, b.State().Tick)
	assert.Equal(t, logA, logB)

	c, _ := play(t, 2026, 12)
	assert.NotEqual(t, a.State().Grid.Rows(), c.State().Grid.Rows())
}

func TestCloneIsIndependent(t *testing.T) {
	e, _ := play(t, 9, 3)
	c, err := e.Clone()
	require.NoError(t, err)
	require.Equal(t, e.State().Grid.Rows(), c.State().Grid.Rows())

	a1, b1, ok := FindMove(e.State().Grid)
	require.True(t, ok)
	do := func(x *Engine) MoveResult {
		var r MoveResult
		var err error
		if a1 == b1 {
			r, err = x.Activate(a1)
		} else {
			r, err = x.Swap(a1, b1)
		}
		require.NoError(t, err)
		return r
	}
	before := e.State().Grid.Rows()
	rc := do(c)
	assert.Equal(t, before, e.State().Grid.Rows(), "clone must not share the grid")
	re := do(e)
	assert.Equal(t, re, rc)
	assert.Equal(t, e.State().Grid.Rows(), c.State().Grid.Rows())
}

func TestSettleFillsHoles(t *testing.T) {
	out := &event.Buffer{}
	e := newEngine(t, DefaultConfig(), &refill.CyclePredictor{Colors: []board.Color{5, 6}}, out,
		". . .",
		"G . Y",
		"Y G .",
	)
	ticks, err := e.Settle()
	require.NoError(t, err)
	assert.Greater(t, ticks, 1)
	assert.Equal(t, 9, e.State().Grid.Count())
	assert.Contains(t, kinds(out.Events), event.TileSpawned)
	assert.Contains(t, kinds(out.Events), event.TileLanded)
}

func TestConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Valid())
	assert.Equal(t, int64(16666), cfg.DtMicros())
	cfg.MaxCascadeSteps = 0
	assert.Error(t, cfg.Valid())
	assert.Equal(t, "stalled", Stalled.String())
	assert.Equal(t, "out_of_moves", OutcomeOutOfMoves.String())
}

func TestSnapshotRestoreContinuesIdentically(t *testing.T) {
	e, _ := play(t, 17, 4)
	if e.Over() {
		t.Skip("game ended before snapshot")
	}
	snap, err := e.Snapshot()
	require.NoError(t, err)

	pred, err := refill.NewWeightedPredictor(5, nil)
	require.NoError(t, err)
	r, err := Restore(e.Config(), snap, core.Default(), pred, nil, event.Nop{})
	require.NoError(t, err)
	require.Equal(t, e.State().Grid.Hash(), r.State().Grid.Hash())

	for m := 0; m < 3 && !e.Over(); m++ {
		a, b, ok := FindMove(e.State().Grid)
		require.True(t, ok)
		var want, got MoveResult
		if a == b {
			want, err = e.Activate(a)
			require.NoError(t, err)
			got, err = r.Activate(a)
		} else {
			want, err = e.Swap(a, b)
			require.NoError(t, err)
			got, err = r.Swap(a, b)
		}
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, e.State().Grid.Rows(), r.State().Grid.Rows())
	}
}
