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

package board

import (
	"testing"

	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/fx"
)

func testLevel(t *testing.T, rows ...string) *Level {
	t.Helper()
	cells, w, h, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("parse rows: %v", err)
	}
	return &Level{ID: 1, Width: w, Height: h, Cells: cells, Colors: 6, MoveLimit: 10}
}

func TestParseCellTokens(t *testing.T) {
	cases := map[string]LevelCell{
		".":  {},
		"?":  {Random: true},
		"#":  {Color: Stone, Suspended: true},
		"*":  {Color: Rainbow, Bomb: ColorBomb},
		"R":  {Color: 1},
		"Gh": {Color: 2, Bomb: Row},
		"Bv": {Color: 3, Bomb: Column},
		"Ya": {Color: 4, Bomb: Area3},
		"PA": {Color: 5, Bomb: Area5},
		"Ot": {Color: 6, Bomb: Target},
		"Rc": {Color: Rainbow, Bomb: ColorBomb},
	}
	for tok, want := range cases {
		got, err := ParseCell(tok)
		if err != nil {
			t.Fatalf("ParseCell(%q): %v", tok, err)
		}
		if got != want {
			t.Fatalf("ParseCell(%q) = %+v, want %+v", tok, got, want)
		}
	}
	for _, bad := range []string{"", "X", "Rz", "RGB"} {
		if _, err := ParseCell(bad); err == nil {
			t.Fatalf("ParseCell(%q) should fail", bad)
		}
	}
}

func TestStateFromLevel(t *testing.T) {
	lv := testLevel(t,
		"R G B",
		"? # Yh",
		"* . P",
	)
	if err := lv.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	st := NewState(lv, core.NewStreams(core.Default(), 1))
	g := st.Grid
	if g.Count() != 7 {
		t.Fatalf("expected 7 tiles, got %d", g.Count())
	}
	if !g.AtCR(1, 1).Flags.Has(FlagSuspended) {
		t.Fatalf("stone must be suspended")
	}
	if g.AtCR(2, 1).Bomb != Row {
		t.Fatalf("bomb suffix lost")
	}
	if got := g.Rows()[1]; got != ". # Yh" {
		t.Fatalf("row 1 = %q", got)
	}
	if g.AtCR(2, 2).Y != fx.FromInt(2) {
		t.Fatalf("continuous position not placed")
	}

	seen := map[uint64]bool{}
	for i := range g.Cells {
		if id := g.Cells[i].ID; id != 0 {
			if seen[id] {
				t.Fatalf("duplicate id %d", id)
			}
			seen[id] = true
		}
	}
}

func TestGridSwapAndClone(t *testing.T) {
	lv := testLevel(t, "R G B", "Y P O", "R G B")
	st := NewState(lv, core.NewStreams(core.Default(), 3))
	before := st.Grid.Hash()

	a, b := Position{0, 0}, Position{1, 0}
	st.Grid.Swap(a, b)
	if st.Grid.At(a).Color != 2 || st.Grid.At(a).X != 0 {
		t.Fatalf("swap did not move tile and position")
	}
	st.Grid.Swap(a, b)
	if st.Grid.Hash() != before {
		t.Fatalf("double swap must restore grid")
	}

	c, err := st.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	c.Grid.Clear(a)
	if st.Grid.At(a).IsEmpty() {
		t.Fatalf("clone shares grid memory")
	}
	if c.Streams.Gameplay().Uint64() != st.Streams.Gameplay().Uint64() {
		t.Fatalf("clone streams diverged")
	}
}

func TestPositionHelpers(t *testing.T) {
	p := Position{2, 3}
	if !p.Adjacent(Position{2, 4}) || !p.Adjacent(Position{1, 3}) {
		t.Fatalf("adjacent")
	}
	if p.Adjacent(Position{3, 4}) || p.Adjacent(p) {
		t.Fatalf("diagonal/self are not adjacent")
	}
	if !(Position{1, 9}).Less(Position{2, 0}) || !(Position{1, 0}).Less(Position{1, 1}) {
		t.Fatalf("lexicographic order")
	}
}

func TestLevelValidate(t *testing.T) {
	lv := testLevel(t, "R G B", "R G B", "R G B")
	lv.Colors = 2
	if err := lv.Validate(); err == nil {
		t.Fatalf("colors < 3 must fail")
	}
	lv.Colors = 3
	lv.ColorWeights = []int{1, 2}
	if err := lv.Validate(); err == nil {
		t.Fatalf("weights size mismatch must fail")
	}
	lv.ColorWeights = nil
	lv.Cells[0].Color = 5
	if err := lv.Validate(); err == nil {
		t.Fatalf("color beyond palette must fail")
	}
}

func TestSnapshotRestore(t *testing.T) {
	lv := testLevel(t, "R Gh #", "* . Y", "B P Oa")
	st := NewState(lv, core.NewStreams(core.Default(), 11))
	st.Score, st.Moves, st.Tick = 120, 3, 44
	st.Streams.Gameplay().Uint64()

	snap, err := st.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got, err := RestoreState(snap, core.Default())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got.Grid.Hash() != st.Grid.Hash() {
		t.Fatalf("restored grid differs:\n%s\nwant\n%s", got.Grid, st.Grid)
	}
	if !got.Grid.At(Position{2, 0}).Flags.Has(FlagSuspended) {
		t.Fatalf("obstacle lost suspended flag")
	}
	if got.Score != 120 || got.Moves != 3 || got.Tick != 44 || got.MoveLimit != 10 {
		t.Fatalf("counters not restored: %+v", got)
	}
	if got.NextID() != st.NextID() {
		t.Fatalf("tile ids diverged")
	}
	if got.Streams.Gameplay().Uint64() != st.Streams.Gameplay().Uint64() {
		t.Fatalf("streams diverged after restore")
	}

	st.Grid.At(Position{0, 0}).Flags |= FlagFalling
	if _, err := st.Snapshot(); err == nil {
		t.Fatalf("snapshot of unsettled board must fail")
	}
	snap.IDs = snap.IDs[:2]
	if _, err := RestoreState(snap, core.Default()); err == nil {
		t.Fatalf("short ids must fail")
	}
}
