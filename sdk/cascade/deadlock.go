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
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/bomb"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/match"
)

// HasValidMove 盤面上是否存在可行的一步：可點擊的炸彈、特殊組合，或交換後成形的相鄰對。
func (e *Engine) HasValidMove() bool {
	_, _, ok := FindMove(e.st.Grid)
	return ok
}

// FindMove 依 row-major 順序回傳第一個可行交換；盤面上有炸彈時回傳 (p, p, true)。
func FindMove(g *board.Grid) (board.Position, board.Position, bool) {
	for i := range g.Cells {
		t := &g.Cells[i]
		if t.Movable() && t.Bomb != board.None {
			p := g.Pos(i)
			return p, p, true
		}
	}
	for i := range g.Cells {
		a := g.Pos(i)
		for _, b := range [2]board.Position{{Col: a.Col + 1, Row: a.Row}, {Col: a.Col, Row: a.Row + 1}} {
			if SwapMatches(g, a, b) {
				return a, b, true
			}
		}
	}
	return board.Position{}, board.Position{}, false
}

// SwapMatches 試交換 a、b 後是否會觸發組合或形成形狀；盤面在回傳前還原。
func SwapMatches(g *board.Grid, a, b board.Position) bool {
	if !g.InBounds(a) || !g.InBounds(b) || !a.Adjacent(b) {
		return false
	}
	ta, tb := g.At(a), g.At(b)
	if !ta.Movable() || !tb.Movable() {
		return false
	}
	if bomb.IsCombo(ta, tb) {
		return true
	}
	if ta.Color == tb.Color {
		return false
	}
	g.Swap(a, b)
	ok := match.MatchesAt(g, a) || match.MatchesAt(g, b)
	g.Swap(a, b)
	return ok
}

// Shuffle 以 gameplay 子流重排所有一般方塊的顏色（炸彈、萬用色與固定方塊不動），
// 直到出現可行步；ShuffleRetries 次都失敗時還原原本的顏色並回傳 false。
func (e *Engine) Shuffle() bool {
	e.phase = Shuffling
	g := e.st.Grid
	idx := make([]int, 0, len(g.Cells))
	orig := make([]board.Color, 0, len(g.Cells))
	for i := range g.Cells {
		t := &g.Cells[i]
		if t.Movable() && !t.Special() && t.Color.IsNormal() {
			idx = append(idx, i)
			orig = append(orig, t.Color)
		}
	}
	if len(idx) < 2 {
		return false
	}
	rng := e.st.Streams.Gameplay()
	perm := make([]int, len(idx))
	tries := max(e.cfg.ShuffleRetries, 1)
	for try := 1; try <= tries; try++ {
		rng.Perm(perm)
		for k, i := range idx {
			g.Cells[i].Color = orig[perm[k]]
		}
		if e.HasValidMove() {
			e.emit(event.BoardShuffled, event.Event{Other: uint64(try)})
			return true
		}
	}
	for k, i := range idx {
		g.Cells[i].Color = orig[k]
	}
	return false
}
