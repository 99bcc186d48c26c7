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

package bomb

import (
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/core"
)

// affected 單一炸彈的影響範圍（不含 at 本身以外的去重，呼叫端負責略過已清除格）。
func (p *Processor) affected(g *board.Grid, kind board.BombKind, at board.Position, rng *core.Core, dst []int) []int {
	switch kind {
	case board.Row:
		return appendRow(g, at.Row, dst)
	case board.Column:
		return appendCol(g, at.Col, dst)
	case board.Area3:
		return appendArea(g, at, 1, dst)
	case board.Area5:
		return appendArea(g, at, 2, dst)
	case board.ColorBomb:
		return appendColor(g, p.dominant(g), dst)
	case board.Target:
		if j := p.randomTarget(g, g.Idx(at), rng); j >= 0 {
			dst = append(dst, j)
		}
		return dst
	}
	return dst
}

func appendRow(g *board.Grid, row int, dst []int) []int {
	if row < 0 || row >= g.H {
		return dst
	}
	for c := 0; c < g.W; c++ {
		dst = append(dst, row*g.W+c)
	}
	return dst
}

func appendCol(g *board.Grid, col int, dst []int) []int {
	if col < 0 || col >= g.W {
		return dst
	}
	for r := 0; r < g.H; r++ {
		dst = append(dst, r*g.W+col)
	}
	return dst
}

// appendArea 以 at 為中心、邊長 2*radius+1 的方塊，超出盤面的部分截掉
func appendArea(g *board.Grid, at board.Position, radius int, dst []int) []int {
	for r := at.Row - radius; r <= at.Row+radius; r++ {
		if r < 0 || r >= g.H {
			continue
		}
		for c := at.Col - radius; c <= at.Col+radius; c++ {
			if c < 0 || c >= g.W {
				continue
			}
			dst = append(dst, r*g.W+c)
		}
	}
	return dst
}

func appendColor(g *board.Grid, color board.Color, dst []int) []int {
	if !color.IsNormal() {
		return dst
	}
	for i := range g.Cells {
		if g.Cells[i].Color == color {
			dst = append(dst, i)
		}
	}
	return dst
}

func appendAll(g *board.Grid, dst []int) []int {
	for i := range g.Cells {
		dst = append(dst, i)
	}
	return dst
}

// dominant 盤面上剩餘數量最多的一般顏色；同數取編號小者，沒有一般顏色時回傳 Empty。
func (p *Processor) dominant(g *board.Grid) board.Color {
	var counts [board.MaxColors + 1]int
	for i := range g.Cells {
		if !p.clearable(g, i) {
			continue
		}
		if c := g.Cells[i].Color; c.IsNormal() {
			counts[c]++
		}
	}
	best := board.Empty
	for c := board.Color(1); c <= board.MaxColors; c++ {
		if counts[c] > 0 && (best == board.Empty || counts[c] > counts[best]) {
			best = c
		}
	}
	return best
}

// targets 收集 self 以外可被清除的格子
func (p *Processor) targets(g *board.Grid, self int) []int {
	p.pick = p.pick[:0]
	for i := range g.Cells {
		if i != self && p.clearable(g, i) {
			p.pick = append(p.pick, i)
		}
	}
	return p.pick
}

// randomTarget 以 gameplay 子流挑一個 self 以外的非空格，沒有候選時回傳 -1
func (p *Processor) randomTarget(g *board.Grid, self int, rng *core.Core) int {
	return rng.Pick(p.targets(g, self))
}
