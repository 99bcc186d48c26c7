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
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/sampler"
)

// side 組合中的一方（方塊已被移除，只保留必要資訊）
type side struct {
	pos   board.Position
	kind  board.BombKind
	color board.Color
}

type comboCtx struct {
	p     *Processor
	st    *board.State
	em    *event.Emitter
	res   *Result
	rng   *core.Core
	at    board.Position // 範圍效果的中心：交換的目的格
	fresh int
}

// comboFn x 為登錄時的第一個種類，y 為第二個；範圍中心一律用 c.at
type comboFn func(c *comboCtx, x, y side)

var comboTable [board.KindCount][board.KindCount]comboFn

// register 同時登錄 (a,b) 與 (b,a)，後者呼叫時兩方對調
func register(a, b board.BombKind, fn comboFn) {
	comboTable[a][b] = fn
	if a != b {
		comboTable[b][a] = func(c *comboCtx, x, y side) { fn(c, y, x) }
	}
}

func init() {
	lines := []board.BombKind{board.Row, board.Column}
	areas := []board.BombKind{board.Area3, board.Area5}
	bombs := []board.BombKind{board.Row, board.Column, board.Area3, board.Area5, board.Target}

	register(board.ColorBomb, board.ColorBomb, comboBoard)
	register(board.ColorBomb, board.None, comboColor)
	for _, k := range bombs {
		register(board.ColorBomb, k, comboConvert)
	}
	for _, a := range lines {
		for _, b := range lines {
			register(a, b, comboCross)
		}
		for _, b := range areas {
			register(a, b, comboWideCross)
		}
	}
	register(board.Area3, board.Area3, comboArea(2))
	register(board.Area5, board.Area3, comboArea(3))
	register(board.Area5, board.Area5, comboArea(3))
	register(board.Target, board.Target, comboTargets)
	for _, k := range []board.BombKind{board.Row, board.Column, board.Area3, board.Area5} {
		register(k, board.Target, comboCarry)
	}
}

// IsCombo 回報兩個方塊交換在一起是否觸發特殊組合。
func IsCombo(a, b *board.Tile) bool {
	if a.Flags.Has(board.FlagSuspended) || b.Flags.Has(board.FlagSuspended) {
		return false
	}
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return comboTable[a.Bomb][b.Bomb] != nil
}

// Combo 觸發 a、b 兩格（已交換後的位置）的特殊組合。
// 兩個方塊本身被消耗，不再各自引爆；效果波及的其他炸彈照常連鎖。
func (p *Processor) Combo(st *board.State, a, b board.Position, em *event.Emitter) Result {
	g := st.Grid
	var res Result
	if !g.InBounds(a) || !g.InBounds(b) {
		return res
	}
	ta, tb := g.At(a), g.At(b)
	if !IsCombo(ta, tb) {
		return res
	}
	fn := comboTable[ta.Bomb][tb.Bomb]
	x := side{pos: a, kind: ta.Bomb, color: ta.Color}
	y := side{pos: b, kind: tb.Bomb, color: tb.Color}

	p.reset(g)
	sc := p.scorer.ScoreSpecialCombo(x.color, x.kind, y.color, y.kind)
	res.Score += sc
	res.Combos++
	em.Emit(st.Tick, event.Event{Kind: event.ComboTriggered, TileID: ta.ID, Color: ta.Color, Bomb: x.kind, From: a, To: b, Other: tb.ID, Score: sc})

	for _, s := range []side{x, y} {
		i := g.Idx(s.pos)
		if s.kind != board.None {
			res.Detonations++
		}
		p.cleared.Set(i)
		p.queued.Set(i)
		p.destroy(st, i, em, &res)
	}

	c := &comboCtx{p: p, st: st, em: em, res: &res, rng: st.Streams.Gameplay(), at: b}
	fn(c, x, y)
	res.Score += p.scorer.ScoreDetonation(x.kind, c.fresh)
	p.drain(st, em, &res)
	st.Score += res.Score
	return res
}

func (c *comboCtx) push(j int) {
	if !c.p.clearable(c.st.Grid, j) || c.p.queued.Has(j) {
		return
	}
	c.p.push(j)
	c.fresh++
}

func (c *comboCtx) pushAll(cells []int) {
	for _, j := range cells {
		c.push(j)
	}
}

func comboBoard(c *comboCtx, _, _ side) {
	c.p.hits = appendAll(c.st.Grid, c.p.hits[:0])
	c.pushAll(c.p.hits)
}

// comboColor 萬用色 + 一般方塊：清除該色全部
func comboColor(c *comboCtx, _, y side) {
	c.p.hits = appendColor(c.st.Grid, y.color, c.p.hits[:0])
	c.pushAll(c.p.hits)
}

// comboConvert 萬用色 + 炸彈：把該色方塊全部變成 y 的炸彈種類再一起引爆
func comboConvert(c *comboCtx, _, y side) {
	g := c.st.Grid
	c.p.hits = appendColor(g, y.color, c.p.hits[:0])
	for _, j := range c.p.hits {
		if !c.p.clearable(g, j) {
			continue
		}
		t := &g.Cells[j]
		if t.Bomb == board.None {
			t.Bomb = y.kind
			pos := g.Pos(j)
			c.res.BombsCreated++
			c.em.Emit(c.st.Tick, event.Event{Kind: event.BombCreated, TileID: t.ID, Color: t.Color, Bomb: t.Bomb, From: pos, To: pos})
		}
		c.push(j)
	}
}

// comboCross 兩個直線炸彈：清整列與整欄
func comboCross(c *comboCtx, _, _ side) {
	g := c.st.Grid
	c.p.hits = appendRow(g, c.at.Row, c.p.hits[:0])
	c.p.hits = appendCol(g, c.at.Col, c.p.hits)
	c.pushAll(c.p.hits)
}

// comboWideCross 直線 + 範圍：清 3 列與 3 欄
func comboWideCross(c *comboCtx, _, _ side) {
	g := c.st.Grid
	c.p.hits = c.p.hits[:0]
	for d := -1; d <= 1; d++ {
		c.p.hits = appendRow(g, c.at.Row+d, c.p.hits)
		c.p.hits = appendCol(g, c.at.Col+d, c.p.hits)
	}
	c.pushAll(c.p.hits)
}

func comboArea(radius int) comboFn {
	return func(c *comboCtx, _, _ side) {
		c.p.hits = appendArea(c.st.Grid, c.at, radius, c.p.hits[:0])
		c.pushAll(c.p.hits)
	}
}

// comboTargets 兩個 Target：隨機清除三格（各自若為炸彈照常連鎖）
func comboTargets(c *comboCtx, _, _ side) {
	picks := sampler.SampleDistinct(c.rng, c.p.targets(c.st.Grid, -1), 3)
	c.pushAll(picks)
}

// comboCarry 直線/範圍 + Target：在隨機一格上以 x 的種類引爆
func comboCarry(c *comboCtx, x, _ side) {
	g := c.st.Grid
	j := c.p.randomTarget(g, -1, c.rng)
	if j < 0 {
		return
	}
	c.p.hits = c.p.affected(g, x.kind, g.Pos(j), c.rng, c.p.hits[:0])
	c.p.hits = append(c.p.hits, j)
	c.pushAll(c.p.hits)
}
