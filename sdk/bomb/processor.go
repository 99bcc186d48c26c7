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

// Package bomb 清除形狀、生成炸彈，並以 worklist 處理連鎖引爆。
//
// 炸彈生成點在同一輪內受保護：不會被同輪的其他清除或引爆波及。
// 被固定（Suspended）的方塊不受任何引爆影響。
package bomb

import (
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/buf"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/match"
	"github.com/zintix-labs/cascadelab/sdk/score"
)

// Result 一次處理的統計。
type Result struct {
	Cleared      int
	BombsCreated int
	Detonations  int
	Combos       int
	Score        int64
}

func (r *Result) Add(o Result) {
	r.Cleared += o.Cleared
	r.BombsCreated += o.BombsCreated
	r.Detonations += o.Detonations
	r.Combos += o.Combos
	r.Score += o.Score
}

// Processor 非併發安全；每個 Engine 持有一個。
type Processor struct {
	scorer score.Scorer

	cleared   buf.Bitset
	protected buf.Bitset
	queued    buf.Bitset
	work      buf.CellQueue
	hits      []int
	pick      []int
}

func New(s score.Scorer) *Processor {
	if s == nil {
		s = score.DefaultTable()
	}
	return &Processor{scorer: s}
}

func (p *Processor) Scorer() score.Scorer { return p.scorer }

func (p *Processor) reset(g *board.Grid) {
	n := g.W * g.H
	p.cleared.Resize(n)
	p.protected.Resize(n)
	p.queued.Resize(n)
	p.work.Reset()
}

// Process 清除本輪偵測到的全部形狀。
//
// 先計分並把所有格子排入 worklist，再把炸彈生成點改寫為炸彈（同一個 tile id），
// 最後清空 worklist；清到帶炸彈的格子時計算其影響範圍並排入。
func (p *Processor) Process(st *board.State, shapes []*match.Shape, em *event.Emitter) Result {
	g := st.Grid
	p.reset(g)
	var res Result
	for _, s := range shapes {
		sc := p.scorer.ScoreMatch(s)
		res.Score += sc
		e := event.Event{Kind: event.MatchCleared, Color: s.Color, Bomb: s.Bomb, Other: uint64(s.Size()), Score: sc}
		if s.HasOrigin {
			e.From, e.To = s.Origin, s.Origin
		} else if len(s.Cells) > 0 {
			e.From = g.Pos(s.Cells[0])
			e.To = e.From
		}
		em.Emit(st.Tick, e)
		for _, i := range s.Cells {
			p.push(i)
		}
		if s.HasOrigin && s.Bomb != board.None {
			p.protected.Set(g.Idx(s.Origin))
		}
	}
	for _, s := range shapes {
		if !s.HasOrigin || s.Bomb == board.None {
			continue
		}
		t := g.At(s.Origin)
		t.Bomb = s.Bomb
		if s.Bomb == board.ColorBomb {
			t.Color = board.Rainbow
		} else {
			t.Color = s.Color
		}
		res.BombsCreated++
		em.Emit(st.Tick, event.Event{Kind: event.BombCreated, TileID: t.ID, Color: t.Color, Bomb: t.Bomb, From: s.Origin, To: s.Origin})
	}
	p.drain(st, em, &res)
	st.Score += res.Score
	return res
}

// Detonate 引爆 at 上的炸彈（玩家點擊）。at 上沒有炸彈時什麼都不做。
func (p *Processor) Detonate(st *board.State, at board.Position, em *event.Emitter) Result {
	g := st.Grid
	var res Result
	if !g.InBounds(at) || g.At(at).Bomb == board.None {
		return res
	}
	p.reset(g)
	p.push(g.Idx(at))
	p.drain(st, em, &res)
	st.Score += res.Score
	return res
}

func (p *Processor) push(i int) {
	if p.queued.Has(i) {
		return
	}
	p.queued.Set(i)
	p.work.Push(i)
}

// clearable 尚可被清除的格子
func (p *Processor) clearable(g *board.Grid, i int) bool {
	t := &g.Cells[i]
	return !t.IsEmpty() && !t.Flags.Has(board.FlagSuspended) && !p.cleared.Has(i) && !p.protected.Has(i)
}

func (p *Processor) drain(st *board.State, em *event.Emitter, res *Result) {
	g := st.Grid
	rng := st.Streams.Gameplay()
	for {
		i, ok := p.work.Pop()
		if !ok {
			return
		}
		if !p.clearable(g, i) {
			continue
		}
		t := &g.Cells[i]
		pos := g.Pos(i)
		p.cleared.Set(i)
		if t.Bomb != board.None {
			p.detonate(st, pos, t.Bomb, em, res, rng)
		}
		p.destroy(st, i, em, res)
	}
}

// detonate 計算 kind 在 at 的影響範圍並排入 worklist。at 本身已標記為清除。
func (p *Processor) detonate(st *board.State, at board.Position, kind board.BombKind, em *event.Emitter, res *Result, rng *core.Core) {
	g := st.Grid
	t := g.At(at)
	p.hits = p.affected(g, kind, at, rng, p.hits[:0])
	fresh := 0
	for _, j := range p.hits {
		if p.clearable(g, j) && !p.queued.Has(j) {
			fresh++
		}
		if p.clearable(g, j) {
			p.push(j)
		}
	}
	sc := p.scorer.ScoreDetonation(kind, fresh)
	res.Score += sc
	res.Detonations++
	em.Emit(st.Tick, event.Event{Kind: event.BombActivated, TileID: t.ID, Color: t.Color, Bomb: kind, From: at, To: at, Other: uint64(fresh), Score: sc})
}

func (p *Processor) destroy(st *board.State, i int, em *event.Emitter, res *Result) {
	g := st.Grid
	t := &g.Cells[i]
	pos := g.Pos(i)
	em.Emit(st.Tick, event.Event{Kind: event.TileDestroyed, TileID: t.ID, Color: t.Color, Bomb: t.Bomb, From: pos, To: pos})
	*t = board.Tile{}
	res.Cleared++
}
