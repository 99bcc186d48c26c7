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

// Package gravity 以固定時間步長推進方塊的連續掉落。
//
// 每個 tick：
//  1. 清空預約集合，以 gameplay 子流重排欄位處理順序（避免斜滑永遠偏左）。
//  2. 每欄由下往上，對每個受重力影響的方塊 Decide → 積分 → 夾住 → sync。
//  3. sync 是唯一維持「grid row == floor(Y+0.5)」的地方：Y 跨過半格且目標格為空時搬移格子。
//
// 預約（reservation）保證同一 tick 內不會有兩個方塊以同一格為目標，不需要第二輪修正。
package gravity

import (
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/buf"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/fx"
)

// Config 物理參數（定點數）。
type Config struct {
	Dt       fx.Fixed // 每 tick 秒數
	Gravity  fx.Fixed // 格/秒^2
	MaxSpeed fx.Fixed // 格/秒，MaxSpeed*Dt 必須小於 1 格
}

func DefaultConfig() Config {
	return Config{
		Dt:       fx.FromRatio(1, 60),
		Gravity:  fx.FromInt(60),
		MaxSpeed: fx.FromInt(30),
	}
}

// Valid 拒絕一個 tick 可能跨過整格的參數。
func (c Config) Valid() error {
	if c.Dt <= 0 || c.Gravity <= 0 || c.MaxSpeed <= 0 {
		return errs.NewFatal("gravity: dt, gravity and max speed must be positive")
	}
	if fx.Mul(c.MaxSpeed, c.Dt) >= fx.One {
		return errs.NewFatal("gravity: max speed * dt must be < 1 cell")
	}
	return nil
}

// DecisionKind 單一方塊在本 tick 的行為。
type DecisionKind uint8

const (
	Stay DecisionKind = iota
	Fall
	Chase
	Wait
	Slide
)

var decisionNames = [...]string{"stay", "fall", "chase", "wait", "slide"}

func (k DecisionKind) String() string {
	if int(k) < len(decisionNames) {
		return decisionNames[k]
	}
	return "unknown"
}

// Decision 是 Decide 的輸出：目標格、承接的速度、是否已預約目標。
type Decision struct {
	Kind     DecisionKind
	Target   board.Position
	Velocity fx.Fixed
	Reserved bool
}

// Resolver 重力解算器。緩衝屬於實例，不可跨引擎共用。
type Resolver struct {
	cfg      Config
	dv       fx.Fixed
	reserved buf.Bitset
	done     buf.Marks
	order    []int
}

func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg, dv: fx.Mul(cfg.Gravity, cfg.Dt)}
}

func (r *Resolver) Config() Config { return r.cfg }

// Tick 推進一個 tick，回傳本 tick 有移動（Fall/Chase/Slide）的方塊數。
func (r *Resolver) Tick(st *board.State, em *event.Emitter) int {
	g := st.Grid
	n := g.W * g.H
	r.reserved.Resize(n)
	r.done.Resize(n)
	r.done.Next()

	if cap(r.order) < g.W {
		r.order = make([]int, g.W)
	}
	r.order = r.order[:g.W]
	rng := st.Streams.Gameplay()
	rng.Perm(r.order)

	active := 0
	for _, col := range r.order {
		for row := g.H - 1; row >= 0; row-- {
			p := board.Position{Col: col, Row: row}
			if r.done.Marked(g.Idx(p)) {
				continue
			}
			t := g.At(p)
			if !t.Movable() {
				continue
			}
			t.Flags &^= board.FlagReserved
			d := r.Decide(g, p, rng)
			if r.apply(st, p, d, em) {
				active++
			}
		}
	}
	return active
}

// Decide 決定 p 上方塊本 tick 的行為，必要時預約目標格。
func (r *Resolver) Decide(g *board.Grid, p board.Position, rng *core.Core) Decision {
	t := g.At(p)
	rest := fx.FromInt(p.Row)

	// 斜滑中：目標格仍可用就繼續
	if t.Flags.Has(board.FlagSliding) {
		tgt := t.Slide
		if tgt == p || (g.InBounds(tgt) && g.At(tgt).IsEmpty() && !r.reserved.Has(g.Idx(tgt))) {
			r.reserve(g, tgt, t)
			return Decision{Kind: Slide, Target: tgt, Velocity: t.VY, Reserved: true}
		}
		t.Flags &^= board.FlagSliding
		t.X = fx.FromInt(p.Col)
	}

	if p.Row+1 < g.H {
		below := board.Position{Col: p.Col, Row: p.Row + 1}
		bt := g.At(below)
		switch {
		case bt.IsEmpty() && !r.reserved.Has(g.Idx(below)):
			low := below
			for next := (board.Position{Col: p.Col, Row: below.Row + 1}); next.Row < g.H; next.Row++ {
				if !g.At(next).IsEmpty() || r.reserved.Has(g.Idx(next)) {
					break
				}
				low = next
			}
			r.reserve(g, low, t)
			return Decision{Kind: Fall, Target: low, Velocity: t.VY, Reserved: true}

		case bt.Movable() && bt.Falling():
			if t.Falling() || t.Y < rest {
				return Decision{Kind: Chase, Target: p, Velocity: bt.VY}
			}
			return Decision{Kind: Wait, Target: p}

		case bt.Flags.Has(board.FlagSuspended) && t.Y >= rest:
			if tgt, ok := r.slideTarget(g, p, rng); ok {
				r.reserve(g, tgt, t)
				return Decision{Kind: Slide, Target: tgt, Velocity: t.VY, Reserved: true}
			}
		}
	}

	if t.Y < rest {
		// 已進入本格但尚未到位
		return Decision{Kind: Fall, Target: p, Velocity: t.VY}
	}
	return Decision{Kind: Stay, Target: p}
}

func (r *Resolver) reserve(g *board.Grid, p board.Position, t *board.Tile) {
	r.reserved.Set(g.Idx(p))
	t.Flags |= board.FlagReserved
}

// slideTarget 左右斜下兩格都合法時由 gameplay 子流決定。
func (r *Resolver) slideTarget(g *board.Grid, p board.Position, rng *core.Core) (board.Position, bool) {
	var cand [2]board.Position
	n := 0
	for _, dc := range [2]int{-1, 1} {
		q := board.Position{Col: p.Col + dc, Row: p.Row + 1}
		if r.canSlideInto(g, q) {
			cand[n] = q
			n++
		}
	}
	switch n {
	case 0:
		return board.Position{}, false
	case 1:
		return cand[0], true
	}
	return cand[rng.Coin()], true
}

// canSlideInto 垂直優先規則：目標格為空且未預約、正上方為空，
// 且上方整欄在遇到障礙物之前沒有任何受重力方塊，也不通到補牌邊。
func (r *Resolver) canSlideInto(g *board.Grid, q board.Position) bool {
	if !g.InBounds(q) || !g.At(q).IsEmpty() || r.reserved.Has(g.Idx(q)) {
		return false
	}
	above := q.Row - 1
	if !g.AtCR(q.Col, above).IsEmpty() {
		return false
	}
	for row := above - 1; row >= 0; row-- {
		t := g.AtCR(q.Col, row)
		if t.IsEmpty() {
			continue
		}
		return t.Flags.Has(board.FlagSuspended)
	}
	return false
}

// apply 積分 + 夾住 + sync。回傳方塊本 tick 是否有移動。
func (r *Resolver) apply(st *board.State, p board.Position, d Decision, em *event.Emitter) bool {
	g := st.Grid
	t := g.At(p)

	switch d.Kind {
	case Stay:
		wasFalling := t.Falling()
		t.Place(p)
		t.Flags &^= board.FlagFalling | board.FlagSliding
		if wasFalling {
			em.Emit(st.Tick, event.Event{Kind: event.TileLanded, TileID: t.ID, Color: t.Color, Bomb: t.Bomb, From: p, To: p})
		}
		return false
	case Wait:
		t.VY = 0
		return false
	}

	t.Flags |= board.FlagFalling
	vy := t.VY + r.dv
	if d.Kind == Chase && vy < d.Velocity {
		vy = d.Velocity
	}
	vy = fx.Min(vy, r.cfg.MaxSpeed)
	dy := fx.Mul(vy, r.cfg.Dt)
	y := t.Y + dy
	land := false

	switch d.Kind {
	case Fall:
		ty := fx.FromInt(d.Target.Row)
		if y >= ty && !r.fallingAt(g, d.Target.Col, d.Target.Row+1) {
			y, land = ty, true
		}
	case Slide:
		t.Flags |= board.FlagSliding
		t.Slide = d.Target
		tx, ty := fx.FromInt(d.Target.Col), fx.FromInt(d.Target.Row)
		if t.X < tx {
			t.X = fx.Min(t.X+dy, tx)
		} else {
			t.X = fx.Max(t.X-dy, tx)
		}
		if y >= ty {
			y, t.X = ty, tx
			t.Flags &^= board.FlagSliding
			// 目標格下方仍空就保留速度，下個 tick 直接接著掉
			if d.Target.Row+1 >= g.H || !g.AtCR(d.Target.Col, d.Target.Row+1).IsEmpty() {
				land = true
			}
		}
	}

	if d.Kind != Slide {
		if nb := r.nearestBelow(g, p); nb != nil {
			if limit := nb.Y - fx.One; y >= limit {
				y = limit
				if nb.Movable() && nb.Falling() {
					vy = fx.Min(vy, nb.VY)
				} else {
					land = true
				}
			}
		}
	}

	if land {
		vy = 0
		t.Flags &^= board.FlagFalling | board.FlagSliding
	}
	t.Y, t.VY = y, vy

	at := r.sync(st, p, em)
	if land {
		lt := g.At(at)
		em.Emit(st.Tick, event.Event{Kind: event.TileLanded, TileID: lt.ID, Color: lt.Color, Bomb: lt.Bomb, From: at, To: at})
	}
	return true
}

func (r *Resolver) fallingAt(g *board.Grid, col, row int) bool {
	if row >= g.H {
		return false
	}
	t := g.AtCR(col, row)
	return t.Movable() && t.Falling()
}

// nearestBelow 同欄下方最近的方塊（含障礙物），沒有則回傳 nil。
func (r *Resolver) nearestBelow(g *board.Grid, p board.Position) *board.Tile {
	for row := p.Row + 1; row < g.H; row++ {
		if t := g.AtCR(p.Col, row); !t.IsEmpty() {
			return t
		}
	}
	return nil
}

// sync 依連續座標搬移格子；補牌列 Y ∈ [-1,-0.5) 仍歸在第 0 列。
func (r *Resolver) sync(st *board.State, p board.Position, em *event.Emitter) board.Position {
	g := st.Grid
	t := g.At(p)
	dst := board.Position{Col: p.Col, Row: max(t.Y.Cell(), 0)}
	if dst.Row > p.Row && t.X != fx.FromInt(p.Col) {
		// 斜滑：X 與 Y 同步前進，跨半格時直接進入斜下目標格
		dst.Col = t.Slide.Col
	}
	if dst == p {
		return p
	}
	if !g.InBounds(dst) || !g.At(dst).IsEmpty() {
		// 目標格被佔：停在半格邊界前
		t.Y = fx.Min(t.Y, fx.FromInt(p.Row)+fx.Half-1)
		t.X = fx.FromInt(p.Col)
		t.Flags &^= board.FlagSliding
		return p
	}
	moved := *t
	g.Clear(p)
	*g.At(dst) = moved
	r.done.Mark(g.Idx(dst))
	em.Emit(st.Tick, event.Event{Kind: event.TileMoved, TileID: moved.ID, Color: moved.Color, Bomb: moved.Bomb, From: p, To: dst})
	return dst
}

// Falling 回報盤面上是否仍有方塊在空中。
func Falling(g *board.Grid) bool { return g.AnyFalling() }
