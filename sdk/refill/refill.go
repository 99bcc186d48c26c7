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

// Package refill 在每欄頂端補入新方塊，並負責開局隨機格的填色。
//
// 顏色由 Predictor 決定；亂數一律來自 refill 子流，切換補牌策略不會擾動 gameplay 子流。
package refill

import (
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/fx"
)

// Context 補牌策略可參考的局面資訊。
type Context struct {
	Difficulty     float64
	MovesRemaining int // -1 表示不限步數
	GoalProgress   float64
	RecentFailures int
}

// ContextOf 由狀態組出 Context。
func ContextOf(st *board.State) Context {
	return Context{
		Difficulty:     st.Difficulty,
		MovesRemaining: st.MovesRemaining(),
		GoalProgress:   st.GoalProgress,
		RecentFailures: st.RecentFailures,
	}
}

// Predictor 決定 col 欄要補入的顏色。每個空的頂端格每 tick 呼叫一次。
type Predictor interface {
	Predict(g *board.Grid, col int, ctx Context, rng *core.Core) board.Color
}

// Cloner 帶內部狀態的 Predictor 實作此介面，引擎 fork 時各自持有一份。
type Cloner interface {
	Clone() Predictor
}

// Cursor 帶遊標的 Predictor 實作此介面，遊標會隨盤面快照保存。
type Cursor interface {
	Cursor() uint64
	Seek(n uint64)
}

// ClonePredictor 無狀態的 Predictor 直接共用。
func ClonePredictor(p Predictor) Predictor {
	if c, ok := p.(Cloner); ok {
		return c.Clone()
	}
	return p
}

// maxFillRerolls 開局填色避免三連與 2x2 的重抽上限
const maxFillRerolls = 32

// Generator 補牌器。
type Generator struct {
	Predictor Predictor
}

func New(p Predictor) *Generator {
	return &Generator{Predictor: p}
}

// Tick 依欄號 0..W-1 檢查頂端格，回傳本 tick 生成的方塊數。
//
// 新方塊預設從盤面上方一格（Y = -1）開始掉；若第 1 列的方塊正在掉落，
// 則緊跟在它上方一格並承接其速度，讓連續掉落不出現空隙。
func (gen *Generator) Tick(st *board.State, em *event.Emitter) int {
	g := st.Grid
	ctx := ContextOf(st)
	rng := st.Streams.Refill()
	spawned := 0
	for col := 0; col < g.W; col++ {
		top := g.AtCR(col, 0)
		if !top.IsEmpty() {
			continue
		}
		c := gen.Predictor.Predict(g, col, ctx, rng)
		*top = board.Tile{
			ID:    st.NextID(),
			Color: c,
			X:     fx.FromInt(col),
			Y:     -fx.One,
			Flags: board.FlagFalling,
		}
		if g.H > 1 {
			if below := g.AtCR(col, 1); below.Movable() && below.Falling() {
				top.Y = below.Y - fx.One
				top.VY = below.VY
			}
		}
		spawned++
		p := board.Position{Col: col, Row: 0}
		em.Emit(st.Tick, event.Event{Kind: event.TileSpawned, TileID: top.ID, Color: c, From: p, To: p})
	}
	return spawned
}

// Fill 填入關卡中的 Random 格，盡量不形成開局三連或 2x2 方塊。
func (gen *Generator) Fill(st *board.State, lv *board.Level) {
	g := st.Grid
	ctx := ContextOf(st)
	rng := st.Streams.Refill()
	for i, cell := range lv.Cells {
		if !cell.Random {
			continue
		}
		p := g.Pos(i)
		var c board.Color
		ok := false
		for try := 0; try <= maxFillRerolls && !ok; try++ {
			c = gen.Predictor.Predict(g, p.Col, ctx, rng)
			ok = fillable(g, p, c)
		}
		// 重抽用完時依序找第一個可用顏色，全都不行就保留最後一次抽到的
		for k := 1; !ok && k <= lv.Colors; k++ {
			if fillable(g, p, board.Color(k)) {
				c, ok = board.Color(k), true
			}
		}
		st.Spawn(p, c, board.None)
	}
}

func fillable(g *board.Grid, p board.Position, c board.Color) bool {
	return !MakesRun(g, p, c) && !makesSquare(g, p, c)
}

// makesSquare 回報在 p 放入 c 是否會補滿某個 2x2 同色方塊
func makesSquare(g *board.Grid, p board.Position, c board.Color) bool {
	if !c.IsNormal() {
		return false
	}
	same := func(col, row int) bool {
		if col < 0 || col >= g.W || row < 0 || row >= g.H {
			return false
		}
		t := g.AtCR(col, row)
		return t.Color == c && !t.Flags.Has(board.FlagSuspended)
	}
	for _, dx := range [2]int{-1, 1} {
		for _, dy := range [2]int{-1, 1} {
			if same(p.Col+dx, p.Row) && same(p.Col, p.Row+dy) && same(p.Col+dx, p.Row+dy) {
				return true
			}
		}
	}
	return false
}

// MakesRun 回報在 p 放入顏色 c 是否會與既有方塊形成 >= 3 的直線。
func MakesRun(g *board.Grid, p board.Position, c board.Color) bool {
	if !c.IsNormal() {
		return false
	}
	same := func(col, row int) bool {
		if col < 0 || col >= g.W || row < 0 || row >= g.H {
			return false
		}
		t := g.AtCR(col, row)
		return t.Color == c && !t.Flags.Has(board.FlagSuspended)
	}
	h := 1
	for x := p.Col - 1; same(x, p.Row); x-- {
		h++
	}
	for x := p.Col + 1; same(x, p.Row); x++ {
		h++
	}
	if h >= 3 {
		return true
	}
	v := 1
	for y := p.Row - 1; same(p.Col, y); y-- {
		v++
	}
	for y := p.Row + 1; same(p.Col, y); y++ {
		v++
	}
	return v >= 3
}
