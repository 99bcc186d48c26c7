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

package refill

import (
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/sampler"
)

// WeightedPredictor 依關卡顏色權重抽色。
//
// Difficulty ∈ [0,1] 為「抽到會延長該欄頂端同色對子的顏色時重抽」的機率：
// 越難，免費連鎖越少。
type WeightedPredictor struct {
	table  *sampler.AliasTable
	colors int
}

// NewWeightedPredictor weights 為空時使用均勻權重。
func NewWeightedPredictor(colors int, weights []int) (*WeightedPredictor, error) {
	if colors < 1 || colors > board.MaxColors {
		return nil, errs.Fatalf("refill: colors must be in [1,%d], got %d", board.MaxColors, colors)
	}
	if len(weights) == 0 {
		weights = make([]int, colors)
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != colors {
		return nil, errs.Fatalf("refill: %d weights for %d colors", len(weights), colors)
	}
	at, err := sampler.NewAliasTable(weights)
	if err != nil {
		return nil, errs.Wrap(err, "refill: build color table")
	}
	return &WeightedPredictor{table: at, colors: colors}, nil
}

func (p *WeightedPredictor) Colors() int { return p.colors }

func (p *WeightedPredictor) Predict(g *board.Grid, col int, ctx Context, rng *core.Core) board.Color {
	c := board.Color(p.table.Pick(rng) + 1)
	if ctx.Difficulty > 0 && topPair(g, col) == c {
		if rng.Float64() < ctx.Difficulty {
			c = board.Color(p.table.Pick(rng) + 1)
		}
	}
	return c
}

// topPair 回傳該欄頂端往下最先遇到的兩個方塊的共同顏色，不成對回傳 Empty。
func topPair(g *board.Grid, col int) board.Color {
	var first board.Color
	n := 0
	for row := 0; row < g.H; row++ {
		t := g.AtCR(col, row)
		if t.IsEmpty() {
			continue
		}
		if !t.Color.IsNormal() {
			return board.Empty
		}
		if n == 0 {
			first = t.Color
			n++
			continue
		}
		if t.Color == first {
			return first
		}
		return board.Empty
	}
	return board.Empty
}

// CyclePredictor 依序循環給出固定顏色，不消耗亂數（腳本化關卡、測試用）。
type CyclePredictor struct {
	Colors []board.Color
	next   int
}

func (p *CyclePredictor) Predict(*board.Grid, int, Context, *core.Core) board.Color {
	if len(p.Colors) == 0 {
		return board.Empty
	}
	c := p.Colors[p.next%len(p.Colors)]
	p.next++
	return c
}

func (p *CyclePredictor) Cursor() uint64 { return uint64(p.next) }
func (p *CyclePredictor) Seek(n uint64)  { p.next = int(n) }

func (p *CyclePredictor) Clone() Predictor {
	c := *p
	c.Colors = append([]board.Color(nil), p.Colors...)
	return &c
}
