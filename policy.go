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

package cascadelab

import (
	"fmt"

	"github.com/zintix-labs/cascadelab/dto"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/core"
)

// Policy 模擬器的自動玩家：看盤面決定下一步。
//
// rng 為模擬器另外配置的決策用亂數，與引擎子流無關，所以換 Policy 不會改變同一步的結果。
// 回傳 false 表示找不到可行操作。
type Policy interface {
	Name() string
	Next(e *cascade.Engine, rng *core.Core) (dto.Action, bool)
}

const (
	PolicyFirst  = "first"
	PolicyRandom = "random"
	PolicyGreedy = "greedy"
)

// PolicyNames 內建策略名稱。
func PolicyNames() []string {
	return []string{PolicyFirst, PolicyRandom, PolicyGreedy}
}

// NewPolicy 依名稱建立內建策略。
func NewPolicy(name string) (Policy, error) {
	switch name {
	case "", PolicyFirst:
		return FirstPolicy{}, nil
	case PolicyRandom:
		return &RandomPolicy{}, nil
	case PolicyGreedy:
		return &GreedyPolicy{}, nil
	default:
		return nil, errs.NewWarn(fmt.Sprintf("unknown policy: %s", name))
	}
}

// ValidActions 依 row-major 列出所有會生效的操作：先是可點擊的炸彈，再是會成形或觸發組合的交換。
func ValidActions(g *board.Grid, dst []dto.Action) []dto.Action {
	dst = dst[:0]
	for i := range g.Cells {
		t := &g.Cells[i]
		if t.Movable() && t.Bomb != board.None {
			dst = append(dst, dto.Activate(g.Pos(i)))
		}
	}
	for i := range g.Cells {
		a := g.Pos(i)
		for _, b := range [2]board.Position{{Col: a.Col + 1, Row: a.Row}, {Col: a.Col, Row: a.Row + 1}} {
			if cascade.SwapMatches(g, a, b) {
				dst = append(dst, dto.Swap(a, b))
			}
		}
	}
	return dst
}

// FirstPolicy 永遠選 cascade.FindMove 的結果，完全不耗亂數。
type FirstPolicy struct{}

func (FirstPolicy) Name() string { return PolicyFirst }

func (FirstPolicy) Next(e *cascade.Engine, _ *core.Core) (dto.Action, bool) {
	a, b, ok := cascade.FindMove(e.State().Grid)
	if !ok {
		return dto.Action{}, false
	}
	if a == b {
		return dto.Activate(a), true
	}
	return dto.Swap(a, b), true
}

// RandomPolicy 在所有可行操作中均勻抽一個。
type RandomPolicy struct {
	buf []dto.Action
}

func (p *RandomPolicy) Name() string { return PolicyRandom }

func (p *RandomPolicy) Next(e *cascade.Engine, rng *core.Core) (dto.Action, bool) {
	p.buf = ValidActions(e.State().Grid, p.buf)
	if len(p.buf) == 0 {
		return dto.Action{}, false
	}
	return p.buf[rng.IntN(len(p.buf))], true
}

// GreedyPolicy 對每個可行操作在引擎複本上試走一步，選本步得分最高者（同分取先列出的）。
type GreedyPolicy struct {
	buf []dto.Action
}

func (p *GreedyPolicy) Name() string { return PolicyGreedy }

func (p *GreedyPolicy) Next(e *cascade.Engine, _ *core.Core) (dto.Action, bool) {
	p.buf = ValidActions(e.State().Grid, p.buf)
	if len(p.buf) == 0 {
		return dto.Action{}, false
	}
	best, bestScore := 0, int64(-1)
	for i, a := range p.buf {
		c, err := e.Clone()
		if err != nil {
			return p.buf[0], true
		}
		res, err := apply(c, a)
		if err != nil {
			continue
		}
		if res.Score > bestScore {
			best, bestScore = i, res.Score
		}
	}
	return p.buf[best], true
}
