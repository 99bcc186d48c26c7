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

// Package demo_predictors 示範如何在 Lab 外註冊自訂補牌策略。
package demo_predictors

import (
	"fmt"
	"log"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/refill"
	"github.com/zintix-labs/cascadelab/spec"
)

// Predictors demo 關卡需要的額外策略
var Predictors = cascadelab.NewPredictorRegistry()

const MercyKey spec.PredictorKey = "mercy"

func init() {
	if err := Predictors.Register(MercyKey, buildMercy); err != nil {
		log.Fatalf("%s register failed: %v", MercyKey, err)
	}
}

// ============================================================
// ** mercy **
// ============================================================

type mercyFixed struct {
	Failures  int     `yaml:"failures"`
	TailMoves int     `yaml:"tail_moves"`
	Assist    float64 `yaml:"assist"`
}

// Mercy 玩家連續失敗或剩餘步數不多而目標未達時，以 Assist 機率補入
// 與該欄最上方方塊同色的方塊，讓連鎖更容易發生。
type Mercy struct {
	colors int
	fixed  mercyFixed
}

func buildMercy(ls *spec.LevelSetting) (refill.Predictor, error) {
	var fixed mercyFixed
	if err := spec.DecodeFixed(ls, &fixed); err != nil {
		return nil, err
	}
	if fixed.Assist < 0 || fixed.Assist > 1 {
		return nil, errs.NewFatal(fmt.Sprintf("level %d: fixed.assist must be in [0,1]", ls.LevelID))
	}
	if fixed.Failures <= 0 {
		fixed.Failures = 3
	}
	return &Mercy{colors: ls.Colors, fixed: fixed}, nil
}

func (m *Mercy) Predict(g *board.Grid, col int, ctx refill.Context, rng *core.Core) board.Color {
	c := board.Color(rng.IntN(m.colors) + 1)
	if !m.helping(ctx) || rng.Float64() >= m.fixed.Assist {
		return c
	}
	for row := 0; row < g.H; row++ {
		t := g.AtCR(col, row)
		if t.IsEmpty() {
			continue
		}
		if t.Color.IsNormal() {
			return t.Color
		}
		break
	}
	return c
}

func (m *Mercy) helping(ctx refill.Context) bool {
	if ctx.RecentFailures >= m.fixed.Failures {
		return true
	}
	return ctx.MovesRemaining >= 0 && ctx.MovesRemaining <= m.fixed.TailMoves && ctx.GoalProgress < 1
}
