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

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/refill"
	"github.com/zintix-labs/cascadelab/spec"
)

// PredictorBuilder 依關卡設定建立補牌策略。每台 Machine 建立時呼叫一次，
// 回傳的 Predictor 由該 Machine 獨佔（帶狀態的策略不必考慮併發）。
type PredictorBuilder func(ls *spec.LevelSetting) (refill.Predictor, error)

// PredictorRegistry 補牌策略註冊表：PredictorKey -> builder。
type PredictorRegistry struct {
	builders map[spec.PredictorKey]PredictorBuilder
}

func NewPredictorRegistry() *PredictorRegistry {
	return &PredictorRegistry{
		builders: make(map[spec.PredictorKey]PredictorBuilder, 8),
	}
}

func (r *PredictorRegistry) Register(key spec.PredictorKey, b PredictorBuilder) error {
	if key == "" || b == nil {
		return errs.NewFatal("predictor key and builder required")
	}
	if _, ok := r.builders[key]; ok {
		return errs.NewFatal(fmt.Sprintf("duplicate predictor builder: %s", key))
	}
	r.builders[key] = b
	return nil
}

func (r *PredictorRegistry) Build(ls *spec.LevelSetting) (refill.Predictor, error) {
	b, ok := r.builders[ls.Predictor]
	if !ok {
		return nil, errs.NewFatal(fmt.Sprintf("predictor is not exist: %s", ls.Predictor))
	}
	return b(ls)
}

func (r *PredictorRegistry) IsExist(key spec.PredictorKey) bool {
	_, ok := r.builders[key]
	return ok
}

// MergePredictorRegistry 合併多個註冊表；重複的 key 一律視為錯誤。
func MergePredictorRegistry(regs ...*PredictorRegistry) (*PredictorRegistry, error) {
	pr := NewPredictorRegistry()
	origin := make(map[spec.PredictorKey]int, 8)
	for i, r := range regs {
		if r == nil {
			continue
		}
		for key, b := range r.builders {
			if _, ok := pr.builders[key]; ok {
				return nil, errs.NewFatal(fmt.Sprintf("duplicate predictor key %s (registry #%d and #%d)", key, origin[key], i))
			}
			pr.builders[key] = b
			origin[key] = i
		}
	}
	return pr, nil
}

// CyclePredictorKey 腳本化補牌：fixed.cycle 依序循環給色，不消耗亂數。
const CyclePredictorKey spec.PredictorKey = "cycle"

type cycleFixed struct {
	Cycle []int `yaml:"cycle"`
}

// BuiltinPredictors 內建策略：weighted（關卡顏色權重 + difficulty 重抽）與 cycle。
func BuiltinPredictors() *PredictorRegistry {
	r := NewPredictorRegistry()
	_ = r.Register(spec.DefaultPredictor, func(ls *spec.LevelSetting) (refill.Predictor, error) {
		p, err := refill.NewWeightedPredictor(ls.Colors, ls.ColorWeights)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	_ = r.Register(CyclePredictorKey, func(ls *spec.LevelSetting) (refill.Predictor, error) {
		var fixed cycleFixed
		if err := spec.DecodeFixed(ls, &fixed); err != nil {
			return nil, err
		}
		if len(fixed.Cycle) == 0 {
			return nil, errs.NewFatal(fmt.Sprintf("level %d: fixed.cycle required for cycle predictor", ls.LevelID))
		}
		colors := make([]board.Color, len(fixed.Cycle))
		for i, c := range fixed.Cycle {
			if c < 1 || c > ls.Colors {
				return nil, errs.NewFatal(fmt.Sprintf("level %d: cycle color %d out of [1,%d]", ls.LevelID, c, ls.Colors))
			}
			colors[i] = board.Color(c)
		}
		return &refill.CyclePredictor{Colors: colors}, nil
	})
	return r
}
