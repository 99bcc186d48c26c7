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

package spec

import (
	"fmt"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/fx"
	"github.com/zintix-labs/cascadelab/sdk/gravity"
	"github.com/zintix-labs/cascadelab/sdk/match"
	"github.com/zintix-labs/cascadelab/sdk/score"
)

const (
	defaultTickRate        = 60
	defaultGravity         = 60.0
	defaultMaxSpeed        = 30.0
	defaultSearchIters     = 4
	defaultMaxCascadeSteps = 64
	defaultMaxSettleTicks  = 20000
	defaultShuffleRetries  = 16
)

// EngineSetting 引擎參數（物理、形狀偵測、洗盤、分數）。
//
// 數值欄位為 0 時使用預設值；SearchIters、ShuffleRetries 為負數時視為 0（只做 greedy / 不洗盤）。
// 物理量以浮點數撰寫，init 時一次轉成定點數，執行期間不再出現浮點運算。
type EngineSetting struct {
	TickRate        int            `yaml:"tick_rate"          json:"tick_rate"`
	Gravity         float64        `yaml:"gravity"            json:"gravity"`   // 格/秒^2
	MaxSpeed        float64        `yaml:"max_speed"          json:"max_speed"` // 格/秒
	ShapeWeights    *match.Weights `yaml:"shape_weights"      json:"shape_weights,omitempty"`
	SearchIters     int            `yaml:"search_iters"       json:"search_iters"`
	MaxCascadeSteps int            `yaml:"max_cascade_steps"  json:"max_cascade_steps"`
	MaxSettleTicks  int            `yaml:"max_settle_ticks"   json:"max_settle_ticks"`
	ShuffleRetries  int            `yaml:"shuffle_retries"    json:"shuffle_retries"`
	Score           *score.Table   `yaml:"score"              json:"score,omitempty"`
	cfg             cascade.Config
	initFlag        bool
}

// DefaultEngineSetting 全部使用預設值的設定。
func DefaultEngineSetting() *EngineSetting {
	es := &EngineSetting{}
	// 預設值必定合法
	_ = es.init()
	return es
}

func (es *EngineSetting) init() error {
	if es.initFlag {
		return nil
	}
	if es.TickRate == 0 {
		es.TickRate = defaultTickRate
	}
	if es.Gravity == 0 {
		es.Gravity = defaultGravity
	}
	if es.MaxSpeed == 0 {
		es.MaxSpeed = defaultMaxSpeed
	}
	if es.ShapeWeights == nil {
		w := match.DefaultWeights()
		es.ShapeWeights = &w
	}
	switch {
	case es.SearchIters == 0:
		es.SearchIters = defaultSearchIters
	case es.SearchIters < 0:
		es.SearchIters = 0
	}
	if es.MaxCascadeSteps == 0 {
		es.MaxCascadeSteps = defaultMaxCascadeSteps
	}
	if es.MaxSettleTicks == 0 {
		es.MaxSettleTicks = defaultMaxSettleTicks
	}
	switch {
	case es.ShuffleRetries == 0:
		es.ShuffleRetries = defaultShuffleRetries
	case es.ShuffleRetries < 0:
		es.ShuffleRetries = 0
	}
	if es.Score == nil {
		es.Score = score.DefaultTable()
	}
	if err := es.valid(); err != nil {
		return err
	}
	es.initFlag = true
	return nil
}

func (es *EngineSetting) valid() error {
	if es.TickRate < 1 || es.TickRate > 1000 {
		return errs.NewFatal(fmt.Sprintf("tick_rate must be in [1,1000], got %d", es.TickRate))
	}
	if es.Gravity < 0 || es.MaxSpeed < 0 {
		return errs.NewFatal("gravity and max_speed must be positive")
	}
	es.cfg = cascade.Config{
		Gravity: gravity.Config{
			Dt:       fx.FromRatio(1, es.TickRate),
			Gravity:  fx.FromFloat(es.Gravity),
			MaxSpeed: fx.FromFloat(es.MaxSpeed),
		},
		Match: match.Config{
			Weights:        *es.ShapeWeights,
			MaxSearchIters: es.SearchIters,
		},
		MaxCascadeSteps: es.MaxCascadeSteps,
		MaxSettleTicks:  es.MaxSettleTicks,
		ShuffleRetries:  es.ShuffleRetries,
	}
	if err := es.cfg.Valid(); err != nil {
		return errs.Wrap(err, "engine setting")
	}
	if err := es.Score.Valid(); err != nil {
		return errs.Wrap(err, "engine setting")
	}
	return nil
}

// Config 轉出引擎使用的定點數參數。
func (es *EngineSetting) Config() cascade.Config {
	return es.cfg
}

// Scorer 回傳分數表（唯讀共用）。
func (es *EngineSetting) Scorer() score.Scorer {
	return es.Score
}
