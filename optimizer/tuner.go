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

package optimizer

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/spec"
	"github.com/zintix-labs/cascadelab/stats"
	"gopkg.in/yaml.v3"
)

// Eval 一次評估的結果
type Eval struct {
	Difficulty float64  `yaml:"difficulty"  json:"difficulty"`
	WinRate    float64  `yaml:"win_rate"    json:"win_rate"`
	WinRateCI  stats.CI `yaml:"win_rate_ci" json:"win_rate_ci"`
	AvgScore   float64  `yaml:"avg_score"   json:"avg_score"`
	AvgMoves   float64  `yaml:"avg_moves"   json:"avg_moves"`
}

// Result 最接近目標的一點與完整搜尋軌跡。
// Converged 為 true 表示誤差在 Tolerance 內，或目標落在該點的 95% 信賴區間。
type Result struct {
	LevelID   spec.LID           `yaml:"level_id"  json:"level_id"`
	Target    float64            `yaml:"target"    json:"target"`
	Best      Eval               `yaml:"best"      json:"best"`
	Converged bool               `yaml:"converged" json:"converged"`
	Trace     []Eval             `yaml:"trace"     json:"trace"`
	Setting   *spec.LevelSetting `yaml:"-"         json:"-"`
}

// WriteLevelYAML 輸出套用最佳難度後的關卡設定。
func (r *Result) WriteLevelYAML(w io.Writer) error {
	if r.Setting == nil {
		return errs.NewFatal("result has no level setting")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Setting); err != nil {
		return errs.Wrap(err, "encode level yaml")
	}
	return enc.Close()
}

// Tuner 難度調優器
type Tuner struct {
	cfg *Setting
	log *slog.Logger
}

func New(cfg *Setting, log *slog.Logger) (*Tuner, error) {
	if cfg == nil {
		return nil, errs.NewFatal("optimizer setting required")
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tuner{cfg: cfg, log: log}, nil
}

// Run 在 lab 上搜尋難度。lab 必須已 Freeze，且關卡需已註冊（設定以 JSON 改寫後送進 Simulator）。
func (t *Tuner) Run(lab *cascadelab.Lab) (*Result, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab required")
	}
	base, err := lab.LevelSetting(t.cfg.LevelID)
	if err != nil {
		return nil, err
	}
	res := &Result{
		LevelID: t.cfg.LevelID,
		Target:  t.cfg.TargetWinRate,
		Trace:   make([]Eval, 0, t.cfg.MaxIter),
	}
	lo, hi := t.cfg.MinDifficulty, t.cfg.MaxDifficulty
	bestGap := math.Inf(1)
	for i := 0; i < t.cfg.MaxIter; i++ {
		d := (lo + hi) / 2
		ev, err := t.eval(lab, base, d)
		if err != nil {
			return nil, err
		}
		res.Trace = append(res.Trace, ev)
		t.log.Info("optimizer.eval",
			slog.Int("iter", i),
			slog.Float64("difficulty", d),
			slog.Float64("win_rate", ev.WinRate),
		)

		gap := math.Abs(ev.WinRate - t.cfg.TargetWinRate)
		if gap < bestGap {
			bestGap = gap
			res.Best = ev
		}
		if gap <= t.cfg.Tolerance {
			break
		}
		if ev.WinRate > t.cfg.TargetWinRate {
			lo = d
		} else {
			hi = d
		}
	}
	b := res.Best
	res.Converged = bestGap <= t.cfg.Tolerance || (b.WinRateCI.Lo <= t.cfg.TargetWinRate && t.cfg.TargetWinRate <= b.WinRateCI.Hi)

	tuned := *base
	tuned.Difficulty = b.Difficulty
	res.Setting = &tuned
	return res, nil
}

func (t *Tuner) eval(lab *cascadelab.Lab, base *spec.LevelSetting, d float64) (Eval, error) {
	ls := *base
	ls.Difficulty = d
	raw, err := json.Marshal(&ls)
	if err != nil {
		return Eval{}, errs.Wrap(err, "encode level setting")
	}
	sim, err := lab.NewSimulatorByJSON(raw, t.cfg.Seed)
	if err != nil {
		return Eval{}, err
	}
	sim.SetLogger(t.log)
	if t.cfg.Policy != "" {
		if err := sim.SetPolicy(t.cfg.Policy); err != nil {
			return Eval{}, err
		}
	}
	st, _, err := sim.SimMP(t.cfg.Games, t.cfg.Workers, false)
	if err != nil {
		return Eval{}, err
	}
	sum := st.Summary
	return Eval{
		Difficulty: d,
		WinRate:    sum.WinRate,
		WinRateCI:  sum.WinRateCI,
		AvgScore:   sum.AvgScore,
		AvgMoves:   sum.AvgMoves,
	}, nil
}
