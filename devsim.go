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
	"time"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/recorder"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/spec"
	"github.com/zintix-labs/cascadelab/stats"
)

const (
	devMaxGames = 1_000
	devMaxSim   = 1_000_000
	devRngSalt  = 0x5DEECE66D
)

// DevSimulator
//
// 只提供給 Dev 模式使用的模擬器，單線不併發，重點在可審計、可重現：
// 每次執行都回傳 before / after 兩個 seed，以 before 重跑可得到完全相同的結果，
// 以 after 接續則等同沒有中斷。
type DevSimulator struct {
	sim  *Simulator
	seed int64
}

type DevGame struct {
	Seed     int64  `json:"seed,string"`
	Score    int64  `json:"score"`
	Moves    int    `json:"moves"`
	Actions  int    `json:"actions"`
	Won      bool   `json:"won"`
	GridHash uint64 `json:"grid_hash"`
	Replay   string `json:"replay_b64u"`
}

type DevGamesReport struct {
	LevelID spec.LID  `json:"level_id"`
	Policy  string    `json:"policy"`
	Before  int64     `json:"before,string"`
	After   int64     `json:"after,string"`
	Games   int       `json:"games"`
	Wins    int       `json:"wins"`
	Results []DevGame `json:"results"`
}

type DevSimReport struct {
	Before int64             `json:"before,string"`
	After  int64             `json:"after,string"`
	Used   string            `json:"used"`
	Stat   *stats.StatReport `json:"statistic"`
}

func newDevSimulator(sim *Simulator, seed int64) *DevSimulator {
	return &DevSimulator{sim: sim, seed: seed & int64(mask63)}
}

func (d *DevSimulator) Seed() int64 { return d.seed }

func (d *DevSimulator) SetPolicy(name string) error { return d.sim.SetPolicy(name) }

// worker 以目前 seed 建立單一機台；決策亂數同樣由 seed 推得。
func (d *DevSimulator) worker() (*worker, error) {
	s := d.sim
	m, err := newMachineWithSeed(s.ls, s.es, s.reg, s.cf, d.seed, false)
	if err != nil {
		return nil, err
	}
	pol, err := NewPolicy(s.policy)
	if err != nil {
		return nil, err
	}
	return &worker{m: m, pol: pol, rng: core.New(s.cf.New(int64(mix63(uint64(d.seed) ^ devRngSalt))))}, nil
}

// advance 把機台內部 seed 序列的位置當作下一次的起點。
func (d *DevSimulator) advance(w *worker) int64 {
	d.seed = int64(w.m.seeds.state.Load())
	return d.seed
}

// Games 連續玩 n 局，每局附上可重播的 Playthrough。
func (d *DevSimulator) Games(n int) (DevGamesReport, error) {
	if n < 1 || n > devMaxGames {
		return DevGamesReport{}, errs.Warnf("games must be between 1 and %d", devMaxGames)
	}
	w, err := d.worker()
	if err != nil {
		return DevGamesReport{}, err
	}
	r, err := d.recorder()
	if err != nil {
		return DevGamesReport{}, err
	}
	rep := DevGamesReport{
		LevelID: d.sim.LevelId,
		Policy:  d.sim.policy,
		Before:  d.seed,
		Results: make([]DevGame, 0, n),
	}
	for range n {
		p, err := d.sim.playGame(w, r)
		if err != nil {
			return DevGamesReport{}, errs.Wrap(err, "play error")
		}
		b64, err := p.EncodeB64U()
		if err != nil {
			return DevGamesReport{}, err
		}
		rep.Results = append(rep.Results, DevGame{
			Seed:     p.Seed,
			Score:    p.Score,
			Moves:    p.Moves,
			Actions:  len(p.Actions),
			Won:      p.Won,
			GridHash: p.GridHash,
			Replay:   b64,
		})
		if p.Won {
			rep.Wins++
		}
	}
	rep.Games = len(rep.Results)
	rep.After = d.advance(w)
	return rep, nil
}

// RestoreGames 從指定 seed 重跑 Games。
func (d *DevSimulator) RestoreGames(seed int64, n int) (DevGamesReport, error) {
	d.seed = seed & int64(mask63)
	return d.Games(n)
}

// Sim 單線跑 n 局只留統計。
func (d *DevSimulator) Sim(n int) (DevSimReport, error) {
	if n < 1 || n > devMaxSim {
		return DevSimReport{}, errs.Warnf("games must be between 1 and %d", devMaxSim)
	}
	w, err := d.worker()
	if err != nil {
		return DevSimReport{}, err
	}
	r, err := d.recorder()
	if err != nil {
		return DevSimReport{}, err
	}
	before := d.seed
	start := time.Now()
	for range n {
		if _, err := d.sim.playGame(w, r); err != nil {
			return DevSimReport{}, errs.Wrap(err, "sim failed")
		}
	}
	used := time.Since(start)
	return DevSimReport{
		Before: before,
		After:  d.advance(w),
		Used:   used.String(),
		Stat:   r.Done(),
	}, nil
}

// RestoreSim 從指定 seed 重跑 Sim。
func (d *DevSimulator) RestoreSim(seed int64, n int) (DevSimReport, error) {
	d.seed = seed & int64(mask63)
	return d.Sim(n)
}

func (d *DevSimulator) recorder() (*recorder.MoveRecorder, error) {
	s := d.sim
	return recorder.NewMoveRecorder(s.LevelName, s.LevelId, s.policy, s.ls.MoveLimit, s.ls.TargetScore)
}
