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
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/recorder"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/spec"
	"github.com/zintix-labs/cascadelab/stats"
	"golang.org/x/sync/errgroup"
)

const capPrepare int = 100

// DefaultMaxActions 單局操作上限；不限步數又沒有目標分數的關卡靠它結束。
const DefaultMaxActions = 10_000

// Simulator 以 Policy 自動遊玩大量對局並統計，可建立多台機台平行執行。
//
// 同一個 seed + 同一個 worker 數 + 同一個 Policy，產生的報表完全相同。
type Simulator struct {
	LevelName  string
	LevelId    spec.LID
	ls         *spec.LevelSetting
	es         *spec.EngineSetting
	reg        *PredictorRegistry
	cf         core.PRNGFactory
	initSeed   int64
	seedmaker  *seedMaker
	policy     string
	maxActions int
	mBuf       []*worker
	rBuf       []*recorder.MoveRecorder
	log        *slog.Logger
	trace      *slog.Logger
}

// worker 一台機台 + 自己的 Policy 實例與決策亂數
type worker struct {
	m   *Machine
	pol Policy
	rng *core.Core
}

func newSimulatorWithSeed(ls *spec.LevelSetting, es *spec.EngineSetting, reg *PredictorRegistry, cf core.PRNGFactory, seed int64) (*Simulator, error) {
	s := &Simulator{
		LevelName:  ls.LevelName,
		LevelId:    ls.LevelID,
		ls:         ls,
		es:         es,
		reg:        reg,
		cf:         cf,
		initSeed:   seed,
		seedmaker:  newSeedMaker(seed),
		policy:     PolicyFirst,
		maxActions: DefaultMaxActions,
		mBuf:       make([]*worker, 0, capPrepare),
		rBuf:       make([]*recorder.MoveRecorder, 0, capPrepare),
	}
	if err := s.prepare(1); err != nil {
		return nil, err
	}
	return s, nil
}

// SetPolicy 切換自動玩家；已建立的 worker 會換上新策略實例。
func (s *Simulator) SetPolicy(name string) error {
	if _, err := NewPolicy(name); err != nil {
		return err
	}
	s.policy = name
	for _, w := range s.mBuf {
		w.pol, _ = NewPolicy(name)
	}
	return nil
}

func (s *Simulator) Policy() string { return s.policy }

// SetLogger 每次 SimMP 結束以 Debug 記錄摘要；nil 表示不記錄。
func (s *Simulator) SetLogger(log *slog.Logger) { s.log = log }

// SetTrace PlayOne 的每個事件以 Debug 寫入 log（大量模擬不追蹤）。
func (s *Simulator) SetTrace(log *slog.Logger) { s.trace = log }

func (s *Simulator) SetMaxActions(n int) {
	if n > 0 {
		s.maxActions = n
	}
}

// Sim 單線模擬：一台機台連續跑 games 局。
func (s *Simulator) Sim(games int, showpb bool) (*stats.StatReport, time.Duration, error) {
	return s.SimMP(games, 1, showpb)
}

// SimMP 平行執行 mp 台機台，各跑 games 局（總計 games*mp 局），合併統計後回傳。
func (s *Simulator) SimMP(games int, mp int, showpb bool) (*stats.StatReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if games < 1 {
		return nil, 0, errs.NewWarn("games must > 0")
	}
	if err := s.prepare(mp); err != nil {
		return nil, 0, err
	}
	for len(s.rBuf) < mp {
		r, err := recorder.NewMoveRecorder(s.LevelName, s.LevelId, s.policy, s.ls.MoveLimit, s.ls.TargetScore)
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}

	bar := pb.StartNew(games * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	var g errgroup.Group
	for i := 0; i < mp; i++ {
		w, r := s.mBuf[i], s.rBuf[i]
		g.Go(func() error {
			for range games {
				if _, err := s.playGame(w, r); err != nil {
					return err
				}
				bar.Increment()
			}
			return nil
		})
	}
	err := g.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return nil, used, err
	}

	rec, err := recorder.MergeMoveRecorder(s.rBuf[:mp])
	if err != nil {
		return nil, used, err
	}
	st := rec.Done()
	if s.log != nil {
		s.log.Debug("sim.done",
			slog.Int("level_id", int(s.LevelId)),
			slog.String("policy", s.policy),
			slog.Int("games", games*mp),
			slog.Float64("win_rate", st.Summary.WinRate),
			slog.Duration("used", used),
		)
	}
	return st, used, nil
}

// PlayOne 以第一台機台完整玩一局並回傳 Playthrough（事件雜湊一併計算）。
func (s *Simulator) PlayOne() (*Playthrough, error) {
	m, err := newMachineWithSeed(s.ls, s.es, s.reg, s.cf, s.seedmaker.next(), false)
	if err != nil {
		return nil, err
	}
	m.SetTrace(s.trace)
	pol, _ := NewPolicy(s.policy)
	w := &worker{m: m, pol: pol, rng: core.New(s.cf.New(s.seedmaker.next()))}
	r, err := recorder.NewMoveRecorder(s.LevelName, s.LevelId, s.policy, s.ls.MoveLimit, s.ls.TargetScore)
	if err != nil {
		return nil, err
	}
	return s.playGame(w, r)
}

// playGame 開一局並讓 Policy 玩到結束（過關、步數用盡、死局或達到操作上限）。
func (s *Simulator) playGame(w *worker, r *recorder.MoveRecorder) (*Playthrough, error) {
	if err := w.m.NextGame(); err != nil {
		return nil, err
	}
	e := w.m.Engine()
	capped := false
	for n := 0; !e.Over(); n++ {
		if n >= s.maxActions {
			capped = true
			break
		}
		a, ok := w.pol.Next(e, w.rng)
		if !ok {
			break
		}
		res, err := w.m.Apply(a)
		if err != nil {
			return nil, err
		}
		r.RecordMove(res)
	}
	p := w.m.Finish()
	p.Policy = w.pol.Name()
	st := e.State()
	r.RecordGame(recorder.GameEnd{
		Score:      st.Score,
		Moves:      st.Moves,
		Won:        st.Won(),
		OutOfMoves: st.OutOfMoves(),
		Unsolvable: e.Phase() == cascade.Stalled,
		Capped:     capped,
	})
	return p, nil
}

func (s *Simulator) prepare(n int) error {
	for len(s.mBuf) < n {
		m, err := newMachineWithSeed(s.ls, s.es, s.reg, s.cf, s.seedmaker.next(), true)
		if err != nil {
			return err
		}
		pol, err := NewPolicy(s.policy)
		if err != nil {
			return err
		}
		s.mBuf = append(s.mBuf, &worker{m: m, pol: pol, rng: core.New(s.cf.New(s.seedmaker.next()))})
	}
	return nil
}

func (s *Simulator) reset() {
	for _, r := range s.rBuf {
		r.Reset()
	}
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以全週期 LCG 推進 state，再用可逆 mix63 打散。
//
// 可能被多 goroutine 同時呼叫（MachinePool 補機），state 以 CAS 推進，每次呼叫取得唯一的下一個值。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63 只用可逆的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
