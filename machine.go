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
	"log/slog"
	"strings"
	"sync"

	"github.com/zintix-labs/cascadelab/dto"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/score"
	"github.com/zintix-labs/cascadelab/spec"
)

// Machine 封裝一個關卡的引擎工廠與一局進行中的對局。
//
// 對外（HTTP）走無狀態路徑：Start 回傳完整狀態字串，Play 每次由狀態字串還原引擎、
// 套用一個操作後再編碼回去，Machine 本身不保存任何玩家的對局。
// 對內（模擬、回放）走有狀態路徑：NewGame 開局後以 Apply 連續操作，Finish 取得 Playthrough。
//
// 同一台 Machine 不應被多 goroutine 同時使用；併發由 MachinePool 或 Simulator 分配多台。
type Machine struct {
	levelName string
	levelId   spec.LID
	ls        *spec.LevelSetting
	lv        *board.Level
	cfg       cascade.Config
	scorer    score.Scorer
	reg       *PredictorRegistry
	cf        core.PRNGFactory
	seeds     *seedMaker
	sink      *event.Buffer // 無狀態路徑收集單次操作的事件
	eng       *cascade.Engine
	rec       *Playthrough
	hash      *eventHasher
	mu        sync.Mutex
	initseed  int64 // 出生 seed
	isSim     bool  // 模擬模式不收集事件
	trace     *slog.Logger
}

func newMachineWithSeed(ls *spec.LevelSetting, es *spec.EngineSetting, reg *PredictorRegistry, cf core.PRNGFactory, seed int64, isSim bool) (*Machine, error) {
	if ls == nil || es == nil || reg == nil || cf == nil {
		return nil, errs.NewFatal("machine: level setting, engine setting, registry and prng factory required")
	}
	if !reg.IsExist(ls.Predictor) {
		return nil, errs.NewFatal(fmt.Sprintf("predictor not registered: %s", ls.Predictor))
	}
	m := &Machine{
		levelName: ls.LevelName,
		levelId:   ls.LevelID,
		ls:        ls,
		lv:        ls.ToLevel(),
		cfg:       es.Config(),
		scorer:    es.Scorer(),
		reg:       reg,
		cf:        cf,
		seeds:     newSeedMaker(seed),
		sink:      &event.Buffer{Events: make([]event.Event, 0, 256)},
		initseed:  seed,
		isSim:     isSim,
	}
	// 先試建一次，設定錯誤在出生時就失敗
	if _, err := m.newEngine(seed, event.Nop{}); err != nil {
		return nil, err
	}
	return m, nil
}

// SetTrace 之後的對局把每個事件以 Debug 寫入 log；nil 關閉追蹤。
func (m *Machine) SetTrace(log *slog.Logger) { m.trace = log }

// traced 有設定追蹤時把 LogSink 接在 sink 後面。
func (m *Machine) traced(sink event.Sink) event.Sink {
	if m.trace == nil {
		return sink
	}
	return event.Tee{sink, event.LogSink{Log: m.trace.With(slog.Int("level_id", int(m.levelId)))}}
}

func (m *Machine) LevelID() spec.LID   { return m.levelId }
func (m *Machine) LevelName() string   { return m.levelName }
func (m *Machine) InitSeed() int64     { return m.initseed }
func (m *Machine) Level() *board.Level { return m.lv }

// newEngine 每局重新建立補牌策略，帶狀態的策略不跨局共用。
func (m *Machine) newEngine(seed int64, sink event.Sink) (*cascade.Engine, error) {
	pred, err := m.reg.Build(m.ls)
	if err != nil {
		return nil, err
	}
	return cascade.Start(m.cfg, m.lv, core.NewStreams(m.cf, seed), pred, m.scorer, sink)
}

// Start 開一局新遊戲並回傳初始狀態。
func (m *Machine) Start(req *dto.StartRequest) (dto.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req == nil {
		return dto.GameState{}, errs.NewWarn("nil start request")
	}
	if err := m.valid(req.LevelID, req.LevelName); err != nil {
		return dto.GameState{}, err
	}
	seed := m.seeds.next()
	if req.Seed != nil {
		seed = *req.Seed
	}
	e, err := m.newEngine(seed, event.Nop{})
	if err != nil {
		return dto.GameState{}, err
	}
	return dto.NewGameState(m.levelId, m.levelName, e)
}

// Play 由請求帶來的狀態還原引擎並套用一個操作。
//
// 狀態字串解不開、尺寸或關卡參數對不上都視為 request 錯誤（Warn），機台仍然健康；
// 只有引擎本身回報的錯誤（例如連鎖失控）會以 Fatal 回傳。
func (m *Machine) Play(req *dto.MoveRequest) (dto.MoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req == nil {
		return dto.MoveResult{}, errs.NewWarn("nil move request")
	}
	if err := m.valid(req.LevelID, req.LevelName); err != nil {
		return dto.MoveResult{}, err
	}
	if err := req.Action.Valid(); err != nil {
		return dto.MoveResult{}, err
	}
	snap, err := dto.DecodeState(req.StateB64U)
	if err != nil {
		return dto.MoveResult{}, err
	}
	if err := m.validSnapshot(&snap); err != nil {
		return dto.MoveResult{}, err
	}
	pred, err := m.reg.Build(m.ls)
	if err != nil {
		return dto.MoveResult{}, err
	}

	m.sink.Reset()
	var sink event.Sink = m.sink
	if m.isSim {
		sink = event.Nop{}
	}
	e, err := cascade.Restore(m.cfg, snap, m.cf, pred, m.scorer, m.traced(sink))
	if err != nil {
		return dto.MoveResult{}, errs.NewWarn("restore state failed: " + err.Error())
	}
	res, err := apply(e, req.Action)
	if err != nil {
		return dto.MoveResult{}, errs.Wrap(err, "engine failed")
	}
	gs, err := dto.NewGameState(m.levelId, m.levelName, e)
	if err != nil {
		return dto.MoveResult{}, errs.NewFatal("snapshot after move failed: " + err.Error())
	}
	out := dto.MoveResult{
		Action:    req.Action,
		Result:    res,
		StartB64U: req.StateB64U,
		State:     gs,
	}
	if !m.isSim {
		out.Events = m.sink.Drain()
	}
	return out, nil
}

func (m *Machine) valid(id spec.LID, name string) error {
	if m.levelId != id {
		return errs.NewWarn("level id is not matched")
	}
	if name != "" && m.levelName != name {
		return errs.NewWarn("level name is not matched")
	}
	return nil
}

// validSnapshot 關卡固定參數不允許由狀態字串改寫。
func (m *Machine) validSnapshot(s *board.Snapshot) error {
	if len(s.Rows) != m.lv.Height {
		return errs.NewWarn("state board height is not matched")
	}
	for _, r := range s.Rows {
		if len(strings.Fields(r)) != m.lv.Width {
			return errs.NewWarn("state board width is not matched")
		}
	}
	if s.MoveLimit != m.lv.MoveLimit || s.TargetScore != m.lv.TargetScore || s.Difficulty != m.lv.Difficulty {
		return errs.NewWarn("state level parameters are not matched")
	}
	return nil
}

// NewGame 以指定 seed 開一局有狀態的對局（模擬、回放使用）。
func (m *Machine) NewGame(seed int64) error {
	m.hash = nil
	var sink event.Sink = event.Nop{}
	if !m.isSim {
		m.hash = newEventHasher()
		sink = m.hash
	}
	e, err := m.newEngine(seed, m.traced(sink))
	if err != nil {
		return err
	}
	m.eng = e
	m.rec = newPlaythrough(m.levelId, m.levelName, seed)
	return nil
}

// NextGame 以 Machine 內部 seed 序列開下一局。
func (m *Machine) NextGame() error {
	return m.NewGame(m.seeds.next())
}

// Engine 目前對局的引擎；尚未 NewGame 時為 nil。
func (m *Machine) Engine() *cascade.Engine {
	return m.eng
}

// Apply 對目前對局套用一個操作並記入 Playthrough。
func (m *Machine) Apply(a dto.Action) (cascade.MoveResult, error) {
	if m.eng == nil {
		return cascade.MoveResult{}, errs.NewFatal("no game in progress")
	}
	if err := a.Valid(); err != nil {
		return cascade.MoveResult{}, err
	}
	m.rec.Actions = append(m.rec.Actions, a)
	return apply(m.eng, a)
}

// Finish 結算目前對局並回傳 Playthrough（包含終局盤面與事件 log 的雜湊）。
func (m *Machine) Finish() *Playthrough {
	if m.eng == nil || m.rec == nil {
		return nil
	}
	st := m.eng.State()
	p := m.rec
	p.Score = st.Score
	p.Moves = st.Moves
	p.Won = st.Won()
	p.GridHash = st.Grid.Hash()
	if m.hash != nil {
		p.Events = m.hash.n
		p.EventHash = m.hash.Sum64()
	}
	return p
}

func apply(e *cascade.Engine, a dto.Action) (cascade.MoveResult, error) {
	switch a.Type {
	case dto.ActionSwap:
		return e.Swap(a.A, a.B)
	case dto.ActionActivate:
		return e.Activate(a.A)
	default:
		return cascade.MoveResult{Outcome: cascade.OutcomeRejected}, nil
	}
}
