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

// Package cascade 串起重力、補牌、偵測與清除的主迴圈。
//
// 一次玩家操作（Swap/Activate）會推進到盤面穩定為止：
// settle -> detect -> process 反覆執行，直到沒有任何形狀，再檢查是否仍有可行步。
// 所有狀態變化都經由 event.Emitter 送出，Sink 為 Nop 時不產生任何事件。
package cascade

import (
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/bomb"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/fx"
	"github.com/zintix-labs/cascadelab/sdk/gravity"
	"github.com/zintix-labs/cascadelab/sdk/match"
	"github.com/zintix-labs/cascadelab/sdk/refill"
	"github.com/zintix-labs/cascadelab/sdk/score"
)

// Phase 引擎目前所處的階段。
type Phase uint8

const (
	AwaitingInput Phase = iota
	Swapping
	RevertingSwap
	Settling
	Matching
	Shuffling
	Stalled
)

var phaseNames = [...]string{"awaiting_input", "swapping", "reverting_swap", "settling", "matching", "shuffling", "stalled"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Outcome 一次玩家操作的結果。
type Outcome uint8

const (
	OutcomeResolved Outcome = iota
	OutcomeReverted
	OutcomeRejected
	OutcomeOutOfMoves
	OutcomeUnsolvable
)

var outcomeNames = [...]string{"resolved", "reverted", "rejected", "out_of_moves", "unsolvable"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	for i, n := range outcomeNames {
		if n == string(b) {
			*o = Outcome(i)
			return nil
		}
	}
	return errs.NewWarn("unknown outcome: " + string(b))
}

// Config 引擎參數。
type Config struct {
	Gravity         gravity.Config
	Match           match.Config
	MaxCascadeSteps int // 單次操作最多幾輪 detect/process
	MaxSettleTicks  int // 單次 settle 最多幾個 tick
	ShuffleRetries  int
}

func DefaultConfig() Config {
	return Config{
		Gravity:         gravity.DefaultConfig(),
		Match:           match.DefaultConfig(),
		MaxCascadeSteps: 64,
		MaxSettleTicks:  20000,
		ShuffleRetries:  16,
	}
}

func (c Config) Valid() error {
	if err := c.Gravity.Valid(); err != nil {
		return err
	}
	if err := c.Match.Valid(); err != nil {
		return err
	}
	if c.MaxCascadeSteps <= 0 || c.MaxSettleTicks <= 0 {
		return errs.NewFatal("cascade: step limits must be > 0")
	}
	if c.ShuffleRetries < 0 {
		return errs.NewFatal("cascade: shuffle retries must be >= 0")
	}
	return nil
}

// DtMicros 每個 tick 的模擬微秒數。
func (c Config) DtMicros() int64 {
	return int64(c.Gravity.Dt) * 1_000_000 >> fx.Shift
}

// MoveResult 一次操作從輸入到穩定的統計。
type MoveResult struct {
	Outcome      Outcome `json:"outcome"`
	Cascades     int     `json:"cascades"`
	Cleared      int     `json:"cleared"`
	BombsCreated int     `json:"bombs_created"`
	Detonations  int     `json:"detonations"`
	Combos       int     `json:"combos"`
	Score        int64   `json:"score"`
	Ticks        int     `json:"ticks"`
	Shuffled     int     `json:"shuffled"`
}

func (r *MoveResult) add(b bomb.Result) {
	r.Cleared += b.Cleared
	r.BombsCreated += b.BombsCreated
	r.Detonations += b.Detonations
	r.Combos += b.Combos
	r.Score += b.Score
}

// Engine 單執行緒；平行模擬請用 Clone 各自持有一份。
type Engine struct {
	cfg   Config
	st    *board.State
	phase Phase

	gravity  *gravity.Resolver
	refill   *refill.Generator
	detector *match.Detector
	proc     *bomb.Processor
	em       *event.Emitter

	focus [2]board.Position
}

// New 以既有狀態建立引擎，不做任何填色或穩定化。
func New(cfg Config, st *board.State, pred refill.Predictor, scorer score.Scorer, sink event.Sink) (*Engine, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	if st == nil || st.Grid == nil || st.Streams == nil {
		return nil, errs.NewFatal("cascade: state, grid and streams are required")
	}
	if pred == nil {
		return nil, errs.NewFatal("cascade: refill predictor is required")
	}
	return &Engine{
		cfg:      cfg,
		st:       st,
		gravity:  gravity.New(cfg.Gravity),
		refill:   refill.New(pred),
		detector: match.NewDetector(cfg.Match),
		proc:     bomb.New(scorer),
		em:       event.NewEmitter(sink, cfg.DtMicros()),
	}, nil
}

// Start 由關卡建立一局：放置固定方塊、填入隨機格、消掉開局既有的形狀並確保有可行步。
// 開局整理不送出事件、不計分、不扣步數。
func Start(cfg Config, lv *board.Level, streams *core.Streams, pred refill.Predictor, scorer score.Scorer, sink event.Sink) (*Engine, error) {
	if err := lv.Validate(); err != nil {
		return nil, err
	}
	st := board.NewState(lv, streams)
	e, err := New(cfg, st, pred, scorer, event.Nop{})
	if err != nil {
		return nil, err
	}
	e.refill.Fill(st, lv)
	var res MoveResult
	if err := e.stabilize(&res); err != nil {
		return nil, err
	}
	st.Score = 0
	st.GoalProgress = 0
	st.Tick = 0
	e.em = event.NewEmitter(sink, cfg.DtMicros())
	return e, nil
}

func (e *Engine) State() *board.State { return e.st }
func (e *Engine) Phase() Phase        { return e.phase }
func (e *Engine) Config() Config      { return e.cfg }

// SetSink 更換事件出口（序號延續）。
func (e *Engine) SetSink(sink event.Sink) { e.em = e.em.Fork(sink) }

// Over 已過關、步數用盡或盤面死局。
func (e *Engine) Over() bool {
	return e.st.Won() || e.st.OutOfMoves() || e.phase == Stalled
}

// Clone 複製整個引擎（狀態、亂數子流、補牌策略），暫存緩衝重新配置；新引擎不送出事件。
func (e *Engine) Clone() (*Engine, error) {
	st, err := e.st.Clone()
	if err != nil {
		return nil, err
	}
	c, err := New(e.cfg, st, refill.ClonePredictor(e.refill.Predictor), e.proc.Scorer(), event.Nop{})
	if err != nil {
		return nil, err
	}
	c.phase = e.phase
	return c, nil
}

func (e *Engine) emit(k event.Kind, ev event.Event) {
	ev.Kind = k
	e.em.Emit(e.st.Tick, ev)
}

// Swap 玩家交換 a、b 兩格。
//
// 越界直接拒絕且不改動任何東西；不相鄰、含空格或固定方塊、或交換後沒有形狀時，
// 送出 TileSwapped 與 SwapReverted 並還原盤面。error 只在引擎進入不可恢復狀態時回傳。
func (e *Engine) Swap(a, b board.Position) (MoveResult, error) {
	var res MoveResult
	g := e.st.Grid
	if !g.InBounds(a) || !g.InBounds(b) {
		res.Outcome = OutcomeRejected
		return res, nil
	}
	if e.phase == Stalled {
		res.Outcome = OutcomeUnsolvable
		return res, nil
	}
	if e.st.OutOfMoves() {
		res.Outcome = OutcomeOutOfMoves
		return res, nil
	}

	e.phase = Swapping
	ta, tb := g.At(a), g.At(b)
	swapped := event.Event{TileID: ta.ID, Other: tb.ID, From: a, To: b}
	if !a.Adjacent(b) || !ta.Movable() || !tb.Movable() {
		e.emit(event.TileSwapped, swapped)
		e.emit(event.SwapReverted, swapped)
		return e.reverted(res), nil
	}

	g.Swap(a, b)
	e.emit(event.TileSwapped, swapped)

	// 交換後 a 上是原本 b 的方塊，反之亦然；組合效果以被拖動方塊的落點 b 為中心
	if bomb.IsCombo(g.At(a), g.At(b)) {
		e.st.Moves++
		e.st.RecentFailures = 0
		e.phase = Matching
		res.add(e.proc.Combo(e.st, a, b, e.em))
		return e.finish(res)
	}

	e.focus = [2]board.Position{a, b}
	e.phase = Matching
	shapes := e.detector.Detect(g, e.focus[:], e.st.Streams.Gameplay())
	if len(shapes) == 0 {
		e.phase = RevertingSwap
		g.Swap(a, b)
		e.emit(event.SwapReverted, swapped)
		return e.reverted(res), nil
	}
	e.st.Moves++
	e.st.RecentFailures = 0
	res.Cascades++
	res.add(e.proc.Process(e.st, shapes, e.em))
	return e.finish(res)
}

func (e *Engine) reverted(res MoveResult) MoveResult {
	e.st.RecentFailures++
	e.phase = AwaitingInput
	res.Outcome = OutcomeReverted
	return res
}

// Activate 玩家點擊 p 上的炸彈。
func (e *Engine) Activate(p board.Position) (MoveResult, error) {
	var res MoveResult
	g := e.st.Grid
	if !g.InBounds(p) {
		res.Outcome = OutcomeRejected
		return res, nil
	}
	if e.phase == Stalled {
		res.Outcome = OutcomeUnsolvable
		return res, nil
	}
	if e.st.OutOfMoves() {
		res.Outcome = OutcomeOutOfMoves
		return res, nil
	}
	t := g.At(p)
	if t.Bomb == board.None || !t.Movable() {
		res.Outcome = OutcomeRejected
		return res, nil
	}
	e.st.Moves++
	e.st.RecentFailures = 0
	e.phase = Matching
	res.add(e.proc.Detonate(e.st, p, e.em))
	return e.finish(res)
}

// finish 操作生效後推進到穩定並更新目標進度。
func (e *Engine) finish(res MoveResult) (MoveResult, error) {
	err := e.stabilize(&res)
	e.st.UpdateGoal()
	if err != nil {
		return res, err
	}
	if e.phase == Stalled {
		res.Outcome = OutcomeUnsolvable
	} else {
		res.Outcome = OutcomeResolved
		e.phase = AwaitingInput
	}
	return res, nil
}
