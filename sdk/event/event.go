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

// Package event 定義引擎對外唯一的狀態變化通道：全序事件紀錄。
//
// 引擎只呼叫 Sink.Emit，不關心掛的是 Nop（大量模擬）、Buffer（表現層/回放）還是 LogSink（開發追蹤）。
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zintix-labs/cascadelab/sdk/board"
)

// Kind 事件種類。
type Kind uint8

const (
	_ Kind = iota
	TileSpawned
	TileMoved
	TileLanded
	TileSwapped
	SwapReverted
	MatchCleared
	BombCreated
	BombActivated
	TileDestroyed
	ComboTriggered
	BoardShuffled
	BoardStalled
	kindEnd
)

var kindNames = [kindEnd]string{
	TileSpawned:    "tile_spawned",
	TileMoved:      "tile_moved",
	TileLanded:     "tile_landed",
	TileSwapped:    "tile_swapped",
	SwapReverted:   "swap_reverted",
	MatchCleared:   "match_cleared",
	BombCreated:    "bomb_created",
	BombActivated:  "bomb_activated",
	TileDestroyed:  "tile_destroyed",
	ComboTriggered: "combo_triggered",
	BoardShuffled:  "board_shuffled",
	BoardStalled:   "board_stalled",
}

func (k Kind) String() string {
	if k > 0 && k < kindEnd {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	s := string(b)
	for i := Kind(1); i < kindEnd; i++ {
		if kindNames[i] == s {
			*k = i
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", s)
}

// Event 單一狀態變化。欄位依 Kind 使用：
//   - From/To：移動、交換、斜滑的起訖格；單格事件只用 From。
//   - Other：交換對象 id、消除格數或洗盤次數。
//   - Score：MatchCleared/BombActivated/ComboTriggered 的得分。
type Event struct {
	Seq        uint64         `json:"seq"`
	Tick       uint64         `json:"tick"`
	TimeMicros int64          `json:"t_us"`
	Kind       Kind           `json:"kind"`
	TileID     uint64         `json:"tile,omitempty"`
	Color      board.Color    `json:"color,omitempty"`
	Bomb       board.BombKind `json:"bomb,omitempty"`
	From       board.Position `json:"from"`
	To         board.Position `json:"to"`
	Other      uint64         `json:"other,omitempty"`
	Score      int64          `json:"score,omitempty"`
}

// Sink 事件接收端。
type Sink interface {
	Emit(Event)
}

// Nop 丟棄所有事件。
type Nop struct{}

func (Nop) Emit(Event) {}

// Buffer 依序保存事件。
type Buffer struct {
	Events []Event
}

func (b *Buffer) Emit(e Event) { b.Events = append(b.Events, e) }

// Reset 清空但保留容量。
func (b *Buffer) Reset() { b.Events = b.Events[:0] }

// Drain 取出目前所有事件（複本）並清空。
func (b *Buffer) Drain() []Event {
	out := make([]Event, len(b.Events))
	copy(out, b.Events)
	b.Reset()
	return out
}

// LogSink 以 slog Debug 輸出每一個事件。
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Emit(e Event) {
	if s.Log == nil || !s.Log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.Log.LogAttrs(context.Background(), slog.LevelDebug, e.Kind.String(),
		slog.Uint64("seq", e.Seq),
		slog.Uint64("tick", e.Tick),
		slog.Uint64("tile", e.TileID),
		slog.String("from", e.From.String()),
		slog.String("to", e.To.String()),
		slog.Int64("score", e.Score),
	)
}

// Tee 將事件依序轉送給多個 Sink。
type Tee []Sink

func (t Tee) Emit(e Event) {
	for _, s := range t {
		s.Emit(e)
	}
}

// Emitter 負責編號與時間戳，元件只填事件內容。
type Emitter struct {
	Sink     Sink
	DtMicros int64 // 每個 tick 的模擬時間

	seq uint64
}

func NewEmitter(sink Sink, dtMicros int64) *Emitter {
	if sink == nil {
		sink = Nop{}
	}
	return &Emitter{Sink: sink, DtMicros: dtMicros}
}

// Emit 指派 Seq/Tick/TimeMicros 後送出。
func (em *Emitter) Emit(tick uint64, e Event) {
	em.seq++
	e.Seq = em.seq
	e.Tick = tick
	e.TimeMicros = int64(tick) * em.DtMicros
	em.Sink.Emit(e)
}

// Seq 已送出的事件數。
func (em *Emitter) Seq() uint64 { return em.seq }

// Fork 回傳序號相同、改接新 Sink 的 Emitter。
func (em *Emitter) Fork(sink Sink) *Emitter {
	c := NewEmitter(sink, em.DtMicros)
	c.seq = em.seq
	return c
}
