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
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/zintix-labs/cascadelab/corefmt"
	"github.com/zintix-labs/cascadelab/dto"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/spec"
)

// maxPlaythroughBytes 解壓後的回放檔上限
const maxPlaythroughBytes = 16 << 20

// Playthrough 一局完整的可重播紀錄：關卡 + seed + 操作序列，以及終局的驗證資訊。
//
// 引擎是決定性的，同一份 Playthrough 在任何機器上重播都必須得到同樣的
// 終局盤面（GridHash）與事件 log（EventHash）。
type Playthrough struct {
	ID        uuid.UUID    `json:"id"`
	LevelID   spec.LID     `json:"level_id"`
	LevelName string       `json:"level"`
	Seed      int64        `json:"seed"`
	Policy    string       `json:"policy,omitempty"`
	Actions   []dto.Action `json:"actions"`
	Score     int64        `json:"score"`
	Moves     int          `json:"moves"`
	Won       bool         `json:"won"`
	GridHash  uint64       `json:"grid_hash"`
	Events    uint64       `json:"events,omitempty"`
	EventHash uint64       `json:"event_hash,omitempty"` // 0 表示錄製時未收集事件
}

func newPlaythrough(id spec.LID, name string, seed int64) *Playthrough {
	return &Playthrough{
		ID:        uuid.New(),
		LevelID:   id,
		LevelName: name,
		Seed:      seed,
		Actions:   make([]dto.Action, 0, 32),
	}
}

// EncodeB64U 編成 token（JSON -> zstd -> base64url），方便放進 JSON 或 URL。
func (p *Playthrough) EncodeB64U() (string, error) {
	return corefmt.EncodeToken(p)
}

func DecodePlaythroughB64U(s string) (*Playthrough, error) {
	p := new(Playthrough)
	if err := corefmt.DecodeToken(s, maxPlaythroughBytes, p); err != nil {
		return nil, errs.Wrap(err, "decode playthrough")
	}
	return p, nil
}

// ReplayReport 重播結果；Match 為 false 時 Mismatch 列出不一致的欄位。
type ReplayReport struct {
	ID        uuid.UUID            `json:"id"`
	Match     bool                 `json:"match"`
	Mismatch  []string             `json:"mismatch,omitempty"`
	Score     int64                `json:"score"`
	Moves     int                  `json:"moves"`
	Won       bool                 `json:"won"`
	GridHash  uint64               `json:"grid_hash"`
	Events    uint64               `json:"events"`
	EventHash uint64               `json:"event_hash"`
	Results   []cascade.MoveResult `json:"results"`
}

func replay(p *Playthrough, ls *spec.LevelSetting, es *spec.EngineSetting, reg *PredictorRegistry, cf core.PRNGFactory) (*ReplayReport, error) {
	if p == nil {
		return nil, errs.NewWarn("nil playthrough")
	}
	m, err := newMachineWithSeed(ls, es, reg, cf, p.Seed, false)
	if err != nil {
		return nil, err
	}
	if err := m.NewGame(p.Seed); err != nil {
		return nil, err
	}
	results := make([]cascade.MoveResult, 0, len(p.Actions))
	for i, a := range p.Actions {
		res, err := m.Apply(a)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("replay action %d", i))
		}
		results = append(results, res)
	}
	got := m.Finish()
	rep := &ReplayReport{
		ID:        p.ID,
		Score:     got.Score,
		Moves:     got.Moves,
		Won:       got.Won,
		GridHash:  got.GridHash,
		Events:    got.Events,
		EventHash: got.EventHash,
		Results:   results,
	}
	if got.Score != p.Score {
		rep.Mismatch = append(rep.Mismatch, "score")
	}
	if got.Moves != p.Moves {
		rep.Mismatch = append(rep.Mismatch, "moves")
	}
	if got.Won != p.Won {
		rep.Mismatch = append(rep.Mismatch, "won")
	}
	if got.GridHash != p.GridHash {
		rep.Mismatch = append(rep.Mismatch, "grid_hash")
	}
	if p.EventHash != 0 && (got.EventHash != p.EventHash || got.Events != p.Events) {
		rep.Mismatch = append(rep.Mismatch, "event_hash")
	}
	rep.Match = len(rep.Mismatch) == 0
	return rep, nil
}

// eventHasher 以 FNV-1a 累積事件 log 的雜湊（欄位固定順序、小端序）。
type eventHasher struct {
	h   hash.Hash64
	buf [75]byte
	n   uint64
}

func newEventHasher() *eventHasher {
	return &eventHasher{h: fnv.New64a()}
}

var _ event.Sink = (*eventHasher)(nil)

func (eh *eventHasher) Emit(e event.Event) {
	b := eh.buf[:0]
	b = binary.LittleEndian.AppendUint64(b, e.Seq)
	b = binary.LittleEndian.AppendUint64(b, e.Tick)
	b = binary.LittleEndian.AppendUint64(b, uint64(e.TimeMicros))
	b = append(b, byte(e.Kind), byte(e.Color), byte(e.Bomb))
	b = binary.LittleEndian.AppendUint64(b, e.TileID)
	b = binary.LittleEndian.AppendUint64(b, uint64(int64(e.From.Col))<<32|uint64(uint32(e.From.Row)))
	b = binary.LittleEndian.AppendUint64(b, uint64(int64(e.To.Col))<<32|uint64(uint32(e.To.Row)))
	b = binary.LittleEndian.AppendUint64(b, e.Other)
	b = binary.LittleEndian.AppendUint64(b, uint64(e.Score))
	_, _ = eh.h.Write(b)
	eh.n++
}

func (eh *eventHasher) Sum64() uint64 { return eh.h.Sum64() }
