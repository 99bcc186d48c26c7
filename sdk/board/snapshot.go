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

package board

import (
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/core"
)

// Snapshot 穩定盤面的完整可恢復狀態。
//
// 盤面以 level token 保存，所以只能在沒有方塊落下時建立；
// 亂數子流以 Streams.Snapshot 的 frame 格式保存。
type Snapshot struct {
	Rows           []string `json:"rows"`
	IDs            []uint64 `json:"ids"`
	Score          int64    `json:"score"`
	Moves          int      `json:"moves"`
	MoveLimit      int      `json:"move_limit"`
	TargetScore    int64    `json:"target_score"`
	Difficulty     float64  `json:"difficulty"`
	GoalProgress   float64  `json:"goal_progress"`
	RecentFailures int      `json:"recent_failures"`
	Tick           uint64   `json:"tick"`
	NextID         uint64   `json:"next_id"`
	Seed           int64    `json:"seed"`
	Streams        []byte   `json:"streams"`
	Cursor         uint64   `json:"cursor,omitempty"` // 補牌策略遊標，由 cascade 填入
}

// Snapshot 取得目前狀態；仍有方塊在空中時回傳錯誤。
func (s *State) Snapshot() (Snapshot, error) {
	g := s.Grid
	if g.AnyFalling() {
		return Snapshot{}, errs.NewWarn("snapshot: board is not settled")
	}
	streams, err := s.Streams.Snapshot()
	if err != nil {
		return Snapshot{}, err
	}
	ids := make([]uint64, len(g.Cells))
	for i := range g.Cells {
		ids[i] = g.Cells[i].ID
	}
	return Snapshot{
		Rows:           g.Rows(),
		IDs:            ids,
		Score:          s.Score,
		Moves:          s.Moves,
		MoveLimit:      s.MoveLimit,
		TargetScore:    s.TargetScore,
		Difficulty:     s.Difficulty,
		GoalProgress:   s.GoalProgress,
		RecentFailures: s.RecentFailures,
		Tick:           s.Tick,
		NextID:         s.nextID,
		Seed:           s.Streams.Seed(),
		Streams:        streams,
	}, nil
}

// RestoreState 由 Snapshot 重建狀態，子流以 factory 重新建立後還原。
func RestoreState(snap Snapshot, factory core.PRNGFactory) (*State, error) {
	if factory == nil {
		return nil, errs.NewFatal("restore state: prng factory required")
	}
	cells, w, h, err := ParseRows(snap.Rows)
	if err != nil {
		return nil, errs.Wrap(err, "restore state")
	}
	if len(snap.IDs) != w*h {
		return nil, errs.Warnf("restore state: %d ids for %dx%d board", len(snap.IDs), w, h)
	}
	streams := core.NewStreams(factory, snap.Seed)
	if err := streams.Restore(snap.Streams); err != nil {
		return nil, err
	}
	st := &State{
		Grid:           NewGrid(w, h),
		Score:          snap.Score,
		Moves:          snap.Moves,
		MoveLimit:      snap.MoveLimit,
		TargetScore:    snap.TargetScore,
		Difficulty:     snap.Difficulty,
		GoalProgress:   snap.GoalProgress,
		RecentFailures: snap.RecentFailures,
		Tick:           snap.Tick,
		Streams:        streams,
		nextID:         snap.NextID,
	}
	for i, c := range cells {
		if c.Random {
			return nil, errs.Warnf("restore state: random cell at %d", i)
		}
		if c.Color == Empty {
			continue
		}
		id := snap.IDs[i]
		if id == 0 || id > snap.NextID {
			return nil, errs.Warnf("restore state: invalid tile id %d at %d", id, i)
		}
		p := st.Grid.Pos(i)
		t := st.Grid.At(p)
		*t = Tile{ID: id, Color: c.Color, Bomb: c.Bomb}
		t.Place(p)
		if c.Suspended {
			t.Flags |= FlagSuspended
		}
	}
	return st, nil
}
