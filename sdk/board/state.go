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
	"github.com/zintix-labs/cascadelab/sdk/core"
)

// State 一局遊戲的全部可變狀態。純資料，可 Clone 給平行模擬。
type State struct {
	Grid           *Grid
	Score          int64
	Moves          int
	MoveLimit      int
	TargetScore    int64
	Difficulty     float64
	GoalProgress   float64
	RecentFailures int
	Tick           uint64
	Streams        *core.Streams

	nextID uint64
}

// NewState 以關卡放置固定方塊；Random 格保持空格，由補牌器的 Fill 填入。
func NewState(lv *Level, streams *core.Streams) *State {
	st := &State{
		Grid:        NewGrid(lv.Width, lv.Height),
		MoveLimit:   lv.MoveLimit,
		TargetScore: lv.TargetScore,
		Difficulty:  lv.Difficulty,
		Streams:     streams,
	}
	for i, c := range lv.Cells {
		if c.Random || c.Color == Empty {
			continue
		}
		t := st.Spawn(st.Grid.Pos(i), c.Color, c.Bomb)
		if c.Suspended {
			t.Flags |= FlagSuspended
		}
	}
	return st
}

// StateFromRows 以 token 列直接建立狀態（自訂盤面、測試用），不做關卡驗證。
func StateFromRows(rows []string, streams *core.Streams) (*State, error) {
	cells, w, h, err := ParseRows(rows)
	if err != nil {
		return nil, err
	}
	return NewState(&Level{Width: w, Height: h, Cells: cells, Colors: MaxColors}, streams), nil
}

// NextID 取得下一個方塊 id（單調遞增，從 1 開始）。
func (s *State) NextID() uint64 {
	s.nextID++
	return s.nextID
}

// Spawn 在 p 放置一個已落定的新方塊。
func (s *State) Spawn(p Position, c Color, b BombKind) *Tile {
	t := s.Grid.At(p)
	*t = Tile{ID: s.NextID(), Color: c, Bomb: b}
	t.Place(p)
	return t
}

// MovesRemaining 回傳剩餘步數；不限步數回傳 -1。
func (s *State) MovesRemaining() int {
	if s.MoveLimit <= 0 {
		return -1
	}
	if r := s.MoveLimit - s.Moves; r > 0 {
		return r
	}
	return 0
}

// Won 回報是否已達過關分數（無目標的關卡永遠為 false）。
func (s *State) Won() bool {
	return s.TargetScore > 0 && s.Score >= s.TargetScore
}

// UpdateGoal 依分數更新 GoalProgress，上限 1。
func (s *State) UpdateGoal() {
	if s.TargetScore <= 0 {
		return
	}
	p := float64(s.Score) / float64(s.TargetScore)
	if p > 1 {
		p = 1
	}
	s.GoalProgress = p
}

// OutOfMoves 回報是否已用完步數。
func (s *State) OutOfMoves() bool {
	return s.MoveLimit > 0 && s.Moves >= s.MoveLimit
}

// Clone 深拷貝盤面與所有亂數子流。
func (s *State) Clone() (*State, error) {
	streams, err := s.Streams.Clone()
	if err != nil {
		return nil, err
	}
	c := *s
	c.Grid = s.Grid.Clone()
	c.Streams = streams
	return &c, nil
}
