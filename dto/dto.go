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

// Package dto 對外（HTTP / 回放檔）的資料結構與狀態字串編碼。
package dto

import (
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/spec"
)

// ActionType 玩家操作種類。
type ActionType string

const (
	ActionSwap     ActionType = "swap"
	ActionActivate ActionType = "activate"
)

// Action 一次玩家操作；activate 只使用 A。
type Action struct {
	Type ActionType     `json:"type"   yaml:"type"`
	A    board.Position `json:"a"      yaml:"a"`
	B    board.Position `json:"b"      yaml:"b"`
}

// Swap / Activate 建立操作的捷徑。
func Swap(a, b board.Position) Action  { return Action{Type: ActionSwap, A: a, B: b} }
func Activate(p board.Position) Action { return Action{Type: ActionActivate, A: p} }

func (a Action) Valid() error {
	switch a.Type {
	case ActionSwap, ActionActivate:
		return nil
	default:
		return errs.NewWarn("unknown action type: " + string(a.Type))
	}
}

// Board 盤面：level token 列（見 board.ParseCell）與每格方塊 id。
type Board struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Rows   []string `json:"rows"`
	IDs    []uint64 `json:"ids,omitempty"`
}

func NewBoard(g *board.Grid) Board {
	ids := make([]uint64, len(g.Cells))
	for i := range g.Cells {
		ids[i] = g.Cells[i].ID
	}
	return Board{Width: g.W, Height: g.H, Rows: g.Rows(), IDs: ids}
}

// GameState 一局在等待輸入時的對外狀態。
//
// StateB64U 為完整可恢復狀態（盤面、計數、亂數子流），下一次 move 請原樣帶回。
type GameState struct {
	LevelID      spec.LID `json:"level_id"`
	LevelName    string   `json:"level"`
	Board        Board    `json:"board"`
	Score        int64    `json:"score"`
	Moves        int      `json:"moves"`
	MovesLeft    int      `json:"moves_left"` // -1 表示不限步數
	TargetScore  int64    `json:"target_score"`
	GoalProgress float64  `json:"goal_progress"`
	Phase        string   `json:"phase"`
	Won          bool     `json:"won"`
	Over         bool     `json:"over"`
	StateB64U    string   `json:"state_b64u"`
}

// NewGameState 由引擎組出對外狀態，包含編碼後的快照。
func NewGameState(id spec.LID, name string, e *cascade.Engine) (GameState, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return GameState{}, err
	}
	enc, err := EncodeState(snap)
	if err != nil {
		return GameState{}, err
	}
	st := e.State()
	return GameState{
		LevelID:      id,
		LevelName:    name,
		Board:        NewBoard(st.Grid),
		Score:        st.Score,
		Moves:        st.Moves,
		MovesLeft:    st.MovesRemaining(),
		TargetScore:  st.TargetScore,
		GoalProgress: st.GoalProgress,
		Phase:        e.Phase().String(),
		Won:          st.Won(),
		Over:         e.Over(),
		StateB64U:    enc,
	}, nil
}

// MoveResult 一次操作的完整回應：統計、事件 log 與操作後的狀態。
type MoveResult struct {
	Action    Action             `json:"action"`
	Result    cascade.MoveResult `json:"result"`
	Events    []event.Event      `json:"events,omitempty"`
	StartB64U string             `json:"start_b64u"`
	State     GameState          `json:"state"`
}
