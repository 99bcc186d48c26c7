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

package v1

import (
	"net/http"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/recorder"
	"github.com/zintix-labs/cascadelab/server/httperr"
	"github.com/zintix-labs/cascadelab/spec"
)

// GameResult 外部回報的一局結算
type GameResult struct {
	Score      int64 `json:"score"`
	Moves      int   `json:"moves"`
	Won        bool  `json:"won"`
	OutOfMoves bool  `json:"out_of_moves"`
	Unsolvable bool  `json:"unsolvable"`
}

// StatRequest 由外部收集的結算資料（例如線上玩家）重算統計報表。
type StatRequest struct {
	LevelID     spec.LID     `json:"level_id"`
	LevelName   string       `json:"level"`
	MoveLimit   int          `json:"move_limit"`
	TargetScore int64        `json:"target_score"`
	Games       []GameResult `json:"games"`
}

// Stat POST /v1/stat
func Stat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperr.Errs(w, errs.NewWarn("method not allowed"))
		return
	}
	req := new(StatRequest)
	if err := decodeBody(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	if len(req.Games) < 1 {
		httperr.Errs(w, errs.NewWarn("games must not be empty"))
		return
	}
	if req.LevelName == "" {
		req.LevelName = "external"
	}
	rec, err := recorder.NewMoveRecorder(req.LevelName, req.LevelID, "external", req.MoveLimit, req.TargetScore)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	for _, g := range req.Games {
		rec.RecordGame(recorder.GameEnd{
			Score:      g.Score,
			Moves:      g.Moves,
			Won:        g.Won,
			OutOfMoves: g.OutOfMoves,
			Unsolvable: g.Unsolvable,
		})
	}
	writeJSON(w, rec.Done())
}
