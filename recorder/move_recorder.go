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

// Package recorder 模擬時逐步累積計數（只處理整數），結束後轉成 stats.StatReport。
package recorder

import (
	"fmt"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/spec"
	"github.com/zintix-labs/cascadelab/stats"
)

// MoveRecorder 對局紀錄員：每個 worker 一份，最後以 MergeMoveRecorder 合併。
type MoveRecorder struct {
	LevelName   string
	LevelId     spec.LID
	Policy      string
	MoveLimit   int
	TargetScore int64
	Game        *GameRecord
	Move        *MoveRecord
	Dist        *DistRecord
	scores      []float64
}

// GameRecord 每局結算的累積
type GameRecord struct {
	Games       int
	Wins        int
	OutOfMoves  int
	Unsolvable  int
	Capped      int
	ScoreSum    int64
	ScoreSqSum  float64
	MovesSum    int
	WinMovesSum int
}

// MoveRecord 每次操作的累積
type MoveRecord struct {
	Actions      int
	Moves        int
	Reverted     int
	Rejected     int
	Cascades     int
	MaxCascades  int
	Cleared      int
	BombsCreated int
	Detonations  int
	Combos       int
	Shuffles     int
	Ticks        int64
}

// DistRecord 分桶計數
type DistRecord struct {
	ScoreCollect   []int
	CascadeCollect []int
}

// GameEnd 一局的結算資訊
type GameEnd struct {
	Score      int64
	Moves      int
	Won        bool
	OutOfMoves bool
	Unsolvable bool
	Capped     bool
}

func NewMoveRecorder(name string, id spec.LID, policy string, moveLimit int, target int64) (*MoveRecorder, error) {
	if name == "" {
		return nil, errs.NewFatal("recorder: level name required")
	}
	return &MoveRecorder{
		LevelName:   name,
		LevelId:     id,
		Policy:      policy,
		MoveLimit:   moveLimit,
		TargetScore: target,
		Game:        new(GameRecord),
		Move:        new(MoveRecord),
		Dist: &DistRecord{
			ScoreCollect:   make([]int, stats.ScoreBuckets.Len()),
			CascadeCollect: make([]int, stats.CascadeBuckets.Len()),
		},
		scores: make([]float64, 0, 1024),
	}, nil
}

// RecordMove 記錄一次操作；只有 Resolved / Unsolvable 這種真正扣步數的操作計入 Moves 與連鎖分布。
func (r *MoveRecorder) RecordMove(res cascade.MoveResult) {
	mv := r.Move
	mv.Actions++
	mv.Shuffles += res.Shuffled
	mv.Ticks += int64(res.Ticks)
	switch res.Outcome {
	case cascade.OutcomeReverted:
		mv.Reverted++
		return
	case cascade.OutcomeRejected, cascade.OutcomeOutOfMoves:
		mv.Rejected++
		return
	}
	if res.Cleared == 0 && res.Cascades == 0 && res.Detonations == 0 && res.Combos == 0 {
		// 死局狀態下送出的操作
		mv.Rejected++
		return
	}
	mv.Moves++
	mv.Cascades += res.Cascades
	mv.MaxCascades = max(mv.MaxCascades, res.Cascades)
	mv.Cleared += res.Cleared
	mv.BombsCreated += res.BombsCreated
	mv.Detonations += res.Detonations
	mv.Combos += res.Combos
	r.Dist.CascadeCollect[stats.CascadeBuckets.Index(int64(res.Cascades))]++
}

// RecordGame 記錄一局結算。
func (r *MoveRecorder) RecordGame(end GameEnd) {
	g := r.Game
	g.Games++
	g.ScoreSum += end.Score
	g.ScoreSqSum += float64(end.Score) * float64(end.Score)
	g.MovesSum += end.Moves
	switch {
	case end.Won:
		g.Wins++
		g.WinMovesSum += end.Moves
	case end.Unsolvable:
		g.Unsolvable++
	case end.OutOfMoves:
		g.OutOfMoves++
	case end.Capped:
		g.Capped++
	}
	r.Dist.ScoreCollect[stats.ScoreIndex(end.Score, r.TargetScore)]++
	r.scores = append(r.scores, float64(end.Score))
}

// MergeMoveRecorder 合併多個紀錄員；關卡必須一致。
func MergeMoveRecorder(rs []*MoveRecorder) (*MoveRecorder, error) {
	if len(rs) == 0 {
		return nil, errs.NewFatal("merge move recorder: empty input")
	}
	r0 := rs[0]
	out, err := NewMoveRecorder(r0.LevelName, r0.LevelId, r0.Policy, r0.MoveLimit, r0.TargetScore)
	if err != nil {
		return nil, err
	}
	for i, r := range rs {
		if r.LevelId != r0.LevelId || r.LevelName != r0.LevelName {
			return nil, errs.NewFatal(fmt.Sprintf("merge move recorder: recorder #%d has a different level", i))
		}
		g, og := r.Game, out.Game
		og.Games += g.Games
		og.Wins += g.Wins
		og.OutOfMoves += g.OutOfMoves
		og.Unsolvable += g.Unsolvable
		og.Capped += g.Capped
		og.ScoreSum += g.ScoreSum
		og.ScoreSqSum += g.ScoreSqSum
		og.MovesSum += g.MovesSum
		og.WinMovesSum += g.WinMovesSum

		m, om := r.Move, out.Move
		om.Actions += m.Actions
		om.Moves += m.Moves
		om.Reverted += m.Reverted
		om.Rejected += m.Rejected
		om.Cascades += m.Cascades
		om.MaxCascades = max(om.MaxCascades, m.MaxCascades)
		om.Cleared += m.Cleared
		om.BombsCreated += m.BombsCreated
		om.Detonations += m.Detonations
		om.Combos += m.Combos
		om.Shuffles += m.Shuffles
		om.Ticks += m.Ticks

		for j, c := range r.Dist.ScoreCollect {
			out.Dist.ScoreCollect[j] += c
		}
		for j, c := range r.Dist.CascadeCollect {
			out.Dist.CascadeCollect[j] += c
		}
		out.scores = append(out.scores, r.scores...)
	}
	return out, nil
}

// Reset 清空計數以重用。
func (r *MoveRecorder) Reset() {
	*r.Game = GameRecord{}
	*r.Move = MoveRecord{}
	clear(r.Dist.ScoreCollect)
	clear(r.Dist.CascadeCollect)
	r.scores = r.scores[:0]
}

// Done 輸出統計報表（已呼叫 StatReport.Done）。
func (r *MoveRecorder) Done() *stats.StatReport {
	st := stats.NewStatReport(r.LevelName, r.LevelId, r.Policy, r.MoveLimit, r.TargetScore)
	g := r.Game
	st.Summary.Games = g.Games
	st.Summary.Wins = g.Wins
	st.Summary.OutOfMoves = g.OutOfMoves
	st.Summary.Unsolvable = g.Unsolvable
	st.Summary.Capped = g.Capped
	st.Sum.ScoreSum = float64(g.ScoreSum)
	st.Sum.ScoreSqSum = g.ScoreSqSum
	st.Sum.MovesSum = g.MovesSum
	st.Sum.WinMovesSum = g.WinMovesSum

	m := r.Move
	*st.Move = stats.MoveReport{
		Actions:      m.Actions,
		Moves:        m.Moves,
		Reverted:     m.Reverted,
		Rejected:     m.Rejected,
		Cascades:     m.Cascades,
		MaxCascades:  m.MaxCascades,
		Cleared:      m.Cleared,
		BombsCreated: m.BombsCreated,
		Detonations:  m.Detonations,
		Combos:       m.Combos,
		Shuffles:     m.Shuffles,
		Ticks:        m.Ticks,
	}
	copy(st.Dist.ScoreCollect, r.Dist.ScoreCollect)
	copy(st.Dist.CascadeCollect, r.Dist.CascadeCollect)
	scores := make([]float64, len(r.scores))
	copy(scores, r.scores)
	st.SetScores(scores)
	st.Done()
	return st
}
