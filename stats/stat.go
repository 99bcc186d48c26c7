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

// Package stats 模擬結果的統計報表與輸出。
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/cascadelab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// StatReport 關卡模擬統計報告
type StatReport struct {
	Summary *SummaryReport `json:"Summary"`
	Move    *MoveReport    `json:"Move"`
	Sum     *SumReport     `json:"Sum"`
	Dist    *DistReport    `json:"Dist"`
	Score   *ScoreEstimate `json:"Score,omitempty"`
	scores  []float64
	isDone  bool
}

type SummaryReport struct {
	LevelName     string   `json:"LevelName"`
	LevelId       spec.LID `json:"LevelId"`
	Policy        string   `json:"Policy"`
	MoveLimit     int      `json:"MoveLimit"`
	TargetScore   int64    `json:"TargetScore"`
	Games         int      `json:"Games"`
	Wins          int      `json:"Wins"`
	OutOfMoves    int      `json:"OutOfMoves"`
	Unsolvable    int      `json:"Unsolvable"`
	Capped        int      `json:"Capped"` // 超過單局操作上限而中止
	WinRate       float64  `json:"WinRate"`
	WinRateCI     CI       `json:"WinRateCI"`
	AvgScore      float64  `json:"AvgScore"`
	ScoreStd      float64  `json:"ScoreStd"`
	ScoreCI       CI       `json:"ScoreCI"`
	AvgMoves      float64  `json:"AvgMoves"`
	AvgMovesToWin float64  `json:"AvgMovesToWin"`
}

// MoveReport 操作層級統計；Moves 只計生效（扣步數）的操作
type MoveReport struct {
	Actions         int     `json:"Actions"`
	Moves           int     `json:"Moves"`
	Reverted        int     `json:"Reverted"`
	Rejected        int     `json:"Rejected"`
	Cascades        int     `json:"Cascades"`
	MaxCascades     int     `json:"MaxCascades"`
	Cleared         int     `json:"Cleared"`
	BombsCreated    int     `json:"BombsCreated"`
	Detonations     int     `json:"Detonations"`
	Combos          int     `json:"Combos"`
	Shuffles        int     `json:"Shuffles"`
	Ticks           int64   `json:"Ticks"`
	CascadesPerMove float64 `json:"CascadesPerMove"`
	ClearedPerMove  float64 `json:"ClearedPerMove"`
}

// SumReport 累積量，Done 時由此推出平均與標準差
type SumReport struct {
	ScoreSum    float64 `json:"ScoreSum"`
	ScoreSqSum  float64 `json:"ScoreSqSum"` // 平方和
	MovesSum    int     `json:"MovesSum"`
	WinMovesSum int     `json:"WinMovesSum"`
}

// DistReport 終局分數（相對目標分數）與單步連鎖深度的分布
type DistReport struct {
	ScoreBucket    []string  `json:"ScoreBucket"`
	ScoreCollect   []int     `json:"ScoreCollect"`
	ScoreDist      []float64 `json:"ScoreDist"`
	CascadeBucket  []string  `json:"CascadeBucket"`
	CascadeCollect []int     `json:"CascadeCollect"`
	CascadeDist    []float64 `json:"CascadeDist"`
}

// NewStatReport 建立空報表，分布欄位依 ScoreBuckets / CascadeBuckets 配置。
func NewStatReport(name string, id spec.LID, policy string, moveLimit int, target int64) *StatReport {
	return &StatReport{
		Summary: &SummaryReport{
			LevelName:   name,
			LevelId:     id,
			Policy:      policy,
			MoveLimit:   moveLimit,
			TargetScore: target,
		},
		Move: &MoveReport{},
		Sum:  &SumReport{},
		Dist: &DistReport{
			ScoreBucket:    ScoreBuckets.Labels(),
			ScoreCollect:   make([]int, ScoreBuckets.Len()),
			ScoreDist:      make([]float64, ScoreBuckets.Len()),
			CascadeBucket:  CascadeBuckets.Labels(),
			CascadeCollect: make([]int, CascadeBuckets.Len()),
			CascadeDist:    make([]float64, CascadeBuckets.Len()),
		},
	}
}

// SetScores 提供每局終局分數，Done 時用於分位數估計。
func (s *StatReport) SetScores(scores []float64) {
	s.scores = scores
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果；重複呼叫無作用。
func (s *StatReport) Done() {
	if s.isDone {
		return
	}
	sum := s.Summary
	_, sum.WinRateCI = proportionCICP(sum.Wins, sum.Games, 0.95)
	sum.WinRate = s.WinRate()
	sum.AvgScore = s.Mean()
	sum.ScoreStd = s.Std()
	sum.ScoreCI = s.Ci()
	if sum.Games > 0 {
		sum.AvgMoves = float64(s.Sum.MovesSum) / float64(sum.Games)
	}
	if sum.Wins > 0 {
		sum.AvgMovesToWin = float64(s.Sum.WinMovesSum) / float64(sum.Wins)
	}

	mv := s.Move
	if mv.Moves > 0 {
		mv.CascadesPerMove = float64(mv.Cascades) / float64(mv.Moves)
		mv.ClearedPerMove = float64(mv.Cleared) / float64(mv.Moves)
	}

	fillDist(s.Dist.ScoreCollect, s.Dist.ScoreDist)
	fillDist(s.Dist.CascadeCollect, s.Dist.CascadeDist)

	if len(s.scores) > 0 {
		s.Score = EstimateScore(s.scores, sum.TargetScore)
	}
	s.isDone = true
}

// WinRate 過關局數 / 總局數
func (s *StatReport) WinRate() float64 {
	if s.Summary.Games == 0 {
		return 0
	}
	return float64(s.Summary.Wins) / float64(s.Summary.Games)
}

// Mean 平均終局分數
func (s *StatReport) Mean() float64 {
	if s.Summary.Games == 0 {
		return 0
	}
	return s.Sum.ScoreSum / float64(s.Summary.Games)
}

// Std 終局分數的樣本標準差
func (s *StatReport) Std() float64 {
	n := float64(s.Summary.Games)
	if n < 2 {
		return 0
	}
	variance := (s.Sum.ScoreSqSum - s.Sum.ScoreSum*s.Sum.ScoreSum/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Ci 平均分數的 95% 信賴區間（Student t）
func (s *StatReport) Ci() CI {
	return meanCI(s.Mean(), s.Std(), s.Summary.Games, 0.95)
}

func (s *StatReport) WriteWith(w io.Writer, rep StatReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 印出用時與摘要表
func (s *StatReport) StdOut(ut time.Duration) {
	s.Done()
	fmt.Print(formatDuration(ut, s.Summary.Games))
	sk, sm := s.fmtBasic()
	fmt.Println(fmtTable(s.Summary.LevelName, sk, sm))
}

// ============================================================
// ** 內部方法 **
// ============================================================

func fillDist(collect []int, dist []float64) {
	total := 0
	for _, c := range collect {
		total += c
	}
	if total == 0 {
		return
	}
	for i, c := range collect {
		dist[i] = float64(c) / float64(total)
	}
}

func formatDuration(d time.Duration, games int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	gps := int(float64(games) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\ngps : %d games/sec\n", sec, gps)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\ngps : %d games/sec\n", m, s, gps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\ngps : %d games/sec\n", h, m, s, gps)
}

func (s *StatReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	sum, mv := s.Summary, s.Move
	basic := map[string]string{
		"Level Name":       p.Sprintf("%s", sum.LevelName),
		"Level ID":         fmt.Sprintf("%d", sum.LevelId),
		"Policy":           sum.Policy,
		"Games":            p.Sprintf("%d", sum.Games),
		"Win Rate":         p.Sprintf("%.2f %%", 100.0*sum.WinRate),
		"Win Rate 95% CI":  p.Sprintf("[%.2f%%,%.2f%%]", 100.0*sum.WinRateCI.Lo, 100.0*sum.WinRateCI.Hi),
		"Out Of Moves":     p.Sprintf("%d", sum.OutOfMoves),
		"Unsolvable":       p.Sprintf("%d", sum.Unsolvable),
		"Capped":           p.Sprintf("%d", sum.Capped),
		"Avg Score":        p.Sprintf("%.1f", sum.AvgScore),
		"Score 95% CI":     p.Sprintf("[%.1f,%.1f]", sum.ScoreCI.Lo, sum.ScoreCI.Hi),
		"Score STD":        p.Sprintf("%.1f", sum.ScoreStd),
		"Avg Moves":        p.Sprintf("%.2f", sum.AvgMoves),
		"Avg Moves To Win": p.Sprintf("%.2f", sum.AvgMovesToWin),
		"Cascades / Move":  p.Sprintf("%.3f", mv.CascadesPerMove),
		"Max Cascades":     p.Sprintf("%d", mv.MaxCascades),
		"Bombs Created":    p.Sprintf("%d", mv.BombsCreated),
		"Detonations":      p.Sprintf("%d", mv.Detonations),
		"Combos":           p.Sprintf("%d", mv.Combos),
		"Shuffles":         p.Sprintf("%d", mv.Shuffles),
	}
	keys := []string{"Level Name", "Level ID", "Policy", "Games", "Win Rate", "Win Rate 95% CI", "Out Of Moves", "Unsolvable", "Capped",
		"Avg Score", "Score 95% CI", "Score STD", "Avg Moves", "Avg Moves To Win", "Cascades / Move", "Max Cascades", "Bombs Created", "Detonations", "Combos", "Shuffles"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
