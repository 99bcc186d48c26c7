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

package stats_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/cascadelab/stats"
	"gopkg.in/yaml.v3"
)

// buildStatReport 以每局終局分數建立報表，wins 為過關局數（取前 wins 局）。
func buildStatReport(target int64, scores []int64, wins int) *stats.StatReport {
	rep := stats.NewStatReport("TestLevel", 7, "first", 20, target)
	fs := make([]float64, 0, len(scores))
	for i, s := range scores {
		rep.Summary.Games++
		rep.Sum.ScoreSum += float64(s)
		rep.Sum.ScoreSqSum += float64(s) * float64(s)
		rep.Sum.MovesSum += 10
		if i < wins {
			rep.Summary.Wins++
			rep.Sum.WinMovesSum += 10
		}
		rep.Dist.ScoreCollect[stats.ScoreIndex(s, target)]++
		fs = append(fs, float64(s))
	}
	rep.SetScores(fs)
	return rep
}

func TestScoreIndex(t *testing.T) {
	cases := []struct {
		score, target int64
		want          int
	}{
		{0, 1000, 0},
		{-5, 1000, 0},
		{1, 1000, 1},
		{249, 1000, 1},
		{250, 1000, 2},
		{999, 1000, 4},
		{1000, 1000, 5},
		{1999, 1000, 6},
		{5000, 1000, 7},
		{500, 0, 3}, // 沒有目標分數時以 1000 為 100%
	}
	for _, c := range cases {
		if got := stats.ScoreIndex(c.score, c.target); got != c.want {
			t.Fatalf("ScoreIndex(%d,%d) got %d want %d", c.score, c.target, got, c.want)
		}
	}
}

func TestCascadeBuckets(t *testing.T) {
	labels := stats.CascadeBuckets.Labels()
	want := map[int64]string{0: "0", 1: "1", 2: "2", 5: "5", 6: "6-9", 9: "6-9", 10: "10+", 64: "10+"}
	for v, l := range want {
		if got := labels[stats.CascadeBuckets.Index(v)]; got != l {
			t.Fatalf("cascade %d in %q want %q", v, got, l)
		}
	}
}

func TestStatReportCoreMetrics(t *testing.T) {
	rep := buildStatReport(1000, []int64{100, 200}, 1)
	rep.Done()

	sum := rep.Summary
	if sum.WinRate != 0.5 {
		t.Fatalf("WinRate got %.6f want 0.5", sum.WinRate)
	}
	if sum.AvgScore != 150 {
		t.Fatalf("AvgScore got %.6f want 150", sum.AvgScore)
	}
	wantStd := math.Sqrt(5000)
	if math.Abs(sum.ScoreStd-wantStd) > 1e-9 {
		t.Fatalf("Std got %.9f want %.9f", sum.ScoreStd, wantStd)
	}
	if !(sum.ScoreCI.Lo < 150 && sum.ScoreCI.Hi > 150) {
		t.Fatalf("ScoreCI %+v does not contain mean", sum.ScoreCI)
	}
	if !(sum.WinRateCI.Lo < 0.5 && sum.WinRateCI.Hi > 0.5) {
		t.Fatalf("WinRateCI %+v does not contain win rate", sum.WinRateCI)
	}
	if sum.AvgMoves != 10 || sum.AvgMovesToWin != 10 {
		t.Fatalf("AvgMoves %.2f AvgMovesToWin %.2f", sum.AvgMoves, sum.AvgMovesToWin)
	}

	total := 0.0
	for _, d := range rep.Dist.ScoreDist {
		total += d
	}
	if math.Abs(total-1) > 1e-12 {
		t.Fatalf("score dist sums to %.12f", total)
	}
	if rep.Score == nil {
		t.Fatalf("score estimate missing")
	}

	rep.Sum.ScoreSum = 0 // Done 只作用一次
	rep.Done()
	if rep.Summary.AvgScore != 150 {
		t.Fatalf("AvgScore changed after second Done")
	}
}

func TestStatReportEmpty(t *testing.T) {
	rep := stats.NewStatReport("Empty", 1, "first", 0, 0)
	rep.Done()
	if rep.Summary.WinRate != 0 || rep.Summary.AvgScore != 0 || rep.Summary.ScoreStd != 0 {
		t.Fatalf("empty report should be all zero: %+v", rep.Summary)
	}
	if rep.Score != nil {
		t.Fatalf("empty report should not carry a score estimate")
	}
}

func TestEstimateScore(t *testing.T) {
	scores := make([]float64, 100)
	for i := range scores {
		scores[99-i] = float64(i) // 反序輸入，估計內部自行排序
	}
	est := stats.EstimateScore(scores, 100)
	if est.P10.Hat != 10 || est.P50.Hat != 50 || est.P90.Hat != 90 {
		t.Fatalf("quantiles got %.0f/%.0f/%.0f", est.P10.Hat, est.P50.Hat, est.P90.Hat)
	}
	if est.P50.CI.Lo > 50 || est.P50.CI.Hi < 50 {
		t.Fatalf("P50 CI %+v does not contain 50", est.P50.CI)
	}
	if est.HalfTarget.Hat != 0.5 {
		t.Fatalf("HalfTarget got %.3f want 0.5", est.HalfTarget.Hat)
	}
	if scores[0] != 99 {
		t.Fatalf("input slice was modified")
	}
}

func TestStatReportRenders(t *testing.T) {
	for _, name := range []string{"json", "yaml", "table"} {
		r, ok := stats.NewStatReportRender(name)
		if !ok {
			t.Fatalf("render %s not found", name)
		}
		rep := buildStatReport(1000, []int64{0, 500, 1200}, 1)
		var buf bytes.Buffer
		if err := rep.WriteWith(&buf, r); err != nil {
			t.Fatalf("%s write: %v", name, err)
		}
		if !strings.Contains(buf.String(), "TestLevel") {
			t.Fatalf("%s output missing level name:\n%s", name, buf.String())
		}
		if name == "json" {
			var back stats.StatReport
			if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
				t.Fatalf("json decode: %v", err)
			}
			if back.Summary.Games != 3 || back.Summary.Wins != 1 {
				t.Fatalf("json summary got %+v", back.Summary)
			}
		}
	}
	if _, ok := stats.NewStatReportRender("xml"); ok {
		t.Fatalf("unknown render should not exist")
	}
}

func TestYAMLDistributionsInline(t *testing.T) {
	r, _ := stats.NewStatReportRender("yml")
	rep := buildStatReport(1000, []int64{0, 500, 1200}, 1)
	var buf bytes.Buffer
	if err := rep.WriteWith(&buf, r); err != nil {
		t.Fatalf("yaml write: %v", err)
	}
	if !strings.Contains(buf.String(), "[") {
		t.Fatalf("distribution not rendered inline:\n%s", buf.String())
	}
	var back map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}
	if _, ok := back["summary"]; !ok {
		t.Fatalf("yaml missing summary: %v", back)
	}
}
