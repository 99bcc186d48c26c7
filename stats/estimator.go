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

package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// PointStat 點估計與信賴區間
type PointStat struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// ScoreEstimate 以玩家體驗視角看終局分數分布。
//
//   - P10/P50/P90：最差 10%、中位數、最好 10% 玩家的分數（含 order statistic 區間）。
//   - HalfTarget：終局分數不到目標一半的玩家比例（Clopper–Pearson）。
type ScoreEstimate struct {
	P10        PointStat `json:"P10"`
	P50        PointStat `json:"P50"`
	P90        PointStat `json:"P90"`
	HalfTarget PointStat `json:"HalfTarget"`
}

// EstimateScore 由每局終局分數估計分位數。
func EstimateScore(scores []float64, target int64) *ScoreEstimate {
	if target <= 0 {
		target = defaultScoreUnit
	}
	cp := make([]float64, len(scores))
	copy(cp, scores)
	sort.Float64s(cp)

	est := &ScoreEstimate{}
	for _, q := range []struct {
		dst *PointStat
		q   float64
	}{{&est.P10, 0.10}, {&est.P50, 0.50}, {&est.P90, 0.90}} {
		lo, hi := quantileCI(cp, q.q, 0.95)
		*q.dst = PointStat{Hat: quantilePoint(cp, q.q), CI: CI{Lo: lo, Hi: hi}}
	}
	// 嚴格低於一半
	half := float64(target)/2 - 1e-9
	hat, ci := percentileCIForValue(cp, half, 0.95)
	est.HalfTarget = PointStat{Hat: hat, CI: ci}
	return est
}

// Out 印出分位數表
func (est *ScoreEstimate) Out() {
	fmt.Println(est.table())
}

func (est *ScoreEstimate) table() string {
	keys := []string{"P10 Score", "Median Score", "P90 Score", "< 50% Target"}
	msg := map[string]string{
		"P10 Score":    fmtHatCI(est.P10),
		"Median Score": fmtHatCI(est.P50),
		"P90 Score":    fmtHatCI(est.P90),
		"< 50% Target": fmtHatCIpct01(est.HalfTarget.Hat, est.HalfTarget.CI),
	}
	return fmtTable("Score (Player Experience)", keys, msg)
}

// meanCI 平均數的 Student t 信賴區間
func meanCI(mean, std float64, n int, confidence float64) CI {
	if n < 2 {
		return CI{Lo: mean, Hi: mean}
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	half := t.Quantile(1-(1-confidence)/2) * std / math.Sqrt(float64(n))
	return CI{Lo: mean - half, Hi: mean + half}
}

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 給定樣本 data 與門檻 x0，估計 p = P(X ≤ x0) 的點估計與 CI 區間
func percentileCIForValue(data []float64, x0 float64, confidence float64) (pHat float64, ci CI) {
	n := len(data)
	if n == 0 {
		return 0, CI{Lo: 0, Hi: 0}
	}
	k := 0
	for _, v := range data {
		if v <= x0 {
			k++
		}
	}
	return proportionCICP(k, n, confidence)
}

// quantileCI 估第 q 分位的上下界：order statistic 的秩視為二項，以 Beta 反推 p 範圍再轉回樣本索引。
// data 必須已排序。
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return data[0], data[0]
	}
	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	li = min(max(li, 0), n-1)
	ui = min(max(ui, 0), n-1)
	return data[li], data[ui]
}

// quantilePoint 最近秩法；data 必須已排序。
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	idx := min(max(int(q*float64(n)), 0), n-1)
	return data[idx]
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtHatCI(p PointStat) string {
	return fmt.Sprintf("%.0f [%.0f, %.0f]", p.Hat, p.CI.Lo, p.CI.Hi)
}
