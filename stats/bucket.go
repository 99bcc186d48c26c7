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

import "sort"

// Buckets 半開區間分桶：第 0 桶為 [..., bounds[0]]，其後為 [bounds[i-1], bounds[i])，最後一桶無上界。
type Buckets struct {
	bounds []int64
	labels []string
}

func (b *Buckets) Labels() []string { return b.labels }
func (b *Buckets) Len() int         { return len(b.labels) }

// Index 回傳 v 所在桶的位置。
func (b *Buckets) Index(v int64) int {
	if v <= b.bounds[0] {
		return 0
	}
	return sort.Search(len(b.bounds), func(i int) bool { return b.bounds[i] > v })
}

// ScoreBuckets 終局分數相對目標分數的千分比。請勿修改。
//   - [0,0], (0,25%), [25%,50%), [50%,75%), [75%,100%), [100%,150%), [150%,200%), [200%,+inf)
var ScoreBuckets = &Buckets{
	bounds: []int64{0, 250, 500, 750, 1000, 1500, 2000},
	labels: []string{"[0,0]", "(0,25%)", "[25%,50%)", "[50%,75%)", "[75%,100%)", "[100%,150%)", "[150%,200%)", "[200%,+inf)"},
}

// defaultScoreUnit 沒有目標分數的關卡以此分數當作 100%
const defaultScoreUnit = 1000

// ScoreIndex 依目標分數換算成千分比後分桶。
func ScoreIndex(score, target int64) int {
	if target <= 0 {
		target = defaultScoreUnit
	}
	if score <= 0 {
		return 0
	}
	pm := score * 1000 / target
	if pm == 0 {
		return 1
	}
	return ScoreBuckets.Index(pm)
}

// CascadeBuckets 單一生效操作的連鎖輪數。請勿修改。
var CascadeBuckets = &Buckets{
	bounds: []int64{0, 2, 3, 4, 5, 6, 10},
	labels: []string{"0", "1", "2", "3", "4", "5", "6-9", "10+"},
}
