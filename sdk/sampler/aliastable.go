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

// Package sampler 提供補牌與炸彈效果使用的整數抽樣工具。
//
// 全部只用整數運算：浮點的 log/exp 在不同平台可能有最後一位差異，會破壞回放。
package sampler

import (
	"math"
	"math/bits"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/core"
)

// AliasTable 是 Vose Alias Method 的整數版本，O(1) 加權抽樣。
//
//   - Prob: 每個槽位 scaled 後的機率（權重 * Size）。
//   - Aliases: 槽位機率不足時補位的索引。
//   - Total: 權重總和，抽樣時以 IntN(Total) < Prob[idx] 判斷。
//
// 抽樣固定消耗 2 次 IntN，與權重內容無關；回放時亂數消耗量可預期。
type AliasTable struct {
	Prob    []int
	Aliases []int
	Size    int
	Total   int
}

// NewAliasTable 根據非負整數權重建立 AliasTable。
// 權重可為零，但不可全為零、不可為負，也不可在 scaling 時溢位。
func NewAliasTable(weights []int) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return nil, errs.NewFatal("alias table: empty weights")
	}

	total := uint64(0)
	for _, w := range weights {
		if w < 0 {
			return nil, errs.NewFatal("alias table: negative weight")
		}
		if total > uint64(math.MaxInt)-uint64(w) {
			return nil, errs.NewFatal("alias table: total weight overflows int")
		}
		total += uint64(w)
	}
	if total == 0 {
		return nil, errs.NewFatal("alias table: all weights are zero")
	}
	if !isSafeMultiply(int(total), n) {
		return nil, errs.NewFatal("alias table: weights too large to scale")
	}

	prob := make([]int, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)

	for i, w := range weights {
		prob[i] = w * n
		aliases[i] = i
		if prob[i] < int(total) {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		// 維持 sum(prob) == total * n
		prob[l] = prob[l] + prob[s] - int(total)
		if prob[l] < int(total) {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	return &AliasTable{Prob: prob, Aliases: aliases, Size: n, Total: int(total)}, nil
}

// MustAliasTable 與 NewAliasTable 相同，錯誤時 panic（只用於常數權重）。
func MustAliasTable(weights []int) *AliasTable {
	at, err := NewAliasTable(weights)
	if err != nil {
		panic(err)
	}
	return at
}

func isSafeMultiply(a, b int) bool {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi == 0 && lo <= math.MaxInt64
}

// Pick 抽出一個索引，空表回傳 -1。
func (at *AliasTable) Pick(c *core.Core) int {
	if at == nil || at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if c.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
