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

package sampler

import "github.com/zintix-labs/cascadelab/sdk/core"

// SampleDistinct 從 src 不放回均勻抽出 k 個元素（partial Fisher-Yates）。
//
// src 會被就地重排；回傳 src[:k] 的切片，k > len(src) 時回傳全部。
// 亂數消耗固定為 min(k, len(src)) 次 IntN。
func SampleDistinct(c *core.Core, src []int, k int) []int {
	n := len(src)
	if k > n {
		k = n
	}
	if k <= 0 {
		return src[:0]
	}
	for i := 0; i < k; i++ {
		j := i + c.IntN(n-i)
		src[i], src[j] = src[j], src[i]
	}
	return src[:k]
}
