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

// Package buf 提供單一引擎實例專用的暫存緩衝。
//
// 規則：
//   - 緩衝永遠掛在實例上（Resolver/Detector/Processor），不可做成 package 全域，
//     否則平行模擬之間會共用狀態，決定性與併發安全都會壞掉。
//   - 容量不足時直接配置新的，緩衝只是效能優化，不影響正確性。
package buf

import "math/bits"

// Bitset 以格子 index 為位元的集合，重疊測試為 O(W*H/64)。
type Bitset struct {
	words []uint64
}

// Resize 調整為可容納 n 個位元並清空。
func (b *Bitset) Resize(n int) {
	need := (n + 63) >> 6
	if cap(b.words) < need {
		b.words = make([]uint64, need)
		return
	}
	b.words = b.words[:need]
	clear(b.words)
}

func (b *Bitset) Reset() { clear(b.words) }

func (b *Bitset) Set(i int)      { b.words[i>>6] |= 1 << (uint(i) & 63) }
func (b *Bitset) Unset(i int)    { b.words[i>>6] &^= 1 << (uint(i) & 63) }
func (b *Bitset) Has(i int) bool { return b.words[i>>6]&(1<<(uint(i)&63)) != 0 }

// Intersects 回報兩集合是否有交集（兩者需同尺寸）。
func (b *Bitset) Intersects(o *Bitset) bool {
	for i, w := range b.words {
		if w&o.words[i] != 0 {
			return true
		}
	}
	return false
}

// Or b |= o
func (b *Bitset) Or(o *Bitset) {
	for i := range b.words {
		b.words[i] |= o.words[i]
	}
}

// AndNot b &^= o
func (b *Bitset) AndNot(o *Bitset) {
	for i := range b.words {
		b.words[i] &^= o.words[i]
	}
}

func (b *Bitset) CopyFrom(o *Bitset) {
	if cap(b.words) < len(o.words) {
		b.words = make([]uint64, len(o.words))
	}
	b.words = b.words[:len(o.words)]
	copy(b.words, o.words)
}

func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// AppendTo 依 index 遞增順序附加所有成員。
func (b *Bitset) AppendTo(dst []int) []int {
	for wi, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			dst = append(dst, wi<<6+tz)
			w &= w - 1
		}
	}
	return dst
}

// Marks 以 epoch 取代每次清零的 visited 標記。
type Marks struct {
	mark  []uint32
	epoch uint32
}

// Resize 確保容量；內容由 epoch 區分，不需清零。
func (m *Marks) Resize(n int) {
	if cap(m.mark) < n {
		m.mark = make([]uint32, n)
		m.epoch = 0
		return
	}
	m.mark = m.mark[:n]
}

// Next 開始新的一輪標記。
func (m *Marks) Next() {
	m.epoch++
	if m.epoch == 0 { // overflow
		clear(m.mark)
		m.epoch = 1
	}
}

func (m *Marks) Mark(i int)        { m.mark[i] = m.epoch }
func (m *Marks) Marked(i int) bool { return m.mark[i] == m.epoch }

// CellQueue FIFO 佇列；Reset 後重用底層陣列。
type CellQueue struct {
	items []int
	head  int
}

func (q *CellQueue) Reset() {
	q.items = q.items[:0]
	q.head = 0
}

func (q *CellQueue) Push(i int) { q.items = append(q.items, i) }

func (q *CellQueue) Pop() (int, bool) {
	if q.head >= len(q.items) {
		return 0, false
	}
	v := q.items[q.head]
	q.head++
	return v, true
}

func (q *CellQueue) Len() int { return len(q.items) - q.head }

// Arena 一個 pass 內借出的 Bitset 與 []int；Reset 時全部歸還。
type Arena struct {
	n       int
	bitsets []*Bitset
	usedB   int
	ints    []*[]int
	usedI   int
}

func NewArena(n int) *Arena {
	return &Arena{n: n}
}

// Reset 歸還所有借出的緩衝，並設定下一個 pass 的格子數。
func (a *Arena) Reset(n int) {
	a.n = n
	a.usedB = 0
	a.usedI = 0
}

// Bitset 借出一個已清空、尺寸為 n 的 Bitset；池內不足時配置新的。
func (a *Arena) Bitset() *Bitset {
	if a.usedB == len(a.bitsets) {
		a.bitsets = append(a.bitsets, &Bitset{})
	}
	b := a.bitsets[a.usedB]
	a.usedB++
	b.Resize(a.n)
	return b
}

// Ints 借出一個長度為 0 的 []int，呼叫端以 *p = append(*p, ...) 使用。
func (a *Arena) Ints() *[]int {
	if a.usedI == len(a.ints) {
		s := make([]int, 0, 16)
		a.ints = append(a.ints, &s)
	}
	p := a.ints[a.usedI]
	a.usedI++
	*p = (*p)[:0]
	return p
}

// InUse 目前借出的 Bitset 與 []int 數量。
func (a *Arena) InUse() (int, int) { return a.usedB, a.usedI }
