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

package buf

import (
	"slices"
	"testing"
)

func TestBitset(t *testing.T) {
	var a, b Bitset
	a.Resize(130)
	b.Resize(130)
	a.Set(0)
	a.Set(64)
	a.Set(129)
	b.Set(5)
	if a.Intersects(&b) {
		t.Fatalf("unexpected intersection")
	}
	b.Set(129)
	if !a.Intersects(&b) {
		t.Fatalf("expected intersection at 129")
	}
	if got := a.AppendTo(nil); !slices.Equal(got, []int{0, 64, 129}) {
		t.Fatalf("AppendTo = %v", got)
	}
	a.AndNot(&b)
	if a.Has(129) || a.Count() != 2 {
		t.Fatalf("AndNot failed")
	}
	a.Or(&b)
	if a.Count() != 4 {
		t.Fatalf("Or failed: %d", a.Count())
	}
	a.Unset(5)
	var c Bitset
	c.CopyFrom(&a)
	if c.Count() != 3 {
		t.Fatalf("CopyFrom")
	}
	a.Resize(10)
	if a.Count() != 0 {
		t.Fatalf("Resize must clear")
	}
}

func TestMarksEpoch(t *testing.T) {
	var m Marks
	m.Resize(4)
	m.Next()
	m.Mark(2)
	if !m.Marked(2) || m.Marked(1) {
		t.Fatalf("mark")
	}
	m.Next()
	if m.Marked(2) {
		t.Fatalf("new epoch must forget old marks")
	}
}

func TestCellQueueFIFO(t *testing.T) {
	var q CellQueue
	q.Push(3)
	q.Push(1)
	if v, _ := q.Pop(); v != 3 {
		t.Fatalf("fifo order")
	}
	q.Push(7)
	if q.Len() != 2 {
		t.Fatalf("len")
	}
	q.Pop()
	q.Pop()
	if _, ok := q.Pop(); ok {
		t.Fatalf("empty pop must fail")
	}
	q.Reset()
	if q.Len() != 0 {
		t.Fatalf("reset")
	}
}

func TestArenaUnderflowAllocates(t *testing.T) {
	a := NewArena(20)
	b1 := a.Bitset()
	b1.Set(3)
	b2 := a.Bitset()
	if b1 == b2 {
		t.Fatalf("arena handed out the same bitset twice")
	}
	p := a.Ints()
	*p = append(*p, 1, 2, 3)
	if nb, ni := a.InUse(); nb != 2 || ni != 1 {
		t.Fatalf("in use = %d,%d", nb, ni)
	}

	a.Reset(20)
	b3 := a.Bitset()
	if b3 != b1 || b3.Has(3) {
		t.Fatalf("reset must recycle cleared buffers")
	}
	if p2 := a.Ints(); p2 != p || len(*p2) != 0 {
		t.Fatalf("reset must recycle int buffers")
	}
}
