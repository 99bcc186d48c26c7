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

package core

import (
	"slices"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default().New(7))
	c2 := New(Default().New(7))
	for i := 0; i < 5; i++ {
		if c1.Uint64() != c2.Uint64() {
			t.Fatalf("Uint64 mismatch at %d", i)
		}
	}
	if c1.IntN(10) != c2.IntN(10) {
		t.Fatalf("IntN mismatch")
	}
	if c1.UintN(10) != c2.UintN(10) {
		t.Fatalf("UintN mismatch")
	}
	if c1.IntN(0) != -1 {
		t.Fatalf("IntN(0) must be -1")
	}
	f := c1.Float64()
	if f < 0 || f >= 1 {
		t.Fatalf("Float64 out of range: %v", f)
	}
}

func TestCorePickAndShuffle(t *testing.T) {
	c := New(Default().New(9))
	if got := c.Pick(nil); got != -1 {
		t.Fatalf("expected -1 for empty pick, got %d", got)
	}

	src := []int{1, 2, 3, 4}
	c.ShuffleInts(src)
	want := []int{1, 2, 3, 4}
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}

	perm := make([]int, 6)
	c.Perm(perm)
	slices.Sort(perm)
	if !slices.Equal(perm, []int{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("perm is not a permutation: %v", perm)
	}
}

func TestStreamsIndependent(t *testing.T) {
	a := NewStreams(Default(), 42)
	b := NewStreams(Default(), 42)

	// 消耗 a 的 gameplay 不影響 refill
	for i := 0; i < 17; i++ {
		a.Gameplay().Uint64()
	}
	for i := 0; i < 8; i++ {
		if a.Refill().Uint64() != b.Refill().Uint64() {
			t.Fatalf("refill perturbed by gameplay draws at %d", i)
		}
	}

	a.Reseed(StreamGameplay, 99)
	if a.Refill().Uint64() != b.Refill().Uint64() {
		t.Fatalf("reseed of gameplay perturbed refill")
	}
	if a.Seed() != 42 {
		t.Fatalf("master seed lost")
	}
}

func TestStreamsSnapshotRestoreClone(t *testing.T) {
	s := NewStreams(Default(), 5)
	s.Refill().Uint64()
	s.Gameplay().IntN(100)

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	c, err := s.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	want := []uint64{s.Refill().Uint64(), s.Gameplay().Uint64()}
	got := []uint64{c.Refill().Uint64(), c.Gameplay().Uint64()}
	if !slices.Equal(want, got) {
		t.Fatalf("clone diverged: %v vs %v", want, got)
	}

	r := NewStreams(Default(), 1)
	if err := r.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	again := []uint64{r.Refill().Uint64(), r.Gameplay().Uint64()}
	if !slices.Equal(want, again) {
		t.Fatalf("restore diverged: %v vs %v", want, again)
	}

	if err := r.Restore(snap[:3]); err == nil {
		t.Fatalf("truncated snapshot must fail")
	}
}

func TestStreamNames(t *testing.T) {
	if StreamRefill.String() != "refill" || StreamGameplay.String() != "gameplay" {
		t.Fatalf("unexpected stream names")
	}
}
