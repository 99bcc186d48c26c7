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

package fx

import "testing"

func TestArithmetic(t *testing.T) {
	if Mul(FromInt(3), FromInt(-4)) != FromInt(-12) {
		t.Fatalf("mul sign")
	}
	if Div(FromInt(1), FromInt(4)) != One/4 {
		t.Fatalf("div quarter")
	}
	if Div(One, 0) != 0 {
		t.Fatalf("div by zero must be 0")
	}
	if FromFloat(2.5) != FromInt(2)+Half {
		t.Fatalf("from float")
	}
	if FromRatio(1, 60) != Div(One, FromInt(60)) {
		t.Fatalf("ratio")
	}
	if Clamp(FromInt(9), 0, FromInt(2)) != FromInt(2) {
		t.Fatalf("clamp")
	}
}

func TestCell(t *testing.T) {
	cases := []struct {
		v    Fixed
		want int
	}{
		{FromInt(3), 3},
		{FromInt(3) + Half - 1, 3},
		{FromInt(3) + Half, 4},
		{-One, -1},
		{-Half - 1, -1},
		{-Half, 0},
		{-1, 0},
	}
	for _, c := range cases {
		if got := c.v.Cell(); got != c.want {
			t.Fatalf("Cell(%v) = %d, want %d", c.v.Float(), got, c.want)
		}
	}
	if (-One / 4).Floor() != -1 {
		t.Fatalf("floor must round toward -inf")
	}
}
