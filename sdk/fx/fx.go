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

// Package fx 是 Q32.32 定點數，用於方塊的連續座標與速度。
//
// 物理積分全部走整數運算：不同平台/編譯器（FMA、x87）不會造成浮點漂移，
// 回放與平行模擬才能逐位元一致。float 只在讀設定檔時轉換一次。
package fx

import (
	"math"
	"math/bits"
)

// Fixed 為 Q32.32 定點數。
type Fixed int64

const (
	Shift       = 32
	One   Fixed = 1 << Shift
	Half  Fixed = 1 << (Shift - 1)
	Zero  Fixed = 0
)

func FromInt(i int) Fixed       { return Fixed(int64(i) << Shift) }
func FromFloat(f float64) Fixed { return Fixed(math.Round(f * float64(One))) }
func (f Fixed) Float() float64  { return float64(f) / float64(One) }

// Floor 向負無限取整（算術右移）。
func (f Fixed) Floor() int { return int(int64(f) >> Shift) }

// Cell 回傳 floor(f + 0.5)，即連續座標所屬的格子。
func (f Fixed) Cell() int { return (f + Half).Floor() }

// FromRatio 回傳 num/den，den <= 0 回傳 0。
func FromRatio(num, den int) Fixed {
	if den <= 0 {
		return 0
	}
	return Div(FromInt(num), FromInt(den))
}

// Mul 以 128-bit 中間值計算 a*b。
func Mul(a, b Fixed) Fixed {
	if a == 0 || b == 0 {
		return 0
	}
	negative := (a < 0) != (b < 0)
	ua, ub := abs64(a), abs64(b)

	hi, lo := bits.Mul64(ua, ub)
	// Q64.64 -> Q32.32
	result := Fixed((hi << 32) | (lo >> 32))
	if negative {
		return -result
	}
	return result
}

// Div 計算 a/b；b == 0 回傳 0，溢位時飽和。
func Div(a, b Fixed) Fixed {
	if b == 0 {
		return 0
	}
	negative := (a < 0) != (b < 0)
	ua, ub := abs64(a), abs64(b)

	hi := ua >> 32
	lo := ua << 32
	if hi >= ub {
		if negative {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	quo, _ := bits.Div64(hi, lo, ub)
	if quo > math.MaxInt64 {
		if negative {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	if negative {
		return -Fixed(quo)
	}
	return Fixed(quo)
}

func Min(a, b Fixed) Fixed {
	if a < b {
		return a
	}
	return b
}

func Max(a, b Fixed) Fixed {
	if a > b {
		return a
	}
	return b
}

func Clamp(v, lo, hi Fixed) Fixed {
	return Max(lo, Min(v, hi))
}

func abs64(x Fixed) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}
