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

package match

import (
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/buf"
)

// Kind 形狀分類。
type Kind uint8

const (
	// Plain 單純三連，不產生炸彈
	Plain Kind = iota
	// Line4 四連直線
	Line4
	// Line5 五連直線
	Line5
	// Square 2x2 方塊
	Square
	// Plus 兩條剛好 3 格、交於兩者中心的十字
	Plus
	// Cross 其他 T/L 形交叉
	Cross
	KindCount
)

var kindNames = [KindCount]string{"plain", "line4", "line5", "square", "plus", "cross"}

func (k Kind) String() string {
	if k < KindCount {
		return kindNames[k]
	}
	return "unknown"
}

// kindRank 權重相同時的固定順序
var kindRank = [KindCount]int{Line5: 0, Cross: 1, Plus: 2, Line4: 3, Square: 4, Plain: 5}

// Dir 直線方向。
type Dir uint8

const (
	Horizontal Dir = iota
	Vertical
)

func (d Dir) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Weights 各形狀在分割最佳化中的權重。
type Weights struct {
	Line5  int `yaml:"line5" json:"line5"`
	Cross  int `yaml:"cross" json:"cross"`
	Plus   int `yaml:"plus" json:"plus"`
	Line4  int `yaml:"line4" json:"line4"`
	Square int `yaml:"square" json:"square"`
	Plain  int `yaml:"plain" json:"plain"`
}

func DefaultWeights() Weights {
	return Weights{Line5: 50, Cross: 40, Plus: 35, Line4: 30, Square: 10, Plain: 0}
}

func (w Weights) Of(k Kind) int {
	switch k {
	case Line5:
		return w.Line5
	case Cross:
		return w.Cross
	case Plus:
		return w.Plus
	case Line4:
		return w.Line4
	case Square:
		return w.Square
	}
	return w.Plain
}

// BombFor 形狀對應的炸彈種類。
// 水平四連產生垂直清除（Column），垂直四連產生水平清除（Row）。
func BombFor(k Kind, d Dir) board.BombKind {
	switch k {
	case Line5:
		return board.ColorBomb
	case Line4:
		if d == Horizontal {
			return board.Column
		}
		return board.Row
	case Square:
		return board.Target
	case Plus:
		return board.Area3
	case Cross:
		return board.Area5
	}
	return board.None
}

// Shape 一個偵測出的形狀。只在下一次 Detect 之前有效。
type Shape struct {
	Kind      Kind
	Color     board.Color
	Weight    int
	Dir       Dir
	Bomb      board.BombKind
	Origin    board.Position
	HasOrigin bool
	Cells     []int // 格子 index，遞增排序
	Bits      *buf.Bitset

	center   int // Plus/Cross 的交點，其餘為 -1
	first    int
	seq      int
	rank     int
	selected bool
}

// Center 回傳交點 index；非交叉形狀回傳 -1。
func (s *Shape) Center() int { return s.center }

func (s *Shape) Contains(idx int) bool { return s.Bits.Has(idx) }

func (s *Shape) Size() int { return len(s.Cells) }

func (s *Shape) add(idx int) {
	s.Bits.Set(idx)
	if s.first < 0 || idx < s.first {
		s.first = idx
	}
}
