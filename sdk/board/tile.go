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

// Package board 定義盤面資料模型：座標、顏色、炸彈種類、方塊、盤面與遊戲狀態。
//
// 本 package 只有資料，不含任何重力/消除邏輯。
//
// 座標系統：
//   - Position{Col, Row}，Row 0 為最上方（補牌邊）。
//   - Grid 以 row-major 的 []Tile 儲存，空格是零值 Tile（Color == Empty），永遠不是 nil。
//   - 每個方塊另有連續座標 (X, Y)；硬性不變量：grid row == floor(Y + 0.5)。
package board

import (
	"fmt"

	"github.com/zintix-labs/cascadelab/sdk/fx"
)

// Position 為格子座標。
type Position struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Adjacent 回報兩格是否上下左右相鄰。
func (p Position) Adjacent(q Position) bool {
	dc, dr := p.Col-q.Col, p.Row-q.Row
	return (dc == 0 && (dr == 1 || dr == -1)) || (dr == 0 && (dc == 1 || dc == -1))
}

// Less 依 (Col, Row) 字典序比較。
func (p Position) Less(q Position) bool {
	if p.Col != q.Col {
		return p.Col < q.Col
	}
	return p.Row < q.Row
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Col, p.Row)
}

// Color 方塊顏色。0 為空格，1..MaxColors 為一般顏色，其餘為哨兵值。
type Color uint8

const (
	Empty Color = 0
	// MaxColors 一般顏色上限
	MaxColors = 6
	// Stone 不受重力影響的障礙物（永遠帶 FlagSuspended）
	Stone Color = 0xFE
	// Rainbow 萬用色，也就是 ColorBomb 方塊的顏色
	Rainbow Color = 0xFF
)

// IsNormal 回報是否為可參與消除的一般顏色。
func (c Color) IsNormal() bool {
	return c != Empty && c <= MaxColors
}

func (c Color) String() string {
	switch {
	case c == Empty:
		return "."
	case c == Rainbow:
		return "*"
	case c == Stone:
		return "#"
	case c <= MaxColors:
		return string(colorSymbols[c])
	}
	return fmt.Sprintf("c%d", uint8(c))
}

// BombKind 特殊方塊種類。
type BombKind uint8

const (
	None BombKind = iota
	// Row 清除整列（水平）
	Row
	// Column 清除整行（垂直）
	Column
	// Area3 清除 3x3
	Area3
	// Area5 清除 5x5
	Area5
	// ColorBomb 清除場上某一顏色
	ColorBomb
	// Target 隨機打擊一個其他格子
	Target
	// KindCount 炸彈種類數量（含 None），用於查表
	KindCount
)

var bombNames = [KindCount]string{
	None:      "none",
	Row:       "row",
	Column:    "column",
	Area3:     "area3",
	Area5:     "area5",
	ColorBomb: "color",
	Target:    "target",
}

func (k BombKind) String() string {
	if k < KindCount {
		return bombNames[k]
	}
	return fmt.Sprintf("bomb(%d)", uint8(k))
}

// IsLine 回報是否為 Row/Column 直線炸彈。
func (k BombKind) IsLine() bool { return k == Row || k == Column }

// IsArea 回報是否為 Area3/Area5 範圍炸彈。
func (k BombKind) IsArea() bool { return k == Area3 || k == Area5 }

// Flags 方塊狀態旗標。
type Flags uint8

const (
	// FlagFalling 方塊尚在空中（連續座標未落定）
	FlagFalling Flags = 1 << iota
	// FlagSuspended 不受重力影響（障礙物/覆蓋物）
	FlagSuspended
	// FlagReserved 本 tick 已為此方塊預約目標格
	FlagReserved
	// FlagSliding 正在斜向滑行，目標格存在 Tile.Slide
	FlagSliding
)

func (f Flags) Has(x Flags) bool { return f&x != 0 }

// Tile 單一方塊。
type Tile struct {
	ID    uint64
	Color Color
	Bomb  BombKind
	X     fx.Fixed // 連續欄座標
	Y     fx.Fixed // 連續列座標；負值表示仍在盤面上方
	VY    fx.Fixed // 垂直速度（格/秒，向下為正）
	Flags Flags
	Slide Position // FlagSliding 時的目標格
}

// IsEmpty 回報是否為空格。
func (t *Tile) IsEmpty() bool { return t.Color == Empty }

// Movable 回報是否受重力影響。
func (t *Tile) Movable() bool {
	return t.Color != Empty && !t.Flags.Has(FlagSuspended)
}

// Falling 回報是否仍在空中。
func (t *Tile) Falling() bool { return t.Flags.Has(FlagFalling) }

// Special 回報是否為炸彈或萬用色。
func (t *Tile) Special() bool { return t.Bomb != None || t.Color == Rainbow }

// Place 將連續座標對齊到格子 p，並清除速度。
func (t *Tile) Place(p Position) {
	t.X = fx.FromInt(p.Col)
	t.Y = fx.FromInt(p.Row)
	t.VY = 0
}
