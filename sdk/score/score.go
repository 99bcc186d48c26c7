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

// Package score 計分協作者。引擎只透過 Scorer 取得分數，不內建任何計分規則。
package score

import (
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/match"
)

// Scorer 由處理器在清除時呼叫。
type Scorer interface {
	// ScoreMatch 一個被清除的形狀（含炸彈生成點）
	ScoreMatch(s *match.Shape) int64
	// ScoreSpecialCombo 兩個特殊方塊被交換在一起，傳入兩邊的顏色與炸彈種類
	ScoreSpecialCombo(colorA board.Color, bombA board.BombKind, colorB board.Color, bombB board.BombKind) int64
	// ScoreDetonation 一次炸彈引爆，cleared 為本次引爆新清除的格數
	ScoreDetonation(kind board.BombKind, cleared int) int64
}

// Table 固定分數表。
type Table struct {
	PerTile       int64 `yaml:"per_tile" json:"per_tile"`
	Line4Bonus    int64 `yaml:"line4_bonus" json:"line4_bonus"`
	Line5Bonus    int64 `yaml:"line5_bonus" json:"line5_bonus"`
	SquareBonus   int64 `yaml:"square_bonus" json:"square_bonus"`
	PlusBonus     int64 `yaml:"plus_bonus" json:"plus_bonus"`
	CrossBonus    int64 `yaml:"cross_bonus" json:"cross_bonus"`
	DetonatedTile int64 `yaml:"detonated_tile" json:"detonated_tile"`
	ComboBonus    int64 `yaml:"combo_bonus" json:"combo_bonus"`
}

func DefaultTable() *Table {
	return &Table{
		PerTile:       20,
		Line4Bonus:    40,
		Line5Bonus:    100,
		SquareBonus:   30,
		PlusBonus:     60,
		CrossBonus:    80,
		DetonatedTile: 10,
		ComboBonus:    200,
	}
}

func (t *Table) Valid() error {
	for _, v := range []int64{t.PerTile, t.Line4Bonus, t.Line5Bonus, t.SquareBonus, t.PlusBonus, t.CrossBonus, t.DetonatedTile, t.ComboBonus} {
		if v < 0 {
			return errs.NewFatal("score: table values must be >= 0")
		}
	}
	return nil
}

func (t *Table) ScoreMatch(s *match.Shape) int64 {
	base := int64(s.Size()) * t.PerTile
	switch s.Kind {
	case match.Line4:
		return base + t.Line4Bonus
	case match.Line5:
		return base + t.Line5Bonus
	case match.Square:
		return base + t.SquareBonus
	case match.Plus:
		return base + t.PlusBonus
	case match.Cross:
		return base + t.CrossBonus
	}
	return base
}

func (t *Table) ScoreSpecialCombo(colorA board.Color, bombA board.BombKind, colorB board.Color, bombB board.BombKind) int64 {
	bonus := t.ComboBonus
	// 萬用色組合加倍
	if bombA == board.ColorBomb || bombB == board.ColorBomb || colorA == board.Rainbow || colorB == board.Rainbow {
		bonus *= 2
	}
	return bonus
}

func (t *Table) ScoreDetonation(_ board.BombKind, cleared int) int64 {
	return int64(cleared) * t.DetonatedTile
}

// Zero 不計分（純模擬連鎖行為時使用）。
type Zero struct{}

func (Zero) ScoreMatch(*match.Shape) int64 { return 0 }
func (Zero) ScoreSpecialCombo(board.Color, board.BombKind, board.Color, board.BombKind) int64 {
	return 0
}
func (Zero) ScoreDetonation(board.BombKind, int) int64 { return 0 }
