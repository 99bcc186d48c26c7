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

package board

import (
	"strconv"
	"strings"

	"github.com/zintix-labs/cascadelab/errs"
)

const colorSymbols = ".RGBYPO"

var bombSuffix = [KindCount]byte{
	None:      0,
	Row:       'h',
	Column:    'v',
	Area3:     'a',
	Area5:     'A',
	ColorBomb: 'c',
	Target:    't',
}

// LevelCell 關卡的一格初始內容。
type LevelCell struct {
	Color     Color
	Bomb      BombKind
	Suspended bool
	Random    bool // 開局由補牌器填入
}

// Level 已解碼的關卡輸入。核心只消費此結構，不解析檔案。
type Level struct {
	ID           int
	Name         string
	Width        int
	Height       int
	Cells        []LevelCell // row-major
	MoveLimit    int         // <= 0 表示不限步數
	TargetScore  int64       // 過關分數；<= 0 表示無目標
	Difficulty   float64     // [0,1]
	Colors       int         // 使用顏色 1..Colors
	ColorWeights []int       // 長度 == Colors，空值為均勻
}

// Validate 檢查關卡結構。
func (l *Level) Validate() error {
	if l.Width < 3 || l.Height < 3 {
		return errs.Fatalf("level %d: board must be at least 3x3, got %dx%d", l.ID, l.Width, l.Height)
	}
	if len(l.Cells) != l.Width*l.Height {
		return errs.Fatalf("level %d: cells size %d != %d", l.ID, len(l.Cells), l.Width*l.Height)
	}
	if l.Colors < 3 || l.Colors > MaxColors {
		return errs.Fatalf("level %d: colors must be in [3,%d], got %d", l.ID, MaxColors, l.Colors)
	}
	if l.Difficulty < 0 || l.Difficulty > 1 {
		return errs.Fatalf("level %d: difficulty must be in [0,1], got %v", l.ID, l.Difficulty)
	}
	if len(l.ColorWeights) != 0 {
		if len(l.ColorWeights) != l.Colors {
			return errs.Fatalf("level %d: color_weights size %d != colors %d", l.ID, len(l.ColorWeights), l.Colors)
		}
		sum := 0
		for _, w := range l.ColorWeights {
			if w < 0 {
				return errs.Fatalf("level %d: negative color weight", l.ID)
			}
			sum += w
		}
		if sum == 0 {
			return errs.Fatalf("level %d: color weights sum to zero", l.ID)
		}
	}
	for i, c := range l.Cells {
		if c.Color.IsNormal() && int(c.Color) > l.Colors {
			return errs.Fatalf("level %d: cell %d uses color %s beyond colors=%d", l.ID, i, c.Color, l.Colors)
		}
	}
	return nil
}

// ParseCell 解析單一格子 token。
//
//	R G B Y P O  一般顏色，可加炸彈後綴 h v a A c t（例如 "Rh"）
//	*            萬用色（ColorBomb）
//	.            空格
//	?            開局隨機
//	#            障礙物
func ParseCell(tok string) (LevelCell, error) {
	switch tok {
	case ".":
		return LevelCell{}, nil
	case "?":
		return LevelCell{Random: true}, nil
	case "#":
		return LevelCell{Color: Stone, Suspended: true}, nil
	case "*":
		return LevelCell{Color: Rainbow, Bomb: ColorBomb}, nil
	}
	if len(tok) == 0 || len(tok) > 2 {
		return LevelCell{}, errs.Warnf("invalid cell token %q", tok)
	}
	ci := strings.IndexByte(colorSymbols, tok[0])
	if ci <= 0 {
		return LevelCell{}, errs.Warnf("invalid cell color in %q", tok)
	}
	cell := LevelCell{Color: Color(ci)}
	if len(tok) == 2 {
		kind := None
		for k := Row; k < KindCount; k++ {
			if bombSuffix[k] == tok[1] {
				kind = k
				break
			}
		}
		if kind == None {
			return LevelCell{}, errs.Warnf("invalid bomb suffix in %q", tok)
		}
		cell.Bomb = kind
		if kind == ColorBomb {
			cell.Color = Rainbow
		}
	}
	return cell, nil
}

// FormatTile 為 ParseCell 的反向（Random 不會出現在盤面上）。
func FormatTile(t *Tile) string {
	switch {
	case t.Color == Empty:
		return "."
	case t.Color == Stone:
		return "#"
	case t.Color == Rainbow:
		return "*"
	}
	s := t.Color.String()
	if t.Bomb != None && t.Bomb < KindCount {
		s += string(bombSuffix[t.Bomb])
	}
	return s
}

// ParseRows 將 token 列轉成 row-major cells，回傳寬高。
func ParseRows(rows []string) ([]LevelCell, int, int, error) {
	h := len(rows)
	if h == 0 {
		return nil, 0, 0, errs.NewWarn("board has no rows")
	}
	w := -1
	cells := make([]LevelCell, 0, h*8)
	for r, line := range rows {
		toks := strings.Fields(line)
		if w < 0 {
			w = len(toks)
		}
		if len(toks) != w {
			return nil, 0, 0, errs.Warnf("row %d has %d cells, want %d", r, len(toks), w)
		}
		for _, tok := range toks {
			c, err := ParseCell(tok)
			if err != nil {
				return nil, 0, 0, errs.Wrap(err, "row "+strconv.Itoa(r))
			}
			cells = append(cells, c)
		}
	}
	return cells, w, h, nil
}
