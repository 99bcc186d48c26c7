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
	"encoding/binary"
	"hash/fnv"
	"strings"
)

// Grid W x H 盤面，row-major。
type Grid struct {
	W     int
	H     int
	Cells []Tile
}

func NewGrid(w, h int) *Grid {
	return &Grid{W: w, H: h, Cells: make([]Tile, w*h)}
}

// InBounds 所有外部座標都必須先經過這裡，才能索引 Cells。
func (g *Grid) InBounds(p Position) bool {
	return p.Col >= 0 && p.Col < g.W && p.Row >= 0 && p.Row < g.H
}

func (g *Grid) Idx(p Position) int { return p.Row*g.W + p.Col }

func (g *Grid) Pos(idx int) Position {
	return Position{Col: idx % g.W, Row: idx / g.W}
}

// At 回傳格子上的方塊指標；呼叫端需保證 p 在範圍內。
func (g *Grid) At(p Position) *Tile { return &g.Cells[p.Row*g.W+p.Col] }

func (g *Grid) AtCR(col, row int) *Tile { return &g.Cells[row*g.W+col] }

// Clear 將格子設回空格。
func (g *Grid) Clear(p Position) { g.Cells[g.Idx(p)] = Tile{} }

// Swap 交換兩格的方塊，並將連續座標對齊新格子。
func (g *Grid) Swap(a, b Position) {
	ia, ib := g.Idx(a), g.Idx(b)
	g.Cells[ia], g.Cells[ib] = g.Cells[ib], g.Cells[ia]
	if !g.Cells[ia].IsEmpty() {
		g.Cells[ia].Place(a)
	}
	if !g.Cells[ib].IsEmpty() {
		g.Cells[ib].Place(b)
	}
}

// Count 非空格數量。
func (g *Grid) Count() int {
	n := 0
	for i := range g.Cells {
		if !g.Cells[i].IsEmpty() {
			n++
		}
	}
	return n
}

// AnyFalling 回報是否仍有方塊在空中。
func (g *Grid) AnyFalling() bool {
	for i := range g.Cells {
		if g.Cells[i].Flags.Has(FlagFalling) {
			return true
		}
	}
	return false
}

func (g *Grid) Clone() *Grid {
	c := &Grid{W: g.W, H: g.H, Cells: make([]Tile, len(g.Cells))}
	copy(c.Cells, g.Cells)
	return c
}

// Hash 以 FNV-1a 對 (id, color, bomb, flags) 做摘要，供回放比對。
func (g *Grid) Hash() uint64 {
	h := fnv.New64a()
	var b [11]byte
	for i := range g.Cells {
		t := &g.Cells[i]
		binary.LittleEndian.PutUint64(b[:8], t.ID)
		b[8] = byte(t.Color)
		b[9] = byte(t.Bomb)
		b[10] = byte(t.Flags &^ FlagReserved)
		_, _ = h.Write(b[:])
	}
	return h.Sum64()
}

// Rows 以 level token 表示每一列，例如 "R G Bh *"。
func (g *Grid) Rows() []string {
	out := make([]string, g.H)
	var sb strings.Builder
	for r := 0; r < g.H; r++ {
		sb.Reset()
		for c := 0; c < g.W; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(FormatTile(g.AtCR(c, r)))
		}
		out[r] = sb.String()
	}
	return out
}

func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}
