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

// Package match 偵測盤面上的消除形狀。
//
// 流程：同色連通區塊 -> 區塊內的水平/垂直 run -> 候選形狀 -> 加權不重疊分割
// -> 未覆蓋的 run 格併入相鄰形狀 -> 決定炸彈生成位置。
// 所有暫存都借自 Arena，一次偵測不做額外配置（池容量足夠時）。
package match

import (
	"cmp"
	"slices"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/buf"
	"github.com/zintix-labs/cascadelab/sdk/core"
)

// Config 偵測參數。
type Config struct {
	Weights        Weights
	MaxSearchIters int
}

func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), MaxSearchIters: 4}
}

func (c Config) Valid() error {
	if c.MaxSearchIters < 0 {
		return errs.Fatalf("match: max search iters must be >= 0, got %d", c.MaxSearchIters)
	}
	w := c.Weights
	for _, v := range []int{w.Line5, w.Cross, w.Plus, w.Line4, w.Square, w.Plain} {
		if v < 0 {
			return errs.NewFatal("match: shape weights must be >= 0")
		}
	}
	return nil
}

// segment 區塊內的一段最長同色直線
type segment struct {
	dir    Dir
	start  int
	length int
}

func (s segment) step(w int) int {
	if s.dir == Vertical {
		return w
	}
	return 1
}

func (s segment) at(k, w int) int { return s.start + k*s.step(w) }

// Detector 非併發安全；每個 Engine 持有一個。
type Detector struct {
	cfg   Config
	arena *buf.Arena

	visited buf.Marks
	inComp  buf.Marks
	queue   buf.CellQueue
	comp    []int
	hLen    []int
	vLen    []int
	owner   []*Shape
	runs    []segment

	pool     []*Shape
	used     int
	cands    []*Shape
	accepted []*Shape
	readd    []*Shape
	out      []*Shape
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg, arena: buf.NewArena(0)}
}

func (d *Detector) Config() Config { return d.cfg }

// matchable 可參與配對：一般顏色且未被固定。帶炸彈的方塊照常配對。
func matchable(t *board.Tile) bool {
	return t.Color.IsNormal() && !t.Flags.Has(board.FlagSuspended)
}

// Detect 回傳本次偵測到的全部形狀，依分割時的優先順序排列。
//
// focus 為玩家剛交換的兩格（只在交換後第一次偵測傳入）；
// 兩格都落在同一個會生成炸彈的形狀內時，由 rng（gameplay 子流）擲硬幣決定。
// 回傳的 Shape 只在下一次 Detect 之前有效。
func (d *Detector) Detect(g *board.Grid, focus []board.Position, rng *core.Core) []*Shape {
	n := g.W * g.H
	d.arena.Reset(n)
	d.used = 0
	d.out = d.out[:0]
	d.visited.Resize(n)
	d.visited.Next()
	d.inComp.Resize(n)
	if cap(d.hLen) < n {
		d.hLen = make([]int, n)
		d.vLen = make([]int, n)
		d.owner = make([]*Shape, n)
	}
	d.hLen, d.vLen, d.owner = d.hLen[:n], d.vLen[:n], d.owner[:n]

	for i := 0; i < n; i++ {
		if d.visited.Marked(i) || !matchable(&g.Cells[i]) {
			continue
		}
		d.flood(g, i)
		d.component(g, focus, rng)
	}
	return d.out
}

// flood 以 BFS 收集 start 所在的同色連通區塊（四方向）。
func (d *Detector) flood(g *board.Grid, start int) {
	color := g.Cells[start].Color
	d.inComp.Next()
	// 每個區塊向 arena 借一份，Detect 結束前都有效
	scratch := d.arena.Ints()
	d.comp = *scratch
	d.queue.Reset()
	d.queue.Push(start)
	d.visited.Mark(start)
	d.inComp.Mark(start)
	for {
		i, ok := d.queue.Pop()
		if !ok {
			break
		}
		d.comp = append(d.comp, i)
		col, row := i%g.W, i/g.W
		visit := func(j int) {
			if d.visited.Marked(j) {
				return
			}
			t := &g.Cells[j]
			if !matchable(t) || t.Color != color {
				return
			}
			d.visited.Mark(j)
			d.inComp.Mark(j)
			d.queue.Push(j)
		}
		if col > 0 {
			visit(i - 1)
		}
		if col+1 < g.W {
			visit(i + 1)
		}
		if row > 0 {
			visit(i - g.W)
		}
		if row+1 < g.H {
			visit(i + g.W)
		}
	}
	slices.Sort(d.comp)
	*scratch = d.comp
}

func (d *Detector) component(g *board.Grid, focus []board.Position, rng *core.Core) {
	color := g.Cells[d.comp[0]].Color
	d.cands = d.cands[:0]
	d.segments(g)
	d.lines(g, color)
	d.squares(g, color)
	d.crosses(g, color)
	for _, r := range d.runs {
		if r.length == 3 {
			s := d.newShape(Plain, color)
			s.Dir = r.dir
			for k := 0; k < 3; k++ {
				s.add(r.at(k, g.W))
			}
		}
	}
	if len(d.cands) == 0 {
		return
	}

	d.partition()
	d.absorb(g, color)

	for _, s := range d.accepted {
		s.Cells = s.Bits.AppendTo(s.Cells[:0])
		d.pickOrigin(g, s, focus, rng)
		d.out = append(d.out, s)
	}
	for _, i := range d.comp {
		d.owner[i] = nil
	}
}

// segments 計算每格所在的水平/垂直段長，並收集長度 >= 3 的 run。
func (d *Detector) segments(g *board.Grid) {
	w := g.W
	d.runs = d.runs[:0]
	for _, i := range d.comp {
		col, row := i%w, i/w
		if col == 0 || !d.inComp.Marked(i-1) {
			l := 1
			for col+l < w && d.inComp.Marked(i+l) {
				l++
			}
			for k := 0; k < l; k++ {
				d.hLen[i+k] = l
			}
			if l >= 3 {
				d.runs = append(d.runs, segment{dir: Horizontal, start: i, length: l})
			}
		}
		if row == 0 || !d.inComp.Marked(i-w) {
			l := 1
			for row+l < g.H && d.inComp.Marked(i+l*w) {
				l++
			}
			for k := 0; k < l; k++ {
				d.vLen[i+k*w] = l
			}
			if l >= 3 {
				d.runs = append(d.runs, segment{dir: Vertical, start: i, length: l})
			}
		}
	}
}

// lines 對每個 run 產生 5 格與 4 格窗口。
// run 長度 >= 5 時任一 4 格窗都落在某個 5 格窗內，不另外產生。
func (d *Detector) lines(g *board.Grid, color board.Color) {
	for _, r := range d.runs {
		if r.length >= 5 {
			for o := 0; o+5 <= r.length; o++ {
				s := d.newShape(Line5, color)
				s.Dir = r.dir
				for k := 0; k < 5; k++ {
					s.add(r.at(o+k, g.W))
				}
			}
			continue
		}
		if r.length == 4 {
			s := d.newShape(Line4, color)
			s.Dir = r.dir
			for k := 0; k < 4; k++ {
				s.add(r.at(k, g.W))
			}
		}
	}
}

// squares 每個 2x2 同色方塊一個候選；
// 兩列都已在水平 4+ 線上、或兩欄都已在垂直 4+ 線上的方塊略過。
func (d *Detector) squares(g *board.Grid, color board.Color) {
	w := g.W
	for _, i := range d.comp {
		col, row := i%w, i/w
		if col+1 >= w || row+1 >= g.H {
			continue
		}
		tr, bl, br := i+1, i+w, i+w+1
		if !d.inComp.Marked(tr) || !d.inComp.Marked(bl) || !d.inComp.Marked(br) {
			continue
		}
		if d.hLen[i] >= 4 && d.hLen[bl] >= 4 {
			continue
		}
		if d.vLen[i] >= 4 && d.vLen[tr] >= 4 {
			continue
		}
		s := d.newShape(Square, color)
		s.add(i)
		s.add(tr)
		s.add(bl)
		s.add(br)
	}
}

// crosses 每對相交的水平/垂直 run 一個候選。
// 兩條都剛好 3 格且交於兩者中心為 Plus，其餘為 Cross。
func (d *Detector) crosses(g *board.Grid, color board.Color) {
	w := g.W
	for _, h := range d.runs {
		if h.dir != Horizontal {
			continue
		}
		hc, hr := h.start%w, h.start/w
		for _, v := range d.runs {
			if v.dir != Vertical {
				continue
			}
			vc, vr := v.start%w, v.start/w
			if vc < hc || vc >= hc+h.length || hr < vr || hr >= vr+v.length {
				continue
			}
			if h.length+v.length-1 < 5 {
				continue
			}
			kind := Cross
			if h.length == 3 && v.length == 3 && vc == hc+1 && hr == vr+1 {
				kind = Plus
			}
			s := d.newShape(kind, color)
			s.center = hr*w + vc
			for k := 0; k < h.length; k++ {
				s.add(h.at(k, w))
			}
			for k := 0; k < v.length; k++ {
				s.add(v.at(k, w))
			}
		}
	}
}

func (d *Detector) newShape(k Kind, color board.Color) *Shape {
	if d.used == len(d.pool) {
		d.pool = append(d.pool, &Shape{})
	}
	s := d.pool[d.used]
	d.used++
	cells := s.Cells[:0]
	*s = Shape{
		Kind:   k,
		Color:  color,
		Weight: d.cfg.Weights.Of(k),
		Cells:  cells,
		Bits:   d.arena.Bitset(),
		center: -1,
		first:  -1,
		seq:    len(d.cands),
	}
	d.cands = append(d.cands, s)
	return s
}

func (d *Detector) finishShape(s *Shape) {
	s.Bomb = BombFor(s.Kind, s.Dir)
}

// partition 先貪婪挑選不重疊的候選，再做有限次數的局部搜尋：
// 拿掉一個已選形狀、依序補回能放入的候選，總權重嚴格增加才接受。
func (d *Detector) partition() {
	slices.SortStableFunc(d.cands, func(a, b *Shape) int {
		if a.Weight != b.Weight {
			return cmp.Compare(b.Weight, a.Weight)
		}
		if kindRank[a.Kind] != kindRank[b.Kind] {
			return cmp.Compare(kindRank[a.Kind], kindRank[b.Kind])
		}
		if a.first != b.first {
			return cmp.Compare(a.first, b.first)
		}
		return cmp.Compare(a.seq, b.seq)
	})
	for i, s := range d.cands {
		s.rank = i
		d.finishShape(s)
	}

	cover := d.arena.Bitset()
	d.accepted = d.accepted[:0]
	for _, s := range d.cands {
		if s.Bits.Intersects(cover) {
			continue
		}
		cover.Or(s.Bits)
		s.selected = true
		d.accepted = append(d.accepted, s)
	}

	trial := d.arena.Bitset()
	for iter := 0; iter < d.cfg.MaxSearchIters; iter++ {
		if !d.improve(cover, trial) {
			break
		}
	}
}

func (d *Detector) improve(cover, trial *buf.Bitset) bool {
	for ai, a := range d.accepted {
		trial.CopyFrom(cover)
		trial.AndNot(a.Bits)
		gain := -a.Weight
		d.readd = d.readd[:0]
		for _, s := range d.cands {
			if s.selected || s.Bits.Intersects(trial) {
				continue
			}
			trial.Or(s.Bits)
			gain += s.Weight
			d.readd = append(d.readd, s)
		}
		if gain <= 0 {
			continue
		}
		a.selected = false
		d.accepted = slices.Delete(d.accepted, ai, ai+1)
		for _, s := range d.readd {
			s.selected = true
			d.accepted = append(d.accepted, s)
		}
		slices.SortFunc(d.accepted, func(x, y *Shape) int { return cmp.Compare(x.rank, y.rank) })
		cover.CopyFrom(trial)
		return true
	}
	return false
}

// absorb 把沒被任何已選形狀覆蓋的 run 格併入相鄰的已選形狀；
// 仍無處可併的整條 run 自成一個 Plain 形狀。
func (d *Detector) absorb(g *board.Grid, color board.Color) {
	for _, s := range d.accepted {
		for _, i := range d.comp {
			if s.Bits.Has(i) {
				d.owner[i] = s
			}
		}
	}
	d.absorbPass(g)

	added := false
	for _, r := range d.runs {
		orphan := true
		for k := 0; k < r.length; k++ {
			if d.owner[r.at(k, g.W)] != nil {
				orphan = false
				break
			}
		}
		if !orphan {
			continue
		}
		s := d.newShape(Plain, color)
		s.Dir = r.dir
		s.rank = len(d.cands)
		d.finishShape(s)
		s.selected = true
		for k := 0; k < r.length; k++ {
			i := r.at(k, g.W)
			s.add(i)
			d.owner[i] = s
		}
		d.accepted = append(d.accepted, s)
		added = true
	}
	if added {
		d.absorbPass(g)
	}
}

func (d *Detector) absorbPass(g *board.Grid) {
	w := g.W
	for changed := true; changed; {
		changed = false
		for _, i := range d.comp {
			if d.owner[i] != nil || (d.hLen[i] < 3 && d.vLen[i] < 3) {
				continue
			}
			col, row := i%w, i/w
			var nb *Shape
			switch {
			case row > 0 && d.inComp.Marked(i-w) && d.owner[i-w] != nil:
				nb = d.owner[i-w]
			case col > 0 && d.inComp.Marked(i-1) && d.owner[i-1] != nil:
				nb = d.owner[i-1]
			case col+1 < w && d.inComp.Marked(i+1) && d.owner[i+1] != nil:
				nb = d.owner[i+1]
			case row+1 < g.H && d.inComp.Marked(i+w) && d.owner[i+w] != nil:
				nb = d.owner[i+w]
			}
			if nb == nil {
				continue
			}
			nb.add(i)
			d.owner[i] = nb
			changed = true
		}
	}
}

// pickOrigin 決定炸彈生成位置：
// 交換的焦點格 > 交叉形狀的交點 > (Col, Row) 字典序最小的格子；已帶炸彈的格子不可用。
func (d *Detector) pickOrigin(g *board.Grid, s *Shape, focus []board.Position, rng *core.Core) {
	s.HasOrigin = false
	if s.Bomb == board.None {
		return
	}
	usable := func(i int) bool { return g.Cells[i].Bomb == board.None }

	var hits [2]board.Position
	nf := 0
	for _, p := range focus {
		if nf == len(hits) {
			break
		}
		if !g.InBounds(p) {
			continue
		}
		if i := g.Idx(p); s.Bits.Has(i) && usable(i) {
			hits[nf] = p
			nf++
		}
	}
	switch nf {
	case 1:
		s.Origin, s.HasOrigin = hits[0], true
		return
	case 2:
		s.Origin, s.HasOrigin = hits[rng.Coin()], true
		return
	}

	if s.center >= 0 && usable(s.center) {
		s.Origin, s.HasOrigin = g.Pos(s.center), true
		return
	}
	for _, i := range s.Cells {
		if !usable(i) {
			continue
		}
		p := g.Pos(i)
		if !s.HasOrigin || p.Less(s.Origin) {
			s.Origin, s.HasOrigin = p, true
		}
	}
}

// AnyMatch 回報盤面上是否存在任何形狀（不做分割，供交換合法性與死局判斷）。
func AnyMatch(g *board.Grid) bool {
	for i := range g.Cells {
		if matchable(&g.Cells[i]) && MatchesAt(g, g.Pos(i)) {
			return true
		}
	}
	return false
}

// MatchesAt 回報 p 是否位於長度 >= 3 的直線或 2x2 同色方塊中。
func MatchesAt(g *board.Grid, p board.Position) bool {
	if !g.InBounds(p) {
		return false
	}
	t := g.At(p)
	if !matchable(t) {
		return false
	}
	c := t.Color
	same := func(col, row int) bool {
		if col < 0 || col >= g.W || row < 0 || row >= g.H {
			return false
		}
		o := g.AtCR(col, row)
		return matchable(o) && o.Color == c
	}
	h := 1
	for x := p.Col - 1; same(x, p.Row); x-- {
		h++
	}
	for x := p.Col + 1; same(x, p.Row); x++ {
		h++
	}
	if h >= 3 {
		return true
	}
	v := 1
	for y := p.Row - 1; same(p.Col, y); y-- {
		v++
	}
	for y := p.Row + 1; same(p.Col, y); y++ {
		v++
	}
	if v >= 3 {
		return true
	}
	for _, dx := range [2]int{-1, 1} {
		for _, dy := range [2]int{-1, 1} {
			if same(p.Col+dx, p.Row) && same(p.Col, p.Row+dy) && same(p.Col+dx, p.Row+dy) {
				return true
			}
		}
	}
	return false
}
