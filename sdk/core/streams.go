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
	"fmt"

	"github.com/zintix-labs/cascadelab/corefmt"
	"github.com/zintix-labs/cascadelab/errs"
)

// StreamID 具名亂數子流。每個語意領域一條，重設其中一條不會影響其他子流的序列。
type StreamID uint8

const (
	// StreamRefill 掉落補牌的顏色抽選。
	StreamRefill StreamID = iota
	// StreamGameplay 欄位洗牌、斜滑決勝、bomb origin 決勝、Target 炸彈、死局洗盤。
	StreamGameplay
	streamCount
)

var streamNames = [streamCount]string{
	StreamRefill:   "refill",
	StreamGameplay: "gameplay",
}

func (id StreamID) String() string {
	if id < streamCount {
		return streamNames[id]
	}
	return fmt.Sprintf("stream(%d)", uint8(id))
}

// Streams 持有一局遊戲的所有具名子流。
type Streams struct {
	factory PRNGFactory
	seed    int64
	cores   [streamCount]*Core
}

// NewStreams 以 master seed 派生每條子流的 seed。
func NewStreams(factory PRNGFactory, seed int64) *Streams {
	if factory == nil {
		factory = Default()
	}
	s := &Streams{factory: factory, seed: seed}
	for id := StreamID(0); id < streamCount; id++ {
		s.cores[id] = New(factory.New(DeriveSeed(seed, id)))
	}
	return s
}

// DeriveSeed 以 splitmix64 將 master seed 與子流編號混合。
func DeriveSeed(seed int64, id StreamID) int64 {
	x := splitmix64(uint64(seed) + uint64(id+1)*0xD1B54A32D192ED03)
	return int64(x >> 1)
}

// Seed 回傳建立時的 master seed。
func (s *Streams) Seed() int64 { return s.seed }

func (s *Streams) Get(id StreamID) *Core {
	return s.cores[id]
}

func (s *Streams) Refill() *Core { return s.cores[StreamRefill] }

func (s *Streams) Gameplay() *Core { return s.cores[StreamGameplay] }

// Reseed 只重設單一子流。
func (s *Streams) Reseed(id StreamID, seed int64) {
	s.cores[id] = New(s.factory.New(seed))
}

// Snapshot 依子流編號順序串接各子流狀態：frame(refill) || frame(gameplay)。
func (s *Streams) Snapshot() ([]byte, error) {
	var out []byte
	for id := StreamID(0); id < streamCount; id++ {
		b, err := s.cores[id].Snapshot()
		if err != nil {
			return nil, errs.Wrap(err, "snapshot stream "+id.String())
		}
		out = corefmt.AppendBlobFrame(out, b)
	}
	return out, nil
}

// Restore 還原 Snapshot 的輸出，frame 數量不符視為錯誤。
func (s *Streams) Restore(data []byte) error {
	rest := data
	for id := StreamID(0); id < streamCount; id++ {
		payload, next, err := corefmt.SplitBlobFrame(rest)
		if err != nil {
			return errs.Wrap(err, "restore stream "+id.String())
		}
		if err := s.cores[id].Restore(payload); err != nil {
			return errs.Wrap(err, "restore stream "+id.String())
		}
		rest = next
	}
	if len(rest) != 0 {
		return errs.NewWarn("restore streams: trailing bytes")
	}
	return nil
}

// Clone 產生狀態相同但完全獨立的子流組，給平行模擬 fork 使用。
func (s *Streams) Clone() (*Streams, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	c := NewStreams(s.factory, s.seed)
	if err := c.Restore(snap); err != nil {
		return nil, err
	}
	return c, nil
}
