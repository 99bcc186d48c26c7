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

package cascadelab

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/cascadelab/dto"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/spec"
)

// MachinePool 管理「某一個關卡」的所有機台實例。
// 它透過兩個通道管理機台生命週期：
//  1. pool：健康且可用的機台，供 Start() / Play() 借出與歸還。
//  2. broken：發生 panic 或 fatal error 的壞機台，送往此通道等待檢查或丟棄。
//
// 壞機台送出後立即補上一台新機以維持容量。
type MachinePool struct {
	levelName     string
	levelId       spec.LID
	ls            *spec.LevelSetting
	es            *spec.EngineSetting
	reg           *PredictorRegistry
	cf            core.PRNGFactory
	initSeed      int64
	seedMaker     *seedMaker
	pool          chan *Machine
	broken        chan *Machine
	done          chan struct{} // 關閉後不再借機、歸還或補機
	closeOnce     sync.Once
	poolsize      int
	rebuild       atomic.Int32 // 補機次數
	inflight      atomic.Int32
	panics        atomic.Int32
	fatals        atomic.Int32
	closeReason   atomic.Value // string
	closeInflight atomic.Int32 // 以下三個為關閉當下的快照，-1 表示尚未關閉
	closeAvail    atomic.Int32
	closeBroken   atomic.Int32
	onFail        func(reason string) // 故障關閉時通知上層，由 Runtime 設定
}

// brokenCap 壞機台暫存上限，滿了整池關閉
const brokenCap = 100

// newMachinePool 建立指定關卡的機台池，預先建好 n 台（至少 1 台）放入 pool。
func newMachinePool(n int, ls *spec.LevelSetting, es *spec.EngineSetting, reg *PredictorRegistry, cf core.PRNGFactory, seed int64) (*MachinePool, error) {
	n = max(1, n)
	p := &MachinePool{
		levelName: ls.LevelName,
		levelId:   ls.LevelID,
		ls:        ls,
		es:        es,
		reg:       reg,
		cf:        cf,
		initSeed:  seed,
		seedMaker: newSeedMaker(seed),
		pool:      make(chan *Machine, n),
		broken:    make(chan *Machine, brokenCap),
		done:      make(chan struct{}),
		poolsize:  n,
	}

	p.closeReason.Store("")
	p.closeInflight.Store(-1)
	p.closeAvail.Store(-1)
	p.closeBroken.Store(-1)

	for i := 0; i < n; i++ {
		m, err := p.build()
		if err != nil {
			return nil, err
		}
		p.pool <- m
	}
	return p, nil
}

func (p *MachinePool) build() (*Machine, error) {
	return newMachineWithSeed(p.ls, p.es, p.reg, p.cf, p.seedMaker.next(), false)
}

// Close 進入關閉狀態：
//   - 之後所有 Start() / Play() 直接回 error
//   - defer 歸還/補機時會觀察 done，避免對已關閉狀態進行 send
func (p *MachinePool) Close() {
	p.closeWithReason("closed")
}

// Closed 回報池是否已進入關閉狀態。
func (p *MachinePool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// closeWithReason 進入關閉狀態並記錄原因（thread-safe, reason 只會被寫入一次）。
// reason 建議使用固定字串或小枚舉字串，方便 metrics/telemetry 聚合。
func (p *MachinePool) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		p.closeReason.Store(reason)
		// 進入關閉狀態的瞬間做一次快照，方便外部觀測與故障排查。
		p.closeInflight.Store(p.inflight.Load())
		p.closeAvail.Store(int32(len(p.pool)))
		p.closeBroken.Store(int32(len(p.broken)))
		close(p.done)
	})
}

// Start 借一台機台開新局。
func (p *MachinePool) Start(ctx context.Context, req *dto.StartRequest) (dto.GameState, error) {
	var out dto.GameState
	err := p.do(ctx, func(m *Machine) error {
		var err error
		out, err = m.Start(req)
		return err
	})
	return out, err
}

// Play 借一台機台套用一次操作。
func (p *MachinePool) Play(ctx context.Context, req *dto.MoveRequest) (dto.MoveResult, error) {
	var out dto.MoveResult
	err := p.do(ctx, func(m *Machine) error {
		var err error
		out, err = m.Play(req)
		return err
	})
	return out, err
}

// do 借出機台執行 fn；panic 與 fatal error 會淘汰該機台並補機，一般錯誤則原樣回傳並歸還機台。
func (p *MachinePool) do(ctx context.Context, fn func(m *Machine) error) (err error) {
	var m *Machine
	select {
	case <-p.done:
		return errs.NewFatal("machine pool closed: " + p.ClosedReason())
	case <-ctx.Done():
		return errs.NewWarn("request canceled/timeout: " + ctx.Err().Error())
	case m = <-p.pool:
		p.inflight.Add(1)
	}
	if m == nil {
		return errs.NewFatal("machine pool got nil machine")
	}

	defer func() {
		p.inflight.Add(-1)
		panicked := false
		if r := recover(); r != nil {
			panicked = true
			p.panics.Add(1)
			err = errs.NewFatal(fmt.Sprintf("machine %s panic : %v", m.levelName, r))
		}
		// 已關閉：機台直接丟棄
		if p.Closed() {
			return
		}
		if !panicked && !errs.IsFatal(err) {
			p.giveBack(m)
			return
		}
		if !panicked {
			p.fatals.Add(1)
		}
		if rerr := p.replace(m); rerr != nil && err == nil {
			err = rerr
		}
	}()

	err = fn(m)
	return
}

// giveBack 健康機台歸還 pool。
func (p *MachinePool) giveBack(m *Machine) {
	select {
	case <-p.done:
	case p.pool <- m:
	}
}

// replace 壞機台送入 broken 並補一台新機；broken 滿了代表連續故障，整池關閉交給上層處理。
func (p *MachinePool) replace(m *Machine) error {
	select {
	case p.broken <- m:
	default:
		p.fail("overwhelmed_by_failures")
		return errs.NewFatal("machine pool overwhelmed by failures")
	}
	fresh, err := p.build()
	p.rebuild.Add(1)
	if err != nil {
		p.fail("rebuild_failed")
		return errs.NewFatal(fmt.Sprintf("machine %s can not build", p.levelName))
	}
	p.giveBack(fresh)
	return nil
}

// Broken 取出一台等待檢查的壞機台；沒有時回傳 false。
func (p *MachinePool) Broken() (*Machine, bool) {
	select {
	case m := <-p.broken:
		return m, true
	default:
		return nil, false
	}
}

func (mp *MachinePool) PoolSize() int {
	return mp.poolsize
}

func (mp *MachinePool) Inflight() int {
	return int(mp.inflight.Load())
}

func (mp *MachinePool) ReBuild() int {
	return int(mp.rebuild.Load())
}

func (mp *MachinePool) ClosedReason() string {
	if v := mp.closeReason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (mp *MachinePool) Panics() int {
	return int(mp.panics.Load())
}

func (mp *MachinePool) Fatals() int {
	return int(mp.fatals.Load())
}

// MachinePoolMetrics 是一期提供的「拉取式（pull）」觀測快照。
//
// 設計原則：
//   - 不綁任何 metrics/telemetry SDK（Prometheus / OpenTelemetry 等），由上層自己決定如何輸出。
//   - 欄位值以讀取當下為主；其中 Available/brokenBacklog 來自 len(chan)，在高併發下是「近似值」但足夠用於營運觀測。
//   - 關閉瞬間的快照（CloseInflight/CloseAvail/Closebroken）只會在 Close 時寫入一次，用於事後排查。
type MachinePoolMetrics struct {
	LevelName string   `json:"level_name"`
	LevelID   spec.LID `json:"level_id"`

	PoolSize      int    `json:"pool_size"`      // 目標容量（初始化指定）
	Available     int    `json:"available"`      // 當下可借出的機台數（len(pool)）
	Inflight      int    `json:"inflight"`       // 使用中（借出未歸還）
	BrokenBacklog int    `json:"broken_backlog"` // broken channel 當下 backlog（len(broken)）
	Rebuild       int    `json:"rebuild"`        // 補機次數
	Panics        int    `json:"panics"`         // panic 次數
	Fatals        int    `json:"fatals"`         // fatal 次數
	Closed        bool   `json:"closed"`         // 是否已關閉
	CloseReason   string `json:"close_reason"`   // 關閉原因

	CloseInflight int `json:"close_inflight"` // Close() 當下 inflight（-1 表示尚未關閉）
	CloseAvail    int `json:"close_avail"`    // Close() 當下 available（-1 表示尚未關閉）
	Closebroken   int `json:"close_broken"`   // Close() 當下 broken backlog（-1 表示尚未關閉）
}

// Metrics 回傳一期的觀測快照；上層可用於 log、/metrics、或餵給 Prometheus/OTEL exporter。
func (mp *MachinePool) Metrics() MachinePoolMetrics {
	closed := mp.Closed()
	m := MachinePoolMetrics{
		LevelName:     mp.levelName,
		LevelID:       mp.levelId,
		PoolSize:      mp.poolsize,
		Available:     len(mp.pool),
		Inflight:      int(mp.inflight.Load()),
		BrokenBacklog: len(mp.broken),
		Rebuild:       int(mp.rebuild.Load()),
		Panics:        int(mp.panics.Load()),
		Fatals:        int(mp.fatals.Load()),
		Closed:        closed,
		CloseReason:   mp.ClosedReason(),
		CloseInflight: int(mp.closeInflight.Load()),
		CloseAvail:    int(mp.closeAvail.Load()),
		Closebroken:   int(mp.closeBroken.Load()),
	}
	return m
}

// Available 回傳當下 pool 可用機台數（len(pool)）。在高併發下為近似值。
func (mp *MachinePool) Available() int {
	return len(mp.pool)
}
