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
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/cascadelab/catalog"
	"github.com/zintix-labs/cascadelab/dto"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/spec"
)

// Runtime 對外服務的執行期：每個關卡一個 MachinePool，依 level_id 路由。
type Runtime struct {
	lab *Lab // 只讀引用

	pools map[spec.LID]*MachinePool
	ids   []spec.LID // 固定順序，用於列舉

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	poolSize int
	log      *slog.Logger
}

// SetLogger 設定關閉事件的記錄出口；nil 表示不記錄。
func (rt *Runtime) SetLogger(log *slog.Logger) {
	rt.log = log
}

// Start 開一局新遊戲。
func (rt *Runtime) Start(ctx context.Context, req *dto.StartRequest) (dto.GameState, error) {
	mp, err := rt.route(ctx, req.LevelID)
	if err != nil {
		return dto.GameState{}, err
	}
	return mp.Start(ctx, req)
}

// Play 套用一次操作。
func (rt *Runtime) Play(ctx context.Context, req *dto.MoveRequest) (dto.MoveResult, error) {
	mp, err := rt.route(ctx, req.LevelID)
	if err != nil {
		return dto.MoveResult{}, err
	}
	return mp.Play(ctx, req)
}

// Replay 重播一份 Playthrough（不佔用機台池）。
func (rt *Runtime) Replay(ctx context.Context, p *Playthrough) (*ReplayReport, error) {
	if _, err := rt.route(ctx, p.LevelID); err != nil {
		return nil, err
	}
	return rt.lab.Replay(p)
}

// Summary 關卡列表。
func (rt *Runtime) Summary() ([]catalog.Summary, error) {
	return rt.lab.Summary()
}

// Lab 取得組裝來源（模擬等非池化功能使用）。
func (rt *Runtime) Lab() *Lab {
	return rt.lab
}

// Metrics 依關卡 ID 順序回傳每個池的觀測快照。
func (rt *Runtime) Metrics() []MachinePoolMetrics {
	out := make([]MachinePoolMetrics, 0, len(rt.ids))
	for _, id := range rt.ids {
		out = append(out, rt.pools[id].Metrics())
	}
	return out
}

func (rt *Runtime) route(ctx context.Context, id spec.LID) (*MachinePool, error) {
	select {
	case <-ctx.Done():
		return nil, errs.NewWarn("request canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		rt.closed.Store(true)
		return nil, errs.NewFatal("runtime closed: " + rt.ClosedReason())
	default:
	}
	mp, ok := rt.pools[id]
	if !ok {
		return nil, errs.NewWarn("level id not found")
	}
	return mp, nil
}

// Close 關閉 runtime 與所有機台池，可重複呼叫。
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason 關閉 runtime 並記錄原因（只寫入一次），同時關閉所有機台池。
func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
		for _, id := range rt.ids {
			rt.pools[id].closeWithReason(reason)
		}
		if rt.log != nil {
			rt.log.Warn("runtime.closed", slog.String("reason", reason), slog.Int("levels", len(rt.ids)))
		}
	})
}

// poolFailed 任一機台池故障關閉時整個 runtime 跟著關閉。
func (rt *Runtime) poolFailed(id spec.LID, reason string) {
	rt.closeWithReason(fmt.Sprintf("level %d: %s", id, reason))
}

// Done 關閉後會被 close 的 channel。
func (rt *Runtime) Done() <-chan struct{} {
	return rt.done
}

// Closed 是否已關閉。
func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

// ClosedReason 關閉原因；尚未關閉時為空字串。
func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
