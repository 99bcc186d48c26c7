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

package cascade

import (
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/event"
)

// Tick 推進一個固定步長：重力、補牌。回傳本 tick 移動與生成的方塊數。
func (e *Engine) Tick() int {
	active := e.gravity.Tick(e.st, e.em)
	spawned := e.refill.Tick(e.st, e.em)
	e.st.Tick++
	return active + spawned
}

// Settle 反覆 Tick 直到沒有方塊移動也沒有新方塊生成，回傳經過的 tick 數。
func (e *Engine) Settle() (int, error) {
	e.phase = Settling
	for n := 1; n <= e.cfg.MaxSettleTicks; n++ {
		if e.Tick() == 0 && !e.st.Grid.AnyFalling() {
			return n, nil
		}
	}
	e.phase = Stalled
	return e.cfg.MaxSettleTicks, errs.Withf(errs.ErrCascadeLimit, "settle did not finish within %d ticks", e.cfg.MaxSettleTicks)
}

// Resolve settle -> detect -> process 直到盤面沒有任何形狀。
// 超過 MaxCascadeSteps 輪視為引擎錯誤（Fatal）。
func (e *Engine) Resolve(res *MoveResult) error {
	g := e.st.Grid
	for step := 0; ; step++ {
		ticks, err := e.Settle()
		res.Ticks += ticks
		if err != nil {
			return err
		}
		e.phase = Matching
		shapes := e.detector.Detect(g, nil, e.st.Streams.Gameplay())
		if len(shapes) == 0 {
			return nil
		}
		if step >= e.cfg.MaxCascadeSteps {
			e.phase = Stalled
			return errs.Withf(errs.ErrCascadeLimit, "cascade exceeded %d steps", e.cfg.MaxCascadeSteps)
		}
		res.Cascades++
		res.add(e.proc.Process(e.st, shapes, e.em))
	}
}

// stabilize Resolve 後確認仍有可行步；沒有則洗盤並再次 Resolve，洗盤失敗則進入 Stalled。
func (e *Engine) stabilize(res *MoveResult) error {
	for round := 0; ; round++ {
		if err := e.Resolve(res); err != nil {
			return err
		}
		if e.HasValidMove() {
			return nil
		}
		if round >= e.cfg.ShuffleRetries || !e.Shuffle() {
			e.phase = Stalled
			e.emit(event.BoardStalled, event.Event{Other: uint64(res.Shuffled)})
			return nil
		}
		res.Shuffled++
	}
}
