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
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/sdk/event"
	"github.com/zintix-labs/cascadelab/sdk/refill"
	"github.com/zintix-labs/cascadelab/sdk/score"
)

// Snapshot 只在等待輸入或死局時可取得。
// 補牌策略只保存 refill.Cursor 遊標，其他內部狀態不在快照內。
func (e *Engine) Snapshot() (board.Snapshot, error) {
	if e.phase != AwaitingInput && e.phase != Stalled {
		return board.Snapshot{}, errs.Warnf("snapshot: engine is %s", e.phase)
	}
	snap, err := e.st.Snapshot()
	if err != nil {
		return snap, err
	}
	if c, ok := e.refill.Predictor.(refill.Cursor); ok {
		snap.Cursor = c.Cursor()
	}
	return snap, nil
}

// Restore 由快照重建引擎；盤面沒有可行步時直接進入 Stalled。
func Restore(cfg Config, snap board.Snapshot, factory core.PRNGFactory, pred refill.Predictor, scorer score.Scorer, sink event.Sink) (*Engine, error) {
	st, err := board.RestoreState(snap, factory)
	if err != nil {
		return nil, err
	}
	e, err := New(cfg, st, pred, scorer, sink)
	if err != nil {
		return nil, err
	}
	if c, ok := pred.(refill.Cursor); ok {
		c.Seek(snap.Cursor)
	}
	if !e.HasValidMove() {
		e.phase = Stalled
	}
	return e, nil
}
