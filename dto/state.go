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

package dto

import (
	"github.com/zintix-labs/cascadelab/corefmt"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
)

// maxStateBytes 解壓後的快照上限
const maxStateBytes = 1 << 20

// EncodeState 快照 -> token（JSON -> zstd -> base64url）。
func EncodeState(snap board.Snapshot) (string, error) {
	return corefmt.EncodeToken(snap)
}

// DecodeState 為 EncodeState 的反向；任何格式錯誤都視為 request 錯誤（Warn）。
func DecodeState(s string) (board.Snapshot, error) {
	var snap board.Snapshot
	if err := corefmt.DecodeToken(s, maxStateBytes, &snap); err != nil {
		return board.Snapshot{}, errs.Wrap(err, "decode state")
	}
	return snap, nil
}
