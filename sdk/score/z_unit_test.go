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

package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/match"
)

func TestTable(t *testing.T) {
	tb := DefaultTable()
	assert.NoError(t, tb.Valid())

	plain := &match.Shape{Kind: match.Plain, Cells: []int{0, 1, 2}}
	assert.Equal(t, int64(60), tb.ScoreMatch(plain))

	line5 := &match.Shape{Kind: match.Line5, Cells: []int{0, 1, 2, 3, 4}}
	assert.Equal(t, int64(5*20+100), tb.ScoreMatch(line5))

	assert.Equal(t, int64(200), tb.ScoreSpecialCombo(1, board.Row, 2, board.Area3))
	assert.Equal(t, int64(400), tb.ScoreSpecialCombo(board.Rainbow, board.ColorBomb, 3, board.None))
	assert.Equal(t, int64(70), tb.ScoreDetonation(board.Row, 7))

	tb.PerTile = -1
	assert.Error(t, tb.Valid())

	var z Scorer = Zero{}
	assert.Zero(t, z.ScoreMatch(line5))
}
