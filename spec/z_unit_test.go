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

package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/fx"
)

const levelYAML = `
level_id: 3
level_name: " Pillars "
move_limit: 20
target_score: 5000
difficulty: 0.25
colors: 4
color_weights: [4, 3, 2, 1]
board:
  - "? ? ? ?"
  - "? # # ?"
  - "R Gh ? *"
fixed:
  cycle: [1, 2]
`

func TestLevelSettingYAML(t *testing.T) {
	ls, err := GetLevelSettingByYAML([]byte(levelYAML))
	require.NoError(t, err)
	assert.Equal(t, "Pillars", ls.LevelName)
	assert.Equal(t, DefaultPredictor, ls.Predictor)
	assert.Equal(t, 4, ls.Width)
	assert.Equal(t, 3, ls.Height)

	lv := ls.ToLevel()
	require.NoError(t, lv.Validate())
	assert.Equal(t, 3, lv.ID)
	assert.True(t, lv.Cells[0].Random)
	assert.True(t, lv.Cells[5].Suspended)
	assert.Equal(t, board.Row, lv.Cells[9].Bomb)
	assert.Equal(t, board.Rainbow, lv.Cells[11].Color)

	lv.Cells[0].Random = false
	assert.True(t, ls.ToLevel().Cells[0].Random, "ToLevel must copy cells")

	var fixed struct {
		Cycle []int `yaml:"cycle"`
	}
	require.NoError(t, DecodeFixed(ls, &fixed))
	assert.Equal(t, []int{1, 2}, fixed.Cycle)

	var strict struct {
		Other int `yaml:"other"`
	}
	assert.Error(t, DecodeFixed(ls, &strict), "unknown fields are rejected")
}

func TestLevelSettingRandomBoard(t *testing.T) {
	ls, err := GetLevelSettingByJSON([]byte(`{"level_id":1,"level_name":"open","width":6,"height":5,"colors":5}`))
	require.NoError(t, err)
	lv := ls.ToLevel()
	assert.Len(t, lv.Cells, 30)
	for _, c := range lv.Cells {
		assert.True(t, c.Random)
	}
}

func TestLevelSettingRejects(t *testing.T) {
	cases := map[string]string{
		"no name":       `{"level_id":1,"width":5,"height":5,"colors":4}`,
		"no size":       `{"level_id":1,"level_name":"x","colors":4}`,
		"size mismatch": `{"level_id":1,"level_name":"x","width":4,"colors":4,"board":["R G B","G B R","B R G"]}`,
		"few colors":    `{"level_id":1,"level_name":"x","width":5,"height":5,"colors":2}`,
		"bad token":     `{"level_id":1,"level_name":"x","colors":4,"board":["R G Z","G B R","B R G"]}`,
		"bad weights":   `{"level_id":1,"level_name":"x","width":5,"height":5,"colors":3,"color_weights":[1,2]}`,
	}
	for name, raw := range cases {
		_, err := GetLevelSettingByJSON([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestEngineSettingDefaults(t *testing.T) {
	es := DefaultEngineSetting()
	assert.Equal(t, cascade.DefaultConfig(), es.Config())
	assert.NotNil(t, es.Scorer())

	es2, err := GetEngineSettingByYAML([]byte("tick_rate: 120\nsearch_iters: -1\nshuffle_retries: -1\nshape_weights: {line5: 9, cross: 8, plus: 7, line4: 6, square: 5, plain: 0}\n"))
	require.NoError(t, err)
	cfg := es2.Config()
	assert.Equal(t, fx.FromRatio(1, 120), cfg.Gravity.Dt)
	assert.Equal(t, 0, cfg.Match.MaxSearchIters)
	assert.Equal(t, 0, cfg.ShuffleRetries)
	assert.Equal(t, 9, cfg.Match.Weights.Line5)
	assert.Equal(t, int64(8333), cfg.DtMicros())
}

func TestEngineSettingRejectsTunnelling(t *testing.T) {
	// 10 tick/s * 20 格/s 一個 tick 走 2 格
	_, err := GetEngineSettingByJSON([]byte(`{"tick_rate":10,"max_speed":20}`))
	assert.Error(t, err)
	_, err = GetEngineSettingByJSON([]byte(`{"tick_rate":5000}`))
	assert.Error(t, err)
}
