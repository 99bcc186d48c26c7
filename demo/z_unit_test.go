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

package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab"
)

func TestDemoLevelsPlayable(t *testing.T) {
	lab, err := NewLab()
	require.NoError(t, err)
	all := lab.All()
	require.Len(t, all, 4)

	for _, ent := range all {
		t.Run(ent.Name, func(t *testing.T) {
			sim, err := lab.NewSimulatorWithSeed(ent.LID, 42)
			require.NoError(t, err)
			require.NoError(t, sim.SetPolicy(cascadelab.PolicyGreedy))
			st, _, err := sim.SimMP(5, 2, false)
			require.NoError(t, err)
			assert.Equal(t, 10, st.Summary.Games)

			p, err := sim.PlayOne()
			require.NoError(t, err)
			rep, err := lab.Replay(p)
			require.NoError(t, err)
			assert.True(t, rep.Match, rep.Mismatch)
		})
	}
}

func TestNewServerConfig(t *testing.T) {
	cfg, err := NewServerConfig(":0", true)
	require.NoError(t, err)
	require.NoError(t, cfg.Valid())
	assert.True(t, cfg.Dev)
	assert.Equal(t, 1, cfg.PoolSize)
	_, ok := cfg.Lab.EntryByName("mercy")
	assert.True(t, ok)
}
