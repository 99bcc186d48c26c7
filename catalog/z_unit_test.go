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

package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/spec"
)

func levelFS() fstest.MapFS {
	return fstest.MapFS{
		"first.yaml":  {Data: []byte("level_id: 1\nlevel_name: First\nwidth: 5\nheight: 5\ncolors: 4\n")},
		"second.json": {Data: []byte(`{"level_id":2,"level_name":"Second","width":6,"height":6,"colors":5}`)},
		"readme.txt":  {Data: []byte("ignored")},
	}
}

func TestCatalogRegisterAndLoad(t *testing.T) {
	c, err := New(levelFS())
	require.NoError(t, err)
	require.NoError(t, c.Register(
		Entry{LID: 2, Name: "Second", ConfigName: "second.json"},
		Entry{LID: 1, Name: " First ", ConfigName: "first.yaml"},
	))
	c.Freeze()
	assert.True(t, c.IsFrozen())

	ids := c.IDs()
	require.Len(t, ids, 2)
	assert.EqualValues(t, 1, ids[0], "ids are sorted")

	e, ok := c.GetByName("FIRST")
	require.True(t, ok)
	assert.Equal(t, "first", e.Name)

	ls, err := c.LevelSettingByName("second")
	require.NoError(t, err)
	assert.Equal(t, 6, ls.Width)
	sum := NewSummary(ls)
	assert.EqualValues(t, 2, sum.LID)
	assert.Equal(t, "weighted", string(sum.Predictor))

	_, err = c.LevelSettingByID(9)
	assert.Error(t, err)
	assert.Error(t, c.Register(Entry{LID: 3, Name: "late", ConfigName: "first.yaml"}), "frozen catalog")
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	c, err := New(levelFS())
	require.NoError(t, err)
	require.NoError(t, c.Register(Entry{LID: 1, Name: "first", ConfigName: "first.yaml"}))
	assert.ErrorIs(t, c.Register(Entry{LID: 1, Name: "other", ConfigName: "second.json"}), ErrDupID)
	assert.ErrorIs(t, c.Register(Entry{LID: 2, Name: "FIRST", ConfigName: "second.json"}), ErrDupName)
	assert.Error(t, c.Register(Entry{LID: 2, Name: "second", ConfigName: "missing.yaml"}))
	assert.Error(t, c.Register(Entry{LID: 2, Name: "second", ConfigName: "../second.json"}))
	assert.Len(t, c.All(), 1, "failed batches register nothing")
}

func TestMultiFSRules(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(fstest.MapFS{"sub/level.yaml": {Data: []byte("x")}})
	assert.Error(t, err, "nested configs are rejected")

	_, err = New(levelFS(), fstest.MapFS{"first.yaml": {Data: []byte("x")}})
	assert.Error(t, err, "same file name across sources")

	c, err := New(levelFS(), fstest.MapFS{".hidden.yaml": {Data: []byte("x")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"first.yaml", "second.json"}, c.Files())
}

func TestCatalogScan(t *testing.T) {
	c, err := New(levelFS())
	require.NoError(t, err)
	ents, err := c.Scan(nil)
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, "first.yaml", ents[0].ConfigName)
	require.NoError(t, c.Register(ents...))

	_, err = c.Scan(nil)
	assert.Error(t, err, "already registered")

	dup := fstest.MapFS{
		"a.yaml": {Data: []byte("level_id: 1\nlevel_name: a\nwidth: 5\nheight: 5\ncolors: 4\n")},
		"b.yaml": {Data: []byte("level_id: 1\nlevel_name: b\nwidth: 5\nheight: 5\ncolors: 4\n")},
	}
	c, err = New(dup)
	require.NoError(t, err)
	_, err = c.Scan(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.yaml and b.yaml")

	c, err = New(levelFS())
	require.NoError(t, err)
	_, err = c.Scan(func(ls *spec.LevelSetting) error {
		if ls.Width > 5 {
			return errs.NewFatal("too wide")
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second.json")
}
