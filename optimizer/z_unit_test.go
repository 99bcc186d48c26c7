package optimizer

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/spec"
)

const levelYAML = `
level_id: 5
level_name: tune
width: 6
height: 6
colors: 4
move_limit: 8
target_score: 800
difficulty: 0.5
`

func newLab(t *testing.T) *cascadelab.Lab {
	t.Helper()
	fsys := fstest.MapFS{"tune.yaml": {Data: []byte(levelYAML)}}
	lab, err := cascadelab.NewAuto(core.Default(), cascadelab.Configs(fsys), cascadelab.Predictors(cascadelab.BuiltinPredictors()))
	require.NoError(t, err)
	return lab
}

func TestParseSetting(t *testing.T) {
	s, err := ParseSetting([]byte("level_id: 5\ntarget_win_rate: 0.4\ngames: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, spec.LID(5), s.LevelID)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, 1.0, s.MaxDifficulty)
	assert.Equal(t, 12, s.MaxIter)
	assert.Equal(t, 0.01, s.Tolerance)

	for _, bad := range []string{
		"target_win_rate: 0.4\ngames: 10\n",
		"level_id: 5\ntarget_win_rate: 1.2\ngames: 10\n",
		"level_id: 5\ntarget_win_rate: 0.4\n",
		"level_id: 5\ntarget_win_rate: 0.4\ngames: 10\nmin_difficulty: 0.8\nmax_difficulty: 0.2\n",
		"level_id: [",
	} {
		_, err := ParseSetting([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestTunerRun(t *testing.T) {
	lab := newLab(t)
	cfg := &Setting{LevelID: 5, TargetWinRate: 0.5, Tolerance: 0.001, Games: 10, Policy: cascadelab.PolicyGreedy, MaxIter: 3, Seed: 9}
	tuner, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	res, err := tuner.Run(lab)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trace)
	assert.LessOrEqual(t, len(res.Trace), 3)
	assert.Equal(t, 0.5, res.Trace[0].Difficulty)
	assert.Contains(t, res.Trace, res.Best)
	require.NotNil(t, res.Setting)
	assert.Equal(t, res.Best.Difficulty, res.Setting.Difficulty)

	// 同一份設定結果相同
	again, err := tuner.Run(lab)
	require.NoError(t, err)
	assert.Equal(t, res.Trace, again.Trace)

	var buf bytes.Buffer
	require.NoError(t, res.WriteLevelYAML(&buf))
	ls, err := spec.GetLevelSettingByYAML(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, res.Best.Difficulty, ls.Difficulty)
	assert.Equal(t, "tune", ls.LevelName)
}

func TestTunerUnknownLevel(t *testing.T) {
	tuner, err := New(&Setting{LevelID: 99, TargetWinRate: 0.5, Games: 1}, nil)
	require.NoError(t, err)
	_, err = tuner.Run(newLab(t))
	assert.Error(t, err)
}
