package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/dto"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/sdk/cascade"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/server/api"
	v1 "github.com/zintix-labs/cascadelab/server/api/v1"
	"github.com/zintix-labs/cascadelab/server/httperr"
	"github.com/zintix-labs/cascadelab/server/netsvr"
	"github.com/zintix-labs/cascadelab/server/svrcfg"
	"github.com/zintix-labs/cascadelab/stats"
)

const levelYAML = `
level_id: 7
level_name: seven
width: 6
height: 6
colors: 4
move_limit: 12
target_score: 1500
`

func newTestServer(t *testing.T, dev bool) (*netsvr.ChiAdapter, *cascadelab.Runtime) {
	t.Helper()
	fsys := fstest.MapFS{"seven.yaml": {Data: []byte(levelYAML)}}
	lab, err := cascadelab.NewAuto(core.Default(), cascadelab.Configs(fsys), cascadelab.Predictors(cascadelab.BuiltinPredictors()))
	require.NoError(t, err)

	cfg := &svrcfg.SvrCfg{
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		PoolSize: 2,
		Lab:      lab,
		Dev:      dev,
	}
	require.NoError(t, cfg.Valid())
	svr := netsvr.NewChiServerDefault()
	rt, err := api.RegisterRoutes(svr, cfg)
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return svr, rt
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	svr, rt := newTestServer(t, false)

	w := do(t, svr, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	rt.Close()
	w = do(t, svr, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLevels(t *testing.T) {
	svr, _ := newTestServer(t, false)
	w := do(t, svr, http.MethodGet, "/v1/levels", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sum []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	require.Len(t, sum, 1)
	assert.EqualValues(t, 7, sum[0]["level_id"])
	assert.Equal(t, "seven", sum[0]["name"])
}

func TestPlayStartAndMove(t *testing.T) {
	svr, _ := newTestServer(t, false)

	w := do(t, svr, http.MethodGet, "/v1/play/start?level_id=7&seed=99", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	gs := decode[dto.GameState](t, w)
	assert.Equal(t, "seven", gs.LevelName)
	assert.Equal(t, 12, gs.MovesLeft)
	require.NotEmpty(t, gs.StateB64U)

	// 同一個 seed 開局必定相同
	w2 := do(t, svr, http.MethodPost, "/v1/play/start", map[string]any{"level_id": 7, "seed": 99})
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, gs.Board.Rows, decode[dto.GameState](t, w2).Board.Rows)

	snap, err := dto.DecodeState(gs.StateB64U)
	require.NoError(t, err)
	st, err := board.RestoreState(snap, core.Default())
	require.NoError(t, err)
	a, b, ok := cascade.FindMove(st.Grid)
	require.True(t, ok)

	act := dto.Swap(a, b)
	if a == b {
		act = dto.Activate(a)
	}
	w = do(t, svr, http.MethodPost, "/v1/play/move", dto.MoveRequest{LevelID: 7, Action: act, StateB64U: gs.StateB64U})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[dto.MoveResult](t, w)
	assert.Contains(t, []cascade.Outcome{cascade.OutcomeResolved, cascade.OutcomeUnsolvable}, res.Result.Outcome)
	assert.Equal(t, 1, res.State.Moves)
	assert.NotEmpty(t, res.Events)
	assert.Equal(t, gs.StateB64U, res.StartB64U)

	// 同一個 state + action 重送，結果一致
	w = do(t, svr, http.MethodPost, "/v1/play/move", dto.MoveRequest{LevelID: 7, Action: act, StateB64U: gs.StateB64U})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, res.State.StateB64U, decode[dto.MoveResult](t, w).State.StateB64U)
}

func TestPlayBadRequests(t *testing.T) {
	svr, _ := newTestServer(t, false)

	w := do(t, svr, http.MethodGet, "/v1/play/start?level_id=404", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[httperr.Body](t, w)
	assert.Equal(t, "warn", body.Level)

	w = do(t, svr, http.MethodPost, "/v1/play/move", dto.MoveRequest{LevelID: 7, Action: dto.Swap(board.Position{}, board.Position{Col: 1}), StateB64U: "!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, svr, http.MethodPost, "/v1/play/start", map[string]any{"level_id": 7, "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSim(t *testing.T) {
	svr, _ := newTestServer(t, false)

	w := do(t, svr, http.MethodGet, "/v1/sim?level=seven&games=5&workers=2&policy=greedy&seed=3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[v1.SimResponse](t, w)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 10, resp.Stats.Summary.Games)
	assert.Equal(t, int64(3), resp.Seed)

	w = do(t, svr, http.MethodPost, "/v1/sim", v1.SimRequest{LevelID: 7, Games: 5, Workers: 2, Policy: "greedy", Seed: ptr(int64(3))})
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[v1.SimResponse](t, w)
	assert.Equal(t, resp.Stats.Summary, again.Stats.Summary)

	for _, q := range []string{
		"/v1/sim?level_id=7&games=0",
		"/v1/sim?level_id=7&games=1&workers=99",
		"/v1/sim?level_id=7&games=1&policy=nope",
		"/v1/sim?games=1",
	} {
		w := do(t, svr, http.MethodGet, q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestSimByCfg(t *testing.T) {
	svr, _ := newTestServer(t, false)

	w := do(t, svr, http.MethodPost, "/v1/simbycfg", v1.SimByCfgRequest{CfgYAML: levelYAML, Games: 3, Seed: ptr(int64(1))})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[v1.SimResponse](t, w).Stats.Summary.Games)

	w = do(t, svr, http.MethodPost, "/v1/simbycfg", v1.SimByCfgRequest{Games: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayOneAndReplay(t *testing.T) {
	svr, _ := newTestServer(t, false)

	w := do(t, svr, http.MethodGet, "/v1/playone?level_id=7&seed=11", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	one := decode[v1.PlaythroughResponse](t, w)
	require.NotEmpty(t, one.B64U)

	w = do(t, svr, http.MethodPost, "/v1/replay", v1.ReplayRequest{B64U: one.B64U})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[cascadelab.ReplayReport](t, w)
	assert.True(t, rep.Match, rep.Mismatch)
	assert.Equal(t, one.Playthrough.GridHash, rep.GridHash)

	tampered := *one.Playthrough
	tampered.GridHash++
	w = do(t, svr, http.MethodPost, "/v1/replay", v1.ReplayRequest{Playthrough: &tampered})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[cascadelab.ReplayReport](t, w).Match)

	w = do(t, svr, http.MethodPost, "/v1/replay", v1.ReplayRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStat(t *testing.T) {
	svr, _ := newTestServer(t, false)
	req := v1.StatRequest{
		LevelName:   "online",
		MoveLimit:   20,
		TargetScore: 1000,
		Games: []v1.GameResult{
			{Score: 1200, Moves: 10, Won: true},
			{Score: 400, Moves: 20, OutOfMoves: true},
		},
	}
	w := do(t, svr, http.MethodPost, "/v1/stat", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[stats.StatReport](t, w)
	assert.Equal(t, 2, st.Summary.Games)
	assert.Equal(t, 1, st.Summary.Wins)

	w = do(t, svr, http.MethodGet, "/v1/stat", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	svr, _ := newTestServer(t, false)
	w := do(t, svr, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode[httperr.Body](t, w)
	assert.Equal(t, "warn", body.Level)
	assert.Contains(t, body.Error, "/nope")
}

func TestMetrics(t *testing.T) {
	svr, _ := newTestServer(t, false)
	w := do(t, svr, http.MethodGet, "/v1/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ms []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ms))
	assert.Len(t, ms, 1)
}

func TestDevPanel(t *testing.T) {
	svr, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusNotFound, do(t, svr, http.MethodGet, "/dev", nil).Code)

	svr, _ = newTestServer(t, true)
	w := do(t, svr, http.MethodGet, "/dev", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CascadeLab Dev")

	w = do(t, svr, http.MethodPost, "/dev/games", map[string]any{"level": "SEVEN", "games": 2, "seed": "5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[cascadelab.DevGamesReport](t, w)
	assert.Equal(t, 2, first.Games)

	// before 優先於 seed
	w = do(t, svr, http.MethodPost, "/dev/games", map[string]any{"level_id": 7, "games": 2, "seed": "123", "before": "5"})
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[cascadelab.DevGamesReport](t, w)
	assert.Equal(t, first.After, again.After)
	require.Len(t, again.Results, len(first.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Seed, again.Results[i].Seed)
		assert.Equal(t, first.Results[i].Score, again.Results[i].Score)
		assert.Equal(t, first.Results[i].GridHash, again.Results[i].GridHash)
	}

	w = do(t, svr, http.MethodPost, "/dev/sim", map[string]any{"level_id": 7, "games": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[cascadelab.DevSimReport](t, w).Stat.Summary.Games)
}

func ptr[T any](v T) *T { return &v }
