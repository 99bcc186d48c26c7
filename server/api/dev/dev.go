// Package dev 提供開發期使用的 Dev Panel HTTP endpoints。
//
// 用途：
//   - 指定關卡、Policy 與 seed，快速跑幾局看結果，或跑一批只看統計。
//   - 每次回應都帶 before / after 兩個 seed；把 before 貼回去即可重跑同一批，用 after 則接續。
//
// 注意：
//   - 這不是 production API，只在 svrcfg.Dev 為 true 時註冊。
//   - 錯誤處理走 httperr.Errs（errs.Warn / errs.Fatal 對應 HTTP status）。
//   - before 與 seed 同時給時以 before 為準。
package dev

import (
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/httperr"
	"github.com/zintix-labs/cascadelab/server/netsvr"
	"github.com/zintix-labs/cascadelab/server/svrcfg"
	"github.com/zintix-labs/cascadelab/spec"
)

// devRequest Dev Panel 的輸入。level_id 與 level 擇一，level_id 優先。
type devRequest struct {
	LevelID int64  `json:"level_id"`
	Level   string `json:"level"`
	Games   int    `json:"games"`
	Policy  string `json:"policy"`
	Seed    string `json:"seed"`
	Before  string `json:"before"`
}

// devMetaResponse 前端下拉選單用
type devMetaResponse struct {
	Levels   any      `json:"levels"`
	Policies []string `json:"policies"`
}

// Register 註冊 Dev Panel routes。
//
//   - GET  /dev       ：HTML 頁面
//   - GET  /dev/meta  ：關卡摘要與 Policy 名稱
//   - POST /dev/games ：跑 N 局並回傳逐局結果（含 replay）
//   - POST /dev/sim   ：跑 N 局只回傳統計
func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) error {
	if cfg == nil || cfg.Lab == nil {
		return errs.NewFatal("dev: lab is required")
	}
	lab := cfg.Lab
	svr.Get("/dev", devPage)
	svr.Get("/dev/meta", devMeta(lab))
	svr.Post("/dev/games", devGames(lab))
	svr.Post("/dev/sim", devSim(lab))
	return nil
}

func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(devPageHTML))
}

func devMeta(lab *cascadelab.Lab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := lab.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		writeJSON(w, devMetaResponse{Levels: sum, Policies: cascadelab.PolicyNames()})
	}
}

func devGames(lab *cascadelab.Lab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, req, before, err := prepare(lab, r)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		var rep cascadelab.DevGamesReport
		if before != nil {
			rep, err = d.RestoreGames(*before, req.Games)
		} else {
			rep, err = d.Games(req.Games)
		}
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		writeJSON(w, rep)
	}
}

func devSim(lab *cascadelab.Lab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, req, before, err := prepare(lab, r)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		var rep cascadelab.DevSimReport
		if before != nil {
			rep, err = d.RestoreSim(*before, req.Games)
		} else {
			rep, err = d.Sim(req.Games)
		}
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		writeJSON(w, rep)
	}
}

// prepare 解析請求並建立 DevSimulator；before 非 nil 時呼叫端應走 Restore。
func prepare(lab *cascadelab.Lab, r *http.Request) (*cascadelab.DevSimulator, *devRequest, *int64, error) {
	req := new(devRequest)
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, nil, nil, errs.NewWarn("invalid json:" + err.Error())
	}
	id, err := resolveLevel(lab, req)
	if err != nil {
		return nil, nil, nil, err
	}
	if req.Games < 1 {
		return nil, nil, nil, errs.NewWarn("games is required")
	}
	var before *int64
	if s := strings.TrimSpace(req.Before); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, nil, nil, errs.NewWarn("before must be int64")
		}
		before = &v
	}
	seed, err := resolveSeed(req.Seed)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := lab.NewDevSimulator(id, seed)
	if err != nil {
		return nil, nil, nil, err
	}
	if req.Policy != "" {
		if err := d.SetPolicy(req.Policy); err != nil {
			return nil, nil, nil, err
		}
	}
	return d, req, before, nil
}

// resolveLevel level_id > 0 時精準匹配；否則以名稱（不分大小寫）或數字字串匹配。
func resolveLevel(lab *cascadelab.Lab, req *devRequest) (spec.LID, error) {
	if req.LevelID > 0 {
		id := spec.LID(req.LevelID)
		if _, ok := lab.EntryByID(id); !ok {
			return 0, errs.NewWarn("level id not found")
		}
		return id, nil
	}
	name := strings.TrimSpace(req.Level)
	if name == "" {
		return 0, errs.NewWarn("level is required")
	}
	for _, e := range lab.All() {
		if strings.EqualFold(e.Name, name) {
			return e.LID, nil
		}
	}
	if u, err := strconv.ParseUint(name, 10, 32); err == nil {
		if _, ok := lab.EntryByID(spec.LID(u)); ok {
			return spec.LID(u), nil
		}
	}
	return 0, errs.NewWarn("level not found")
}

// resolveSeed 空字串時以 crypto/rand 產生。
func resolveSeed(seed string) (int64, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			return 0, errs.NewWarn("seed generate failed")
		}
		return rnd.Int64(), nil
	}
	v, err := strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return 0, errs.NewWarn("seed must be int64")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

// devPageHTML 內嵌頁面：seed 與 before 互斥，填了 before 就停用 seed。
const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <title>CascadeLab Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; }
    h1 { margin: 0 0 16px; font-size: 22px; }
    .grid { display:grid; grid-template-columns: repeat(auto-fit, minmax(160px,1fr)); gap:12px; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:8px 10px; font-size:14px; }
    input:disabled { opacity: 0.55; }
    .actions { display:flex; gap:10px; justify-content:flex-end; margin: 8px 0 14px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:10px 14px; font-weight:600; }
    #btn-games { background:#38bdf8; color:#0b1224; }
    #btn-sim { background:#22c55e; color:#0b1224; }
    button:disabled { opacity:0.6; cursor:not-allowed; }
    pre { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:160px; overflow:auto; white-space:pre-wrap; }
    .err { color:#f87171; }
  </style>
</head>
<body>
<div class="wrap">
  <h1>CascadeLab Dev</h1>
  <div class="grid">
    <label>Level<select id="level"></select></label>
    <label>Policy<select id="policy"></select></label>
    <label>Games<input id="games" type="number" min="1" value="10" /></label>
    <label>Seed<input id="seed" placeholder="random" /></label>
    <label>Before<input id="before" placeholder="restore from seed" /></label>
  </div>
  <div class="actions">
    <button id="btn-games">Games</button>
    <button id="btn-sim">Sim</button>
  </div>
  <pre id="out"></pre>
</div>
<script>
const $ = (id) => document.getElementById(id);
async function loadMeta() {
  const res = await fetch('/dev/meta');
  const meta = await res.json();
  for (const lv of meta.levels || []) {
    const o = document.createElement('option');
    o.value = lv.level_id; o.textContent = lv.level_id + ' ' + lv.name;
    $('level').appendChild(o);
  }
  for (const p of meta.policies || []) {
    const o = document.createElement('option');
    o.value = p; o.textContent = p;
    $('policy').appendChild(o);
  }
}
$('before').addEventListener('input', () => { $('seed').disabled = $('before').value.trim() !== ''; });
async function run(path) {
  const body = {
    level_id: Number($('level').value),
    policy: $('policy').value,
    games: Number($('games').value),
    seed: $('seed').disabled ? '' : $('seed').value.trim(),
    before: $('before').value.trim(),
  };
  $('btn-games').disabled = $('btn-sim').disabled = true;
  try {
    const res = await fetch(path, { method: 'POST', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify(body) });
    const data = await res.json();
    $('out').className = res.ok ? '' : 'err';
    $('out').textContent = JSON.stringify(data, null, 2);
    if (res.ok && data.after !== undefined) { $('before').value = data.after; $('seed').disabled = true; }
  } catch (e) {
    $('out').className = 'err';
    $('out').textContent = String(e);
  } finally {
    $('btn-games').disabled = $('btn-sim').disabled = false;
  }
}
$('btn-games').addEventListener('click', () => run('/dev/games'));
$('btn-sim').addEventListener('click', () => run('/dev/sim'));
loadMeta();
</script>
</body>
</html>
`
