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

package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/httperr"
	"github.com/zintix-labs/cascadelab/spec"
	"github.com/zintix-labs/cascadelab/stats"
)

const (
	maxSimGames   = 1_000_000 // 單次請求總局數上限（games * workers）
	maxSimWorkers = 16
)

// SimRequest 以註冊的關卡與 Policy 跑批次模擬。
type SimRequest struct {
	LevelID    spec.LID `json:"level_id"`
	LevelName  string   `json:"level"`
	Games      int      `json:"games"`
	Workers    int      `json:"workers"`
	Policy     string   `json:"policy"`
	MaxActions int      `json:"max_actions"`
	Seed       *int64   `json:"seed,omitempty"`
}

// SimResponse used_ms 為實際耗時；seed 回傳以便重現同一份報表。
type SimResponse struct {
	Stats    *stats.StatReport `json:"stats"`
	Seed     int64             `json:"seed"`
	UsedTime int64             `json:"used_ms"`
}

type SimHandler struct {
	lab *cascadelab.Lab
	log *slog.Logger
}

func NewSimHandler(lab *cascadelab.Lab, log *slog.Logger) (*SimHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &SimHandler{lab: lab, log: log}, nil
}

// Sim GET|POST /v1/sim
func (sh *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSimRequest(w, r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	id, err := sh.resolve(req.LevelID, req.LevelName)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Workers == 0 {
		req.Workers = 1
	}
	if err := validSim(req.Games, req.Workers); err != nil {
		httperr.Errs(w, err)
		return
	}
	seed, err := seedOr(req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	sim, err := sh.lab.NewSimulatorWithSeed(id, seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "build simulator err: "+strconv.FormatUint(uint64(id), 10)))
		return
	}
	if err := sh.configure(sim, req.Policy, req.MaxActions); err != nil {
		httperr.Errs(w, err)
		return
	}
	st, used, err := sim.SimMP(req.Games, req.Workers, false)
	if err != nil {
		httperr.Log(sh.log, "simulate failed", err)
		httperr.Errs(w, errs.Wrap(err, "simulate err"))
		return
	}
	writeJSON(w, SimResponse{Stats: st, Seed: seed, UsedTime: used.Milliseconds()})
}

// PlayOne GET /v1/playone：以 Policy 玩一局並回傳可重播的 Playthrough
func (sh *SimHandler) PlayOne(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSimRequest(w, r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	id, err := sh.resolve(req.LevelID, req.LevelName)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	seed, err := seedOr(req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	sim, err := sh.lab.NewSimulatorWithSeed(id, seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if err := sh.configure(sim, req.Policy, req.MaxActions); err != nil {
		httperr.Errs(w, err)
		return
	}
	p, err := sim.PlayOne()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	b64, err := p.EncodeB64U()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, PlaythroughResponse{Playthrough: p, B64U: b64})
}

// PlaythroughResponse 一局紀錄與其 base64url 壓縮形式
type PlaythroughResponse struct {
	Playthrough *cascadelab.Playthrough `json:"playthrough"`
	B64U        string                  `json:"playthrough_b64u"`
}

// resolve level_id 優先，其次 level 名稱。
func (sh *SimHandler) resolve(id spec.LID, name string) (spec.LID, error) {
	if id != 0 {
		if _, err := sh.lab.LevelSetting(id); err != nil {
			return 0, errs.NewWarn("level id not found")
		}
		return id, nil
	}
	if name != "" {
		if e, ok := sh.lab.EntryByName(name); ok {
			return e.LID, nil
		}
		return 0, errs.NewWarn("level not found: " + name)
	}
	return 0, errs.NewWarn("level_id or level is required")
}

func (sh *SimHandler) configure(sim *cascadelab.Simulator, policy string, maxActions int) error {
	sim.SetLogger(sh.log)
	if policy != "" {
		if err := sim.SetPolicy(policy); err != nil {
			return err
		}
	}
	if maxActions < 0 {
		return errs.NewWarn("max_actions must be non-negative")
	}
	if maxActions > 0 {
		sim.SetMaxActions(maxActions)
	}
	return nil
}

func validSim(games, workers int) error {
	if workers < 1 || workers > maxSimWorkers {
		return errs.Warnf("workers must be between 1 and %d", maxSimWorkers)
	}
	if games < 1 || games*workers > maxSimGames {
		return errs.Warnf("games * workers must be between 1 and %d", maxSimGames)
	}
	return nil
}

func decodeSimRequest(w http.ResponseWriter, r *http.Request) (*SimRequest, error) {
	req := new(SimRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.LevelName = q.Get("level")
		req.Policy = q.Get("policy")
		if s := q.Get("level_id"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, errs.NewWarn("level_id must be non-negative integer")
			}
			req.LevelID = spec.LID(u)
		}
		var err error
		if req.Games, err = queryInt(r, "games", 1); err != nil {
			return nil, err
		}
		if req.Workers, err = queryInt(r, "workers", 1); err != nil {
			return nil, err
		}
		if req.MaxActions, err = queryInt(r, "max_actions", 0); err != nil {
			return nil, err
		}
		if req.Seed, err = querySeed(r); err != nil {
			return nil, err
		}
		return req, nil
	case http.MethodPost:
		if err := decodeBody(w, r, req); err != nil {
			return nil, err
		}
		return req, nil
	default:
		return nil, errs.NewWarn("method not allowed")
	}
}
