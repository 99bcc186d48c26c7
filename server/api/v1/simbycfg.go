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
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/httperr"
)

// SimByCfgRequest 傳入一份未註冊的關卡設定直接模擬；cfg（JSON）與 cfg_yaml 二擇一。
type SimByCfgRequest struct {
	Cfg        json.RawMessage `json:"cfg,omitempty"`
	CfgYAML    string          `json:"cfg_yaml,omitempty"`
	Games      int             `json:"games"`
	Workers    int             `json:"workers"`
	Policy     string          `json:"policy"`
	MaxActions int             `json:"max_actions"`
	Seed       *int64          `json:"seed,omitempty"`
}

// SimByCfg POST /v1/simbycfg
func (sh *SimHandler) SimByCfg(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperr.Errs(w, errs.NewWarn("method not allowed"))
		return
	}
	req := new(SimByCfgRequest)
	if err := decodeBody(w, r, req); err != nil {
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

	var sim *cascadelab.Simulator
	switch {
	case len(req.Cfg) > 0 && req.CfgYAML != "":
		err = errs.NewWarn("cfg and cfg_yaml are mutually exclusive")
	case len(req.Cfg) > 0:
		sim, err = sh.lab.NewSimulatorByJSON(req.Cfg, seed)
	case req.CfgYAML != "":
		sim, err = sh.lab.NewSimulatorByYAML([]byte(req.CfgYAML), seed)
	default:
		err = errs.NewWarn("cfg or cfg_yaml is required")
	}
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if err := sh.configure(sim, req.Policy, req.MaxActions); err != nil {
		httperr.Errs(w, err)
		return
	}
	st, used, err := sim.SimMP(req.Games, req.Workers, false)
	if err != nil {
		httperr.Log(sh.log, "simulate by cfg failed", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, SimResponse{Stats: st, Seed: seed, UsedTime: used.Milliseconds()})
}
