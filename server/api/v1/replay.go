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
	"net/http"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/httperr"
)

// ReplayRequest playthrough_b64u 與 playthrough 二擇一。
type ReplayRequest struct {
	B64U        string                  `json:"playthrough_b64u,omitempty"`
	Playthrough *cascadelab.Playthrough `json:"playthrough,omitempty"`
}

// Replay POST /v1/replay：重播一局並比對終局盤面與事件雜湊
func (sh *SimHandler) Replay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperr.Errs(w, errs.NewWarn("method not allowed"))
		return
	}
	req := new(ReplayRequest)
	if err := decodeBody(w, r, req); err != nil {
		httperr.Errs(w, err)
		return
	}
	p := req.Playthrough
	switch {
	case req.B64U != "" && p != nil:
		httperr.Errs(w, errs.NewWarn("playthrough and playthrough_b64u are mutually exclusive"))
		return
	case req.B64U != "":
		var err error
		if p, err = cascadelab.DecodePlaythroughB64U(req.B64U); err != nil {
			httperr.Errs(w, err)
			return
		}
	case p == nil:
		httperr.Errs(w, errs.NewWarn("playthrough is required"))
		return
	}
	rep, err := sh.lab.Replay(p)
	if err != nil {
		httperr.Log(sh.log, "replay failed", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, rep)
}
