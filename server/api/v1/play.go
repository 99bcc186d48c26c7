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
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/dto"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/httperr"
)

const playTimeout = 5 * time.Second

// PlayHandler 無狀態對局：start 回傳完整狀態字串，move 帶回狀態字串與一個操作。
type PlayHandler struct {
	rt  *cascadelab.Runtime
	log *slog.Logger
}

func NewPlayHandler(rt *cascadelab.Runtime, log *slog.Logger) (*PlayHandler, error) {
	if rt == nil {
		return nil, errs.NewFatal("runtime is required")
	}
	return &PlayHandler{rt: rt, log: log}, nil
}

// Levels GET /v1/levels
func (h *PlayHandler) Levels(w http.ResponseWriter, r *http.Request) {
	sum, err := h.rt.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, sum)
}

// Metrics GET /v1/metrics：每個關卡機台池的觀測快照
func (h *PlayHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.rt.Metrics())
}

// Start GET|POST /v1/play/start
func (h *PlayHandler) Start(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeStartRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), playTimeout)
	defer cancel()

	gs, err := h.rt.Start(ctx, req)
	if err != nil {
		httperr.Log(h.log, "play start failed", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, gs)
}

// Move GET|POST /v1/play/move
func (h *PlayHandler) Move(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeMoveRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), playTimeout)
	defer cancel()

	res, err := h.rt.Play(ctx, req)
	if err != nil {
		httperr.Log(h.log, "play move failed", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, res)
}
