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

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
	"github.com/zintix-labs/cascadelab/spec"
)

// maxBody POST body 上限（1MiB）
const maxBody = 1 << 20

// StartRequest 開一局新遊戲。Seed 缺省時由伺服器自行產生。
type StartRequest struct {
	UID       string   `json:"uid"`
	LevelID   spec.LID `json:"level_id"`
	LevelName string   `json:"level"`
	Seed      *int64   `json:"seed,omitempty"`
}

// MoveRequest 對一局既有遊戲送出一次操作。
//
// 引擎不保存任何對局：StateB64U 為上一次回應 GameState.StateB64U 的原值，
// 業務端負責保存與回送。同一個 state 帶同一個 action 必定得到相同結果。
type MoveRequest struct {
	UID       string   `json:"uid"`
	LevelID   spec.LID `json:"level_id"`
	LevelName string   `json:"level"`
	Action    Action   `json:"action"`
	StateB64U string   `json:"state_b64u"`
}

// DecodeStartRequest 解碼開局請求。
//
// GET：uid / level_id / level / seed 由 query string 讀取。
// POST：JSON body，未知欄位直接拒絕。
// 這裡只做解碼，關卡是否存在由 Machine 決定。
func DecodeStartRequest(r *http.Request) (*StartRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(StartRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.UID = q.Get("uid")
		req.LevelName = q.Get("level")
		if s := q.Get("level_id"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid level_id: %v", err))
			}
			req.LevelID = spec.LID(u)
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
			}
			req.Seed = &v
		}
		return req, nil
	case http.MethodPost:
		if err := decodeJSON(r.Body, req); err != nil {
			return nil, err
		}
		return req, nil
	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

// DecodeMoveRequest 解碼操作請求。
//
// GET：type / a / b / state，座標格式為 "col,row"；activate 可省略 b。
// POST：JSON body，未知欄位直接拒絕。
func DecodeMoveRequest(r *http.Request) (*MoveRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(MoveRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.UID = q.Get("uid")
		req.LevelName = q.Get("level")
		req.StateB64U = q.Get("state")
		if s := q.Get("level_id"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid level_id: %v", err))
			}
			req.LevelID = spec.LID(u)
		}
		req.Action.Type = ActionType(q.Get("type"))
		if req.Action.Type == "" {
			req.Action.Type = ActionSwap
		}
		var err error
		if req.Action.A, err = ParsePosition(q.Get("a")); err != nil {
			return nil, err
		}
		if s := q.Get("b"); s != "" {
			if req.Action.B, err = ParsePosition(s); err != nil {
				return nil, err
			}
		} else if req.Action.Type == ActionSwap {
			return nil, errs.NewWarn("swap requires b")
		}
		return req, nil
	case http.MethodPost:
		if err := decodeJSON(r.Body, req); err != nil {
			return nil, err
		}
		return req, nil
	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

// ParsePosition 解析 "col,row"。
func ParsePosition(s string) (board.Position, error) {
	cs, rs, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return board.Position{}, errs.NewWarn("invalid position: " + s)
	}
	c, err := strconv.Atoi(strings.TrimSpace(cs))
	if err != nil {
		return board.Position{}, errs.NewWarn("invalid position col: " + s)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rs))
	if err != nil {
		return board.Position{}, errs.NewWarn("invalid position row: " + s)
	}
	return board.Position{Col: c, Row: r}, nil
}

func decodeJSON(r io.Reader, v any) error {
	if r == nil {
		return errs.NewWarn("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(r, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.NewWarn("invalid json: " + err.Error())
	}
	return nil
}
