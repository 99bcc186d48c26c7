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

// Package v1 對外 HTTP API 第一版：關卡列表、無狀態對局、模擬、回放與統計。
package v1

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"strconv"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/httperr"
)

// maxBody POST body 上限（5MiB，simbycfg 會帶整份關卡設定）
const maxBody = 5 << 20

// writeJSON 先完整編碼再寫出，避免寫到一半才失敗。
func writeJSON(w http.ResponseWriter, v any) {
	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(v); err != nil {
		httperr.Errs(w, errs.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(b.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Bytes())
}

// decodeBody 嚴格解析 JSON body（未知欄位拒絕）。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.NewWarn("invalid json: " + err.Error())
	}
	return nil
}

// queryInt 讀取整數 query；缺省時回傳 def。
func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.NewWarn(key + " must be integer")
	}
	return v, nil
}

// querySeed 讀取 seed；缺省時回傳 nil。
func querySeed(r *http.Request) (*int64, error) {
	s := r.URL.Query().Get("seed")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errs.NewWarn("seed must be int64")
	}
	return &v, nil
}

// seedOr 有給 seed 就用，否則以 crypto/rand 產生。
func seedOr(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.NewWarn("seed generate failed")
	}
	return rnd.Int64(), nil
}
