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

// Package corefmt 快照與回放資料的傳輸格式。
//
// 對外的狀態字串（state_b64u、playthrough_b64u）一律是 token：
//
//	token := base64url(zstd(json(v)))
//
// 亂數子流快照則以 uvarint 長度前綴的 frame 串接。
package corefmt

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/cascadelab/errs"
)

// EncodeToken v -> JSON -> zstd -> base64url。
func EncodeToken(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errs.Wrap(err, "encode token")
	}
	z, err := EncodeZstd(raw)
	if err != nil {
		return "", err
	}
	return EncodeBase64URL(z), nil
}

// DecodeToken EncodeToken 的反向，解壓後超過 maxBytes 即失敗。
// 來源是外部輸入，所有格式錯誤都是 Warn。
func DecodeToken(s string, maxBytes uint64, v any) error {
	if s == "" {
		return errs.NewWarn("empty token")
	}
	z, err := DecodeBase64URL(s)
	if err != nil {
		return err
	}
	raw, err := DecodeZstd(z, maxBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.Wrap(errs.NewWarn(err.Error()), "decode token json failed")
	}
	return nil
}

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.NewWarn(err.Error()), "decode base64url failed")
	}
	return b, nil
}

// AppendBlobFrame 把 uvarint(len(payload)) || payload 接在 dst 後面。
func AppendBlobFrame(dst []byte, payload []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// SplitBlobFrame 取出第一個 frame 的 payload 與剩餘位元組。
// payload 與 rest 都指向原始 frame 的底層陣列，不做複製。
func SplitBlobFrame(frame []byte) (payload []byte, rest []byte, err error) {
	n, size := binary.Uvarint(frame)
	if size <= 0 {
		return nil, nil, errs.NewWarn("decode blob frame failed: invalid varint length")
	}
	if uint64(len(frame)-size) < n {
		return nil, nil, errs.NewWarn("decode blob frame failed: truncated payload")
	}
	end := size + int(n)
	return frame[size:end], frame[end:], nil
}

// EncodeZstd 單執行緒壓縮；token 都很小，不值得開多個 encoder goroutine。
func EncodeZstd(b []byte) ([]byte, error) {
	var out bytes.Buffer
	zw, err := zstd.NewWriter(&out, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd writer failed")
	}
	if _, err := zw.Write(b); err != nil {
		_ = zw.Close()
		return nil, errs.Wrap(err, "zstd write failed")
	}
	if err := zw.Close(); err != nil {
		return nil, errs.Wrap(err, "close zstd writer failed")
	}
	return out.Bytes(), nil
}

// DecodeZstd 解壓 EncodeZstd 的輸出；maxBytes > 0 時限制解壓後大小。
func DecodeZstd(compressed []byte, maxBytes uint64) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if maxBytes > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(maxBytes))
	}
	zr, err := zstd.NewReader(bytes.NewReader(compressed), opts...)
	if err != nil {
		return nil, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()

	var r io.Reader = zr
	if maxBytes > 0 {
		r = io.LimitReader(zr, int64(maxBytes)+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.NewWarn(err.Error()), "zstd decode failed")
	}
	if maxBytes > 0 && uint64(len(out)) > maxBytes {
		return nil, errs.NewWarn("zstd decode failed: payload exceeds limit")
	}
	return out, nil
}
