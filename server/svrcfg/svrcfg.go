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

package svrcfg

import (
	"log/slog"
	"net"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/logger"
)

const (
	minPoolSize = 1
	maxPoolSize = 64
)

// SvrCfg server 組裝所需的全部依賴，全部由呼叫端注入。
type SvrCfg struct {
	Log      *slog.Logger
	PoolSize int             // 每個關卡的機台數
	Lab      *cascadelab.Lab // 必填
	Addr     string          // 空字串使用 netsvr.DefaultAddr
	Dev      bool            // 掛上 /dev 工具頁
}

// Valid 補上預設值並檢查必要欄位：Log 未給時建一個 dev 模式的非同步 logger，
// PoolSize 夾在 [1, 64]，Addr 需帶 port（":5808"、"127.0.0.1:5808"）。
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	sc.PoolSize = min(max(minPoolSize, sc.PoolSize), maxPoolSize)
	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	if sc.Addr != "" {
		if _, port, err := net.SplitHostPort(sc.Addr); err != nil || port == "" {
			return errs.NewFatal("invalid listen address: " + sc.Addr)
		}
	}
	return nil
}
