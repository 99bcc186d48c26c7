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

// Package demo 內建四個示範關卡（embed YAML）與 mercy 補牌策略，CLI 與 dev server 共用。
package demo

import (
	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/demo/demo_levels"
	"github.com/zintix-labs/cascadelab/demo/demo_predictors"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/server/logger"
	"github.com/zintix-labs/cascadelab/server/svrcfg"
)

// NewLab 示範關卡 + 內建策略 + mercy，已 Freeze。
func NewLab() (*cascadelab.Lab, error) {
	return cascadelab.NewAuto(
		core.Default(),
		cascadelab.Configs(demo_levels.FS),
		cascadelab.Predictors(cascadelab.BuiltinPredictors(), demo_predictors.Predictors),
	)
}

// NewServerConfig 以示範關卡組出 server 設定；addr 為空時使用預設位址，dev 決定是否掛上 /dev。
func NewServerConfig(addr string, dev bool) (*svrcfg.SvrCfg, error) {
	lab, err := NewLab()
	if err != nil {
		return nil, errs.Wrap(err, "demo lab")
	}
	return &svrcfg.SvrCfg{
		Log:      logger.NewDefaultAsyncLogger(logger.ModeDev),
		PoolSize: 1,
		Lab:      lab,
		Addr:     addr,
		Dev:      dev,
	}, nil
}
