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

package api

import (
	"log/slog"
	"net/http"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/server/api/dev"
	v1 "github.com/zintix-labs/cascadelab/server/api/v1"
	"github.com/zintix-labs/cascadelab/server/netsvr"
	"github.com/zintix-labs/cascadelab/server/netsvr/middleware"
	"github.com/zintix-labs/cascadelab/server/svrcfg"
)

// RegisterRoutes 註冊所有路由，回傳對局用的 Runtime（生命週期交給呼叫端）。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) (*cascadelab.Runtime, error) {
	rt, err := sCfg.Lab.BuildRuntime(sCfg.PoolSize)
	if err != nil {
		return nil, err
	}
	rt.SetLogger(sCfg.Log)
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerHealth(svr, rt)           // 2. 健康檢查
	if err := registerV1API(svr, sCfg, rt); err != nil {
		rt.Close()
		return nil, err
	}
	if sCfg.Dev {
		if err := dev.Register(svr, sCfg); err != nil { // 3. 開發者工具頁
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

func registerHealth(svr netsvr.NetSvr, rt *cascadelab.Runtime) {
	svr.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if rt.Closed() {
			http.Error(w, "closed: "+rt.ClosedReason(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg, rt *cascadelab.Runtime) error {
	p, err := v1.NewPlayHandler(rt, sCfg.Log)
	if err != nil {
		return err
	}
	s, err := v1.NewSimHandler(sCfg.Lab, sCfg.Log)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/levels", p.Levels)
		vOne.Get("/metrics", p.Metrics)
		vOne.GetPost("/play/start", p.Start)
		vOne.GetPost("/play/move", p.Move)

		vOne.GetPost("/sim", s.Sim)
		vOne.GetPost("/playone", s.PlayOne)
		vOne.Post("/simbycfg", s.SimByCfg)
		vOne.Post("/replay", s.Replay)
		vOne.Post("/stat", v1.Stat)
	})
	return nil
}
