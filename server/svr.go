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

// Package server 預設的 HTTP 服務組裝：驗證設定、建立 chi server、註冊路由並交給 app 管理生命週期。
//
// 不綁定檔案路徑或環境變數，所有依賴都經由 svrcfg.SvrCfg 注入。
// 需要自訂組裝時，可直接持有 cascadelab.Lab 並呼叫 api.RegisterRoutes。
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/api"
	"github.com/zintix-labs/cascadelab/server/app"
	"github.com/zintix-labs/cascadelab/server/netsvr"
	"github.com/zintix-labs/cascadelab/server/svrcfg"
)

// Run 以內建的 ChiAdapter 啟動服務，阻塞到服務停止。
func Run(sCfg *svrcfg.SvrCfg) {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 與 Run 相同，但使用呼叫端注入的 NetSvr（自訂 listener、timeout、既有路由等）。
//
// svr 必須非 nil；若是 ChiAdapter 則要求 Ready()。
// 任一關卡的機台池整池關閉時 runtime 會關閉，服務隨之停止。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if svr == nil {
		sCfg.Log.Error(errs.NewFatal("svr is required").Error())
		return
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		sCfg.Log.Error(errs.NewFatal("default server is not ready").Error())
		return
	}

	rt, err := api.RegisterRoutes(svr, sCfg)
	if err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return
	}

	a := app.NewWith(svr, runtimeComponent(rt))
	a.SetLogger(sCfg.Log)
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		sCfg.Log.Info("[cascadelab] listening on http://localhost" + s.Address())
	} else {
		sCfg.Log.Info("[cascadelab] listening")
	}
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
	}
}

// runtimeComponent runtime 自行關閉（例如機台池壞光）時結束 Run，讓 app 停掉整個服務。
func runtimeComponent(rt *cascadelab.Runtime) app.Component {
	stop := make(chan struct{})
	return app.Func{
		RunFn: func() error {
			select {
			case <-rt.Done():
				return errs.NewFatal("runtime closed: " + rt.ClosedReason())
			case <-stop:
				return nil
			}
		},
		ShutdownFn: func(context.Context) error {
			select {
			case <-stop:
			default:
				close(stop)
			}
			rt.Close()
			return nil
		},
	}
}
