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

package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zintix-labs/cascadelab/errs"
)

const defaultGrace = 5 * time.Second

// App 啟動所有 Component，收到 SIGINT/SIGTERM、ctx 取消或任一 Component 結束時，
// 依註冊順序逐一 Shutdown。
type App struct {
	comps []Component
	log   *slog.Logger
	grace time.Duration
}

func New() *App { return &App{grace: defaultGrace} }

// NewWith 建立並註冊多個 Component。
func NewWith(comps ...Component) *App {
	app := New()
	for _, c := range comps {
		app.Register(c)
	}
	return app
}

func (a *App) Register(c Component) {
	if c != nil {
		a.comps = append(a.comps, c)
	}
}

// SetLogger 關閉過程的錯誤寫到 log；未設定時不記錄。
func (a *App) SetLogger(log *slog.Logger) { a.log = log }

// SetGrace 優雅關閉的總時限。
func (a *App) SetGrace(d time.Duration) {
	if d > 0 {
		a.grace = d
	}
}

// Run 等同 RunContext(context.Background())。
func (a *App) Run() error {
	return a.RunContext(context.Background())
}

// RunContext 阻塞到收到終止信號、ctx 取消或任一 Component 的 Run 返回。
// 信號與 ctx 取消回傳 nil；Component 返回則回傳它的 error（正常結束為 nil）。
func (a *App) RunContext(ctx context.Context) error {
	if len(a.comps) == 0 {
		return errs.NewFatal("app: no component registered")
	}
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var err error
	select {
	case <-quit:
	case <-ctx.Done():
	case err = <-errCh:
	}
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil && a.log != nil {
			a.log.Error("shutdown failed", slog.Any("err", err))
		}
	}
}
