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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/cascadelab/demo"
	"github.com/zintix-labs/cascadelab/server"
	"github.com/zintix-labs/cascadelab/server/logger"
	"github.com/zintix-labs/cascadelab/server/netsvr"
	"github.com/zintix-labs/cascadelab/server/svrcfg"
)

// lab server：載入 demo 關卡並提供 v1 API；-dev 額外掛上 /dev 工具頁。
// 正式部署請在自己的專案組裝 Lab 與 SvrCfg，並使用 prod log mode。
func main() {
	cfg, ah, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer ah.Close()
	server.Run(cfg)
}

type config struct {
	LogMode  string
	LogBuf   int
	Addr     string
	PoolSize int
	Dev      bool
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, *logger.AsyncHandler, error) {
	cfg := new(config)
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.IntVar(&cfg.LogBuf, "buf", 4096, "async log buffer size")
	flag.StringVar(&cfg.Addr, "addr", netsvr.DefaultAddr, "listen address")
	flag.IntVar(&cfg.PoolSize, "pool", 3, "number of machine instances per level")
	flag.BoolVar(&cfg.Dev, "dev", false, "enable /dev panel")

	flag.Parse()

	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	log, ah := logger.NewAsync(cfg.LogBuf, mode)

	lab, err := demo.NewLab()
	if err != nil {
		ah.Close()
		return nil, nil, err
	}
	sCfg := &svrcfg.SvrCfg{
		Log:      log,
		PoolSize: cfg.PoolSize,
		Lab:      lab,
		Addr:     cfg.Addr,
		Dev:      cfg.Dev,
	}
	return sCfg, ah, nil
}
