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
	"log"
	"os"
	"path/filepath"

	"github.com/zintix-labs/cascadelab/demo"
	"github.com/zintix-labs/cascadelab/optimizer"
	"github.com/zintix-labs/cascadelab/server/logger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 依 opt_cfg.yaml 調整 demo 關卡難度，最後印出調好的關卡設定。
func main() {
	cfgPath := flag.String("cfg", "opt_cfg.yaml", "optimizer setting file")
	out := flag.String("out", "", "write tuned level yaml to file (default stdout)")
	flag.Parse()

	setting, err := optimizer.LoadSetting(os.DirFS(filepath.Dir(*cfgPath)), filepath.Base(*cfgPath))
	if err != nil {
		log.Fatal(err)
	}
	lab, err := demo.NewLab()
	if err != nil {
		log.Fatal(err)
	}
	tuner, err := optimizer.New(setting, logger.NewDefaultLogger(logger.ModeDev))
	if err != nil {
		log.Fatal(err)
	}
	res, err := tuner.Run(lab)
	if err != nil {
		log.Fatal(err)
	}

	p := message.NewPrinter(language.English)
	p.Printf("level %d  target %.2f%%  best difficulty %.4f  win rate %.2f%% [%.2f%%, %.2f%%]  converged %v\n",
		res.LevelID, res.Target*100, res.Best.Difficulty, res.Best.WinRate*100,
		res.Best.WinRateCI.Lo*100, res.Best.WinRateCI.Hi*100, res.Converged)

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}
	if err := res.WriteLevelYAML(w); err != nil {
		log.Fatal(err)
	}
}
