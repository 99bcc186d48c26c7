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
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/zintix-labs/cascadelab"
	"github.com/zintix-labs/cascadelab/demo"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/perf"
	"github.com/zintix-labs/cascadelab/server/logger"
	"github.com/zintix-labs/cascadelab/spec"
	"github.com/zintix-labs/cascadelab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name       string
	id         spec.LID
	worker     int
	games      int
	seed       int64
	policy     string
	maxActions int
	out        string
	one        bool
	trace      bool
	pprofmode  string
}

type lidFlag struct{ p *spec.LID }

func (f lidFlag) String() string {
	if f.p == nil {
		return "0"
	}
	return fmt.Sprint(uint32(*f.p))
}

func (f lidFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*f.p = spec.LID(u)
	return nil
}

func bindVar() {
	flag.Var(lidFlag{&cfg.id}, "level", "target level id")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.games, "games", 10000, "games per worker")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.policy, "policy", cascadelab.PolicyGreedy, "policy: "+strings.Join(cascadelab.PolicyNames(), "|"))
	flag.IntVar(&cfg.maxActions, "max-actions", 0, "actions cap per game (0: default)")
	flag.StringVar(&cfg.out, "out", "", "report format: '' (summary), table, json, yaml")
	flag.BoolVar(&cfg.one, "one", false, "play a single game and print the playthrough")
	flag.BoolVar(&cfg.trace, "trace", false, "with -one: log every engine event to stderr")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: "+strings.Join(perfModes(), ", "))

	flag.Parse()

	// 未給或不合法的 seed 改用隨機
	if cfg.seed < 0 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

// execute 組裝 demo lab 並依 flag 分支執行模擬
func execute() error {
	if err := cfg.valid(); err != nil {
		return err
	}
	lab, err := demo.NewLab()
	if err != nil {
		return err
	}
	s, err := lab.NewSimulatorWithSeed(cfg.id, cfg.seed)
	if err != nil {
		return err
	}
	if err := s.SetPolicy(cfg.policy); err != nil {
		return err
	}
	if cfg.maxActions > 0 {
		s.SetMaxActions(cfg.maxActions)
	}
	ent, _ := lab.EntryByID(cfg.id)
	cfg.name = ent.Name

	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.one {
		if cfg.trace {
			s.SetTrace(logger.NewDefaultLogger(logger.ModeDev))
		}
		pt, err := s.PlayOne()
		if err != nil {
			return err
		}
		b64, err := pt.EncodeB64U()
		if err != nil {
			return err
		}
		p.Printf("%s[LEVEL:%s] [SEED:%d] [POLICY:%s]%s\n", green, cfg.name, cfg.seed, cfg.policy, reset)
		p.Printf("score %d  moves %d  won %v  actions %d\n", pt.Score, pt.Moves, pt.Won, len(pt.Actions))
		fmt.Println(b64)
		return nil
	}

	p.Printf("%s[WORKERS:%d] [LEVEL:%s] [POLICY:%s] [GAMES:%d] [SEED:%d]%s\n",
		green, cfg.worker, cfg.name, cfg.policy, cfg.worker*cfg.games, cfg.seed, reset)
	st, used, err := s.SimMP(cfg.games, cfg.worker, true)
	if err != nil {
		return err
	}
	if cfg.out == "" {
		st.StdOut(used)
		return nil
	}
	rep, _ := stats.NewStatReportRender(cfg.out)
	return st.WriteWith(os.Stdout, rep)
}

func (cfg *config) valid() error {
	if cfg.worker < 1 {
		return errs.NewWarn("value err : workers must > 0")
	}
	if cfg.games < 1 {
		return errs.NewWarn("value err : games must > 0")
	}
	if cfg.id == 0 {
		return errs.NewWarn("value err : -level is required")
	}
	if _, ok := stats.NewStatReportRender(cfg.out); !ok && cfg.out != "" {
		return errs.Warnf("value err : unknown out format %q", cfg.out)
	}
	if _, err := cascadelab.NewPolicy(cfg.policy); err != nil {
		return err
	}
	return nil
}

func perfModes() []string {
	out := make([]string, 0, 6)
	out = append(out, "''")
	for _, m := range perf.Modes {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
