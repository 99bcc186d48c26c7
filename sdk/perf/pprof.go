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

// Package perf 包裝 runtime/pprof，讓 cmd/run 可以用一個 flag 切換 profiling。
//
// Usage like:
//
//	go run ./cmd/run -level 1 -games 20000 -p cpu
//	go tool pprof build/profiling/cpu.pprof
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/cascadelab/errs"
)

// DefaultDir pprof 檔案寫入路徑
const DefaultDir = "build/profiling"

// Modes 支援的 profiling 模式；空字串表示不開。
var Modes = []string{"", "cpu", "heap", "allocs", "block", "mutex"}

// RunPProf 依 mode 執行 exe 並寫出對應的 profile 到 DefaultDir。
func RunPProf(exe func() error, mode string) error {
	return Run(exe, mode, DefaultDir)
}

// Run 與 RunPProf 相同但可指定輸出目錄。exe 的錯誤優先回傳。
func Run(exe func() error, mode, dir string) error {
	switch mode {
	case "":
		return exe()
	case "cpu":
		return withCPU(exe, dir)
	case "heap", "allocs":
		return after(exe, mode, dir, true)
	case "block":
		runtime.SetBlockProfileRate(1)
		defer runtime.SetBlockProfileRate(0)
		return after(exe, mode, dir, false)
	case "mutex":
		prev := runtime.SetMutexProfileFraction(1)
		defer runtime.SetMutexProfileFraction(prev)
		return after(exe, mode, dir, false)
	default:
		return errs.Warnf("unknown pprof mode %q", mode)
	}
}

func create(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create pprof dir")
	}
	f, err := os.Create(filepath.Join(dir, name+".pprof"))
	if err != nil {
		return nil, errs.Wrap(err, "create "+name+".pprof")
	}
	return f, nil
}

// withCPU 也可拿來產生 PGO 用的 default.pgo
func withCPU(exe func() error, dir string) error {
	f, err := create(dir, "cpu")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile")
	}
	err = exe()
	pprof.StopCPUProfile()
	return err
}

// after exe 結束後寫出一次快照；gc 為 true 時先 GC 讓 in-use 視圖貼近現況。
func after(exe func() error, name, dir string, gc bool) error {
	if err := exe(); err != nil {
		return err
	}
	if gc {
		runtime.GC()
	}
	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.NewFatal("pprof profile not found: " + name)
	}
	f, err := create(dir, name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "write "+name+" profile")
	}
	return nil
}
