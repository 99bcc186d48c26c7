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
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func goCmd(args ...string) *exec.Cmd {
	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func goRun(pkg string, args ...string) error {
	return goCmd(append([]string{"run", pkg}, args...)...).Run()
}

func cleanTestCache() {
	if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
		PrintRed(err.Error())
	}
}

// runTest 等同 go test ./... -cover -count=1 | grep -E '^(ok|FAIL)'；verbose 時不過濾。
func runTest(verbose bool) error {
	PrintGreen("running tests")
	cleanTestCache()

	args := []string{"test", "./...", "-count=1"}
	if verbose {
		args = append(args, "-v")
		return goCmd(args...).Run()
	}
	args = append(args, "-cover")
	cmd := exec.Command("go", args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting go test: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	sc := bufio.NewScanner(pr)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"):
			PrintRed(line)
		// 編譯錯誤不會以 ok/FAIL 開頭，照樣印出來
		case strings.Contains(line, "build failed") || strings.Contains(line, "setup failed"):
			PrintRed(line)
		}
	}
	if err := <-done; err != nil {
		return fmt.Errorf("tests finished with errors")
	}
	return nil
}

func runTestAll() error {
	cleanTestCache()
	return goCmd("test", "./...", "-cover").Run()
}

// runSim sim [level] [games]，預設 level 1、每 worker 20000 局、4 workers
func runSim(args []string) error {
	level, games := "1", "20000"
	if len(args) > 0 {
		level = args[0]
	}
	if len(args) > 1 {
		games = args[1]
	}
	return goRun("./cmd/run", "-level", level, "-games", games, "-worker", "4")
}

// runPGO 以 cpu profile 產生 default.pgo（放在 cmd/run 與 cmd/svr 下，go build 會自動套用）。
func runPGO(args []string) error {
	level := "3"
	if len(args) > 0 {
		level = args[0]
	}
	if err := goRun("./cmd/run", "-level", level, "-games", "5000", "-worker", "4", "-p", "cpu"); err != nil {
		return err
	}
	raw, err := os.ReadFile(filepath.Join("build", "profiling", "cpu.pprof"))
	if err != nil {
		return err
	}
	for _, dir := range []string{"cmd/run", "cmd/svr"} {
		if err := os.WriteFile(filepath.Join(dir, "default.pgo"), raw, 0o644); err != nil {
			return err
		}
		PrintGreen("wrote " + filepath.Join(dir, "default.pgo"))
	}
	return nil
}
