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

// ops 開發用任務：go run ./scripts <task>
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

type task struct {
	desc string
	run  func(args []string) error
}

var tasks = map[string]task{
	"test":        {"clean test cache, run all tests, print ok/FAIL lines only", func([]string) error { return runTest(false) }},
	"test-all":    {"run all tests with coverage", func([]string) error { return runTestAll() }},
	"test-detail": {"run all tests verbosely", func([]string) error { return runTest(true) }},
	"sim":         {"simulate a demo level: sim [level] [games]", runSim},
	"pgo":         {"cpu-profile a demo simulation and install it as default.pgo", runPGO},
	"svr":         {"start the demo server with the dev panel", func([]string) error { return goRun("./cmd/svr", "-dev") }},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	name := os.Args[1]
	t, ok := tasks[name]
	if !ok {
		PrintYellow(fmt.Sprintf("Unknown task: %s", name))
		usage()
		os.Exit(1)
	}
	if err := t.run(os.Args[2:]); err != nil {
		PrintRed(err.Error())
		os.Exit(1)
	}
}

func usage() {
	names := make([]string, 0, len(tasks))
	for n := range tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Usage: go run ./scripts [task]\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %-12s %s\n", n, tasks[n].desc)
	}
	PrintDefault(b.String())
}
