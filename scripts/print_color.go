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
	"fmt"
	"os"
)

// ansi 前景色；設定 NO_COLOR 或輸出不是終端機時不上色。
type ansi string

const (
	red    ansi = "\033[31m"
	green  ansi = "\033[32m"
	yellow ansi = "\033[33m"
	plain  ansi = ""
	reset       = "\033[0m"
)

var colorful = useColor()

func useColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func say(c ansi, msg string) {
	if !colorful || c == plain {
		fmt.Println(msg)
		return
	}
	fmt.Printf("%s%s%s\n", c, msg, reset)
}

func PrintDefault(msg string) { say(plain, msg) }
func PrintRed(msg string)     { say(red, msg) }
func PrintGreen(msg string)   { say(green, msg) }
func PrintYellow(msg string)  { say(yellow, msg) }
