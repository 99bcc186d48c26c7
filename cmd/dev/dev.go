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
	"net"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/zintix-labs/cascadelab/demo"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server"
	"github.com/zintix-labs/cascadelab/server/netsvr"
)

// 啟動 demo server（含 Dev Panel）並開啟瀏覽器
func main() {
	addr := flag.String("addr", netsvr.DefaultAddr, "listen address")
	noBrowser := flag.Bool("no-browser", false, "do not open the browser")
	flag.Parse()

	scfg, err := demo.NewServerConfig(*addr, true)
	if err != nil {
		log.Fatal("set server configs error: " + err.Error())
	}
	if !*noBrowser {
		go openWhenReady(*addr)
	}
	server.Run(scfg)
}

func openWhenReady(addr string) {
	url := "http://" + dialAddr(addr) + "/dev"
	if err := waitForTCP(addr, 5*time.Second); err != nil {
		log.Println("dev server not ready: " + err.Error())
		return
	}
	if err := openBrowser(url); err != nil {
		log.Println("open browser failed, visit " + url + " manually: " + err.Error())
	}
}

// dialAddr ":5808" 這類只有 port 的位址補上 localhost
func dialAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func waitForTCP(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", dialAddr(addr), 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return errs.Warnf("timeout waiting for %s", addr)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
