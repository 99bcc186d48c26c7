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

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/cascadelab/errs"
)

// LogMode 預設 handler 的組態
type LogMode uint8

const (
	ModeDev     LogMode = iota // text -> stderr, debug，時間只留時分秒
	ModeProd                   // json -> stdout, info
	ModeSilence                // 全部丟棄
)

var modeNames = [...]string{"dev", "prod", "silence"}

func (m LogMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode 解析 dev / prod / silence（不分大小寫）。
func ParseMode(s string) (LogMode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return LogMode(i), nil
		}
	}
	return ModeDev, errs.Warnf("unknown log mode %q (dev|prod|silence)", s)
}

// NewDefaultLogger 依 LogMode 建立同步 logger（CLI、引擎事件追蹤）。
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode))
}

// NewDefaultAsyncLogger 依 LogMode 建立非同步 logger（buffer 8192）。
func NewDefaultAsyncLogger(mode LogMode) *slog.Logger {
	return slog.New(NewAsyncHandler(buildHandler(mode), 8192))
}

// NewAsync 與 NewDefaultAsyncLogger 相同，但可指定 buffer 並取回 AsyncHandler 以便關閉。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode), buf)
	return slog.New(ah), ah
}

func buildHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: shortTime,
		})
	}
}

// shortTime 開發模式逐 tick 追蹤時日期沒有意義
func shortTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().Format("15:04:05.000"))
	}
	return a
}

// AsyncHandler 把任意 slog.Handler 變成非阻塞：Handle 只把 record 放進 channel，
// 背景 goroutine 逐筆交給 next 寫出；channel 滿時直接丟棄並計數。
// 開啟事件追蹤時每步可能上百筆，寧可丟 log 也不拖慢請求。
//
// Close 時若曾丟棄，最後補一筆 "logger.dropped"。
type AsyncHandler struct {
	next slog.Handler
	d    *dispatcher
}

type dispatcher struct {
	base    slog.Handler // 補寫 dropped 用，不帶 WithAttrs/WithGroup
	ch      chan pending
	closed  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type pending struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler next 為 nil 時使用 ModeDev；buf <= 0 時使用 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	d := &dispatcher{
		base:   next,
		ch:     make(chan pending, buf),
		closed: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return &AsyncHandler{next: next, d: d}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.d != nil
}

// Dropped buffer 滿或關閉後被丟棄的筆數。
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.d.dropped.Load()
}

// Close 停止收新 log，把 buffer 內剩下的寫完；可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.d.once.Do(func() {
		close(h.d.closed)
		h.d.wg.Wait()
		if n := h.d.dropped.Load(); n > 0 {
			r := slog.NewRecord(time.Now(), slog.LevelWarn, "logger.dropped", 0)
			r.AddAttrs(slog.Uint64("count", n))
			_ = h.d.base.Handle(context.Background(), r)
		}
	})
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case p := <-d.ch:
			_ = p.h.Handle(p.ctx, p.rec)
		case <-d.closed:
			for {
				select {
				case p := <-d.ch:
					_ = p.h.Handle(p.ctx, p.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.d.closed:
		h.d.dropped.Add(1)
		return nil
	default:
	}
	// 請求結束後 ctx 可能被取消，寫出端只需要 ctx 裡的值
	p := pending{ctx: context.WithoutCancel(ctx), rec: r.Clone(), h: h.next}
	select {
	case h.d.ch <- p:
	default:
		h.d.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}
