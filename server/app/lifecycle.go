// Package app 長期運行元件（HTTP server、runtime 監看等）的最小生命週期管理。
package app

import "context"

// Component 可啟動、可關閉的長生命週期元件。
//   - Run 阻塞到元件停止；正常停止回傳 nil。
//   - Shutdown 要求優雅關閉，需尊重 ctx 的 deadline。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Func 以兩個函數組成 Component。
type Func struct {
	RunFn      func() error
	ShutdownFn func(ctx context.Context) error
}

func (f Func) Run() error {
	if f.RunFn == nil {
		return nil
	}
	return f.RunFn()
}

func (f Func) Shutdown(ctx context.Context) error {
	if f.ShutdownFn == nil {
		return nil
	}
	return f.ShutdownFn(ctx)
}
