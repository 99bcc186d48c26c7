package netsvr

import (
	"net/http"

	"github.com/zintix-labs/cascadelab/server/app"
)

// NetSvr 路由 + 服務啟停；只交給最外層組裝使用，其餘模組只拿 NetRouter。
//   - 實作 app.Component，可直接交給 app.App 管理生命週期。
//   - 實作 http.Handler，測試可直接丟給 httptest。
//   - 目前只有 chi 實作；換框架時提供相容 net/http handler 的 adapter 即可。
type NetSvr interface {
	NetRouter
	app.Component
	http.Handler
}

// NetRouter 純路由行為，沒有 Run/Shutdown，handler 與子模組拿不到啟停控制權。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)

	// GetPost 同一個 handler 同時掛 GET 與 POST
	GetPost(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
