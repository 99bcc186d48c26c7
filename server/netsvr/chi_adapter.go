package netsvr

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/server/httperr"
)

const DefaultAddr string = ":5808"

// Timeouts http.Server 的逾時設定；模擬類請求耗時較長，WriteTimeout 預設放寬。
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

var DefaultTimeouts = Timeouts{
	Read:  10 * time.Second,
	Write: 120 * time.Second,
	Idle:  120 * time.Second,
}

// -----------------------------------------------------------------------------
//  Chi 服務
// -----------------------------------------------------------------------------

// ChiAdapter 以 chi 實作 NetSvr，handler 與 middleware 都是標準 net/http。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
	addr   string
}

// NewChiServer 自訂監聽位址；addr 為空時使用 DefaultAddr。
func NewChiServer(addr string) *ChiAdapter {
	return NewChiServerWith(addr, DefaultTimeouts)
}

// NewChiServerDefault 監聽 DefaultAddr。
func NewChiServerDefault() *ChiAdapter {
	return NewChiServerWith(DefaultAddr, DefaultTimeouts)
}

func NewChiServerWith(addr string, to Timeouts) *ChiAdapter {
	if addr == "" {
		addr = DefaultAddr
	}
	cr := chi.NewRouter()
	// 找不到路由或方法不符也回 JSON 錯誤，前端只需處理一種錯誤格式
	cr.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, http.StatusNotFound, errs.NewWarn("route not found: "+r.URL.Path))
	})
	cr.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, http.StatusMethodNotAllowed, errs.NewWarn("method not allowed: "+r.Method))
	})
	return &ChiAdapter{
		router: cr,
		server: &http.Server{
			Addr:         addr,
			Handler:      cr,
			ReadTimeout:  to.Read,
			WriteTimeout: to.Write,
			IdleTimeout:  to.Idle,
		},
		addr: addr,
	}
}

// -----------------------------------------------------------------------------
//  NetSvr / app.Component
// -----------------------------------------------------------------------------

func (c *ChiAdapter) Ready() bool {
	return (c != nil) && (c.router != nil) && (c.server != nil) &&
		(c.addr != "") && strings.Contains(c.addr, ":") &&
		(c.server.Handler != nil) && (c.server.Handler == c.router)
}

func (c *ChiAdapter) Run() error {
	err := c.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) {
	c.router.Use(mw)
}

func (c *ChiAdapter) Get(path string, h http.HandlerFunc) {
	c.router.Get(path, h)
}

func (c *ChiAdapter) Post(path string, h http.HandlerFunc) {
	c.router.Post(path, h)
}

func (c *ChiAdapter) GetPost(path string, h http.HandlerFunc) {
	c.router.Get(path, h)
	c.router.Post(path, h)
}

// Group 子路由只拿到 NetRouter
func (c *ChiAdapter) Group(path string, fn func(subRouter NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

func (c *ChiAdapter) Address() string {
	return c.addr
}
