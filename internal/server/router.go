package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"officedesk/internal/app"
	"officedesk/internal/metrics"
)

// StatusSource is implemented by the lifecycle controller.
type StatusSource interface {
	Status() app.Status
}

// Router provides the launcher's local diagnostics endpoints.
// Endpoints:
//
//	GET /healthz   liveness of the launcher itself
//	GET /status    lifecycle state, probe result, backend pid/exit
//	GET /metrics   Prometheus metrics
//
// It is meant to be bound to loopback only; it exposes launcher state, not
// the office application.
type Router struct {
	src StatusSource
}

func NewRouter(src StatusSource) *Router { return &Router{src: src} }

// Handler returns an http.Handler powered by gin that can be mounted in any mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/healthz", r.handleHealthz)
	g.GET("/status", r.handleStatus)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shutdown via the returned http.Server's Close/Shutdown.
func NewServer(addr string, src StatusSource) *http.Server {
	r := NewRouter(src)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.src.Status())
}
