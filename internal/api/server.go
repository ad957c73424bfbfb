// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/poller"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

// Device is the coordinator surface the HTTP layer uses.
type Device interface {
	Snapshot() *poller.Snapshot
	Health() status.Snapshot
	DeviceInfo() device.Info
	Trusted() bool
	Definition(key string) (catalog.Definition, bool)
	Write(ctx context.Context, key string, value float64) error
	Refresh(ctx context.Context) (*poller.Snapshot, error)
}

var _ Device = (*poller.Coordinator)(nil)

type Server struct {
	Router *gin.Engine
	dev    Device
}

// NewServer builds the router. gatherer may be nil to omit /metrics.
func NewServer(dev Device, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logger(), gin.Recovery())

	s := &Server{Router: r, dev: dev}
	InstallHandler(r.Group("/api/v1"), dev)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

func logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		klog.V(4).InfoS("Received HTTP request",
			"verb", c.Request.Method,
			"URI", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// Serve listens on addr and returns a shutdown func.
func (s *Server) Serve(addr string) (func(ctx context.Context), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "HTTP server stopped")
		}
	}()
	klog.InfoS("HTTP server listening", "addr", ln.Addr().String())

	return func(ctx context.Context) {
		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(ctx); err != nil {
			klog.Error(err)
		}
	}, nil
}
