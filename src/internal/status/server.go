// FILE: actionwisp/src/internal/status/server.go
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"actionwisp/src/internal/config"
	"actionwisp/src/internal/streamer"
	"actionwisp/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
)

// StatsSource supplies the streamer statistics served by the endpoint
type StatsSource interface {
	GetStats() streamer.Stats
}

// Server exposes streamer statistics over HTTP
type Server struct {
	config    *config.StatusConfig
	source    StatsSource
	server    *fasthttp.Server
	listener  net.Listener
	logger    *log.Logger
	startTime time.Time
	wg        sync.WaitGroup
	stop      chan struct{}
	stopOnce  sync.Once
	stopping  atomic.Bool
}

// NewServer creates a status server; it does not listen until Start
func NewServer(cfg *config.StatusConfig, source StatsSource, logger *log.Logger) *Server {
	s := &Server{
		config: cfg,
		source: source,
		logger: logger,
	}

	s.server = &fasthttp.Server{
		Name:             version.UserAgent(),
		Handler:          s.requestHandler,
		DisableKeepalive: false,
		Logger:           compat.NewFastHTTPAdapter(logger),
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
	return s
}

// Start binds the listener and serves until ctx is cancelled or Stop is called
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.stop = make(chan struct{})
	s.startTime = time.Now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("msg", "Status server started",
			"component", "status",
			"address", ln.Addr().String(),
			"path", s.config.Path)

		if err := s.server.Serve(ln); err != nil && !s.stopping.Load() {
			s.logger.Error("msg", "Status server failed",
				"component", "status",
				"error", err)
		}
	}()

	// Monitor context for shutdown signal
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stop:
		}
	}()

	return nil
}

// Addr returns the bound address, or an empty string before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and waits for the serve loop to exit
func (s *Server) Stop() {
	if s.listener == nil {
		return
	}

	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		close(s.stop)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.server.ShutdownWithContext(ctx)

		// Serve may not have registered the listener yet
		_ = s.listener.Close()
		s.wg.Wait()
		s.logger.Info("msg", "Status server stopped", "component", "status")
	})
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	if path != s.config.Path {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]any{
			"error": "Not Found",
			"path":  path,
		})
		return
	}

	if !ctx.IsGet() && !ctx.IsHead() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.Response.Header.Set("Allow", "GET, HEAD")
		return
	}

	s.handleStatus(ctx)
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")

	status := map[string]any{
		"service":        version.Name,
		"version":        version.Short(),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"streamer":       s.source.GetStats(),
	}

	data, err := json.Marshal(status)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		json.NewEncoder(ctx).Encode(map[string]any{
			"error": "Failed to encode status",
		})
		return
	}

	ctx.SetBody(data)
}
