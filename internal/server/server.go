// Package server exposes a callback registry over HTTP.
//
// It plays the transport role for the registry: callbacks are created through the API and
// come back as textual commands that any client can dispatch on behalf of an audience.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghettovoice/clickback/callback"
	"github.com/ghettovoice/clickback/callback/promstats"
	"github.com/ghettovoice/clickback/internal/log"
)

// Options are the options for a [Server].
type Options struct {
	// Lifetime is the lifetime of callbacks created without an explicit one.
	// If 0, [callback.DefaultLifetime] is used.
	Lifetime time.Duration
	// Uses is the use budget of callbacks created without an explicit one.
	// If nil, [callback.DefaultUses] is used.
	Uses *int
	// Logger is the logger.
	// If nil, the [log.Default] is used.
	Logger *slog.Logger
}

func (o *Options) lifetime() time.Duration {
	if o == nil || o.Lifetime == 0 {
		return callback.DefaultLifetime
	}
	return o.Lifetime
}

func (o *Options) uses() int {
	if o == nil || o.Uses == nil {
		return callback.DefaultUses
	}
	return *o.Uses
}

func (o *Options) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Server serves the callback API.
type Server struct {
	provider  *callback.Provider[string]
	lifetime  time.Duration
	uses      int
	log       *slog.Logger
	engine    *gin.Engine
	delivered atomic.Uint64
}

// New creates a new [Server] over provider.
// Options are optional, if nil, default values are used (see [Options]).
func New(provider *callback.Provider[string], opts *Options) *Server {
	s := &Server{
		provider: provider,
		lifetime: opts.lifetime(),
		uses:     opts.uses(),
		log:      opts.log(),
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(promstats.NewCollector(provider.Registry, "clickback"))

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.POST("/callbacks", s.createCallback)
	engine.POST("/commands", s.dispatchCommand)
	engine.GET("/stats", s.stats)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))
	s.engine = engine

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// Delivered returns the number of messages delivered by callbacks so far.
func (s *Server) Delivered() uint64 { return s.delivered.Load() }

type createCallbackRequest struct {
	Message  string `json:"message" binding:"required"`
	Lifetime string `json:"lifetime"`
	Uses     *int   `json:"uses"`
}

type createCallbackResponse struct {
	Handle  callback.Handle `json:"handle"`
	Command string          `json:"command"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) createCallback(c *gin.Context) {
	var req createCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	lifetime := s.lifetime
	if req.Lifetime != "" {
		d, err := time.ParseDuration(req.Lifetime)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
			return
		}
		lifetime = d
	}
	uses := s.uses
	if req.Uses != nil {
		uses = *req.Uses
	}

	msg := req.Message
	cmd, err := s.provider.Create(c.Request.Context(), func(ctx context.Context, aud string) error {
		s.delivered.Add(1)
		s.log.LogAttrs(ctx, slog.LevelInfo, "message delivered",
			slog.String("audience", aud),
			slog.String("message", msg),
		)
		return nil
	}, lifetime, uses)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, callback.ErrInvalidArgument):
			status = http.StatusBadRequest
		case errors.Is(err, callback.ErrRegistryClosed):
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, errorResponse{err.Error()})
		return
	}

	h, err := s.provider.Codec.Parse(cmd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	c.JSON(http.StatusCreated, createCallbackResponse{Handle: h, Command: cmd})
}

type dispatchRequest struct {
	Audience string `json:"audience" binding:"required"`
	Command  string `json:"command" binding:"required"`
}

type dispatchResponse struct {
	Ran bool `json:"ran"`
}

func (s *Server) dispatchCommand(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	ran, err := s.provider.Dispatch(c.Request.Context(), req.Audience, req.Command)
	if err != nil {
		if errors.Is(err, callback.ErrInvalidCommand) {
			c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
			return
		}
		s.log.LogAttrs(c.Request.Context(), slog.LevelWarn, "callback failed",
			slog.String("audience", req.Audience),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	c.JSON(http.StatusOK, dispatchResponse{Ran: ran})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.provider.Registry.Stats())
}

// Run serves on addr until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ls, err := net.Listen("tcp", addr)
	if err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(s.Serve(ctx, ls))
}

// Serve serves on ls until ctx is done, then shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context, ls net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		s.log.LogAttrs(ctx, slog.LevelInfo, "server started", slog.Any("local_addr", ls.Addr()))
		errs <- srv.Serve(ls)
	}()

	select {
	case err := <-errs:
		return errtrace.Wrap(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errtrace.Wrap(err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errtrace.Wrap(err)
	}
	s.log.LogAttrs(ctx, slog.LevelInfo, "server stopped")
	return nil
}
