// Package receiver is the HTTP front of the bridge: one POST endpoint
// taking {action, args} envelopes, plus health and metrics.
//
// Every response, including routing failures and recovered panics, is a
// wire.Response.
package receiver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/cadbridge/internal/bridge"
	"github.com/roach88/cadbridge/internal/metrics"
	"github.com/roach88/cadbridge/internal/wire"
)

// JobHeader carries the id of the job that served a request.
const JobHeader = "X-Bridge-Job"

// DefaultPath is the envelope endpoint when Options.Path is empty.
const DefaultPath = "/mcp"

// Options configures the router.
type Options struct {
	Path         string
	MaxBodyBytes int64            // 0 means unlimited
	Metrics      *metrics.Metrics // nil disables /metrics and request metrics
	Logger       *slog.Logger
}

type handler struct {
	bridge *bridge.Bridge
	logger *slog.Logger
	limit  int64
}

// NewRouter builds the gin engine serving b.
func NewRouter(b *bridge.Bridge, opts Options) *gin.Engine {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &handler{bridge: b, logger: opts.Logger, limit: opts.MaxBodyBytes}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(opts.Logger))
	r.Use(accessLog(opts.Logger, "/health", "/metrics"))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}

	r.POST(opts.Path, h.envelope)
	r.GET("/health", h.health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) { fail(c, wire.NotFound()) })
	r.NoMethod(func(c *gin.Context) { fail(c, wire.MethodNotAllowed()) })
	return r
}

func (h *handler) envelope(c *gin.Context) {
	body := c.Request.Body
	if h.limit > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.limit)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, wire.Response{
				OK:      false,
				Message: fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit),
			})
			return
		}
		fail(c, wire.InvalidEnvelope(err))
		return
	}

	env, err := wire.ParseEnvelope(data)
	if err != nil {
		h.logger.Debug("rejected envelope", "error", err, "cause", errors.Unwrap(err))
		fail(c, err)
		return
	}

	out := h.bridge.Do(c.Request.Context(), env)
	if out.JobID != "" {
		c.Header(JobHeader, out.JobID)
	}
	h.respond(c, out.Status, out.Response)
}

// respond encodes resp before writing anything, so data that cannot be
// encoded still yields an envelope.
func (h *handler) respond(c *gin.Context, status int, resp wire.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("cannot encode response", "error", err, "job_id", c.Writer.Header().Get(JobHeader))
		fail(c, wire.Errorf(wire.KindDomain, "Cannot encode response: %v", err))
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

func (h *handler) health(c *gin.Context) {
	ser := h.bridge.Serializer()
	status, code := "ok", http.StatusOK
	if !ser.Running() {
		status, code = "stopped", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"queue":   ser.Len(),
		"actions": h.bridge.Registry().Len(),
	})
}

func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(wire.Status(err), wire.Fail(err))
}

// recovery turns a handler panic into a 500 envelope.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.Error("handler panicked", "path", c.Request.URL.Path, "panic", rec)
		fail(c, wire.Errorf(wire.KindDomain, "%v", rec))
	})
}

// accessLog logs each request except those to skipPaths.
func accessLog(logger *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"job_id", c.Writer.Header().Get(JobHeader),
			"duration", time.Since(start),
		)
	}
}
