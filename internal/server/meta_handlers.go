package server

import (
	"bytes"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/hawkalert/internal/metrics"
	"github.com/mr-karan/hawkalert/pkg/models"
)

// MetaResponse represents the server metadata response
type MetaResponse struct {
	Version           string `json:"version"`
	BuildInfo         string `json:"build_info,omitempty"`
	HTTPServerTimeout string `json:"http_server_timeout"`
	HawkularURL       string `json:"hawkular_url"`
	Tenant            string `json:"tenant"`
}

// handleGetMeta returns server metadata.
// GET /api/v1/meta
func (s *Server) handleGetMeta(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, MetaResponse{
		Version:           s.version,
		BuildInfo:         s.buildInfo,
		HTTPServerTimeout: s.config.Server.HTTPServerTimeout.String(),
		HawkularURL:       s.config.Hawkular.BaseURL,
		Tenant:            s.config.Hawkular.Tenant,
	})
}

// handleHealth reports service health, including Hawkular reachability.
// GET /health
func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.hawkular == nil {
		return SendSuccess(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	if err := s.hawkular.HealthCheck(ctx); err != nil {
		s.log.Warn("hawkular health check failed", "error", err)
		return SendErrorWithType(c, fiber.StatusServiceUnavailable, "hawkular unreachable: "+err.Error(), models.BackendErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"status": "ok", "hawkular": "ok"})
}

// handleMetrics exposes Prometheus metrics.
// GET /metrics
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	if !s.config.Metrics.Enabled {
		return fiber.ErrNotFound
	}
	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, s.config.Metrics.ProcessMetrics)
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.Send(buf.Bytes())
}
