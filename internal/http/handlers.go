/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/export"
	"github.com/ssandy33/ado-pulse/internal/period"
	"github.com/ssandy33/ado-pulse/internal/repo"
	"github.com/ssandy33/ado-pulse/internal/services"
)

// Service is what the HTTP surface needs from the service layer.
type Service interface {
	Now() time.Time
	CapexReport(ctx context.Context, req services.ReportRequest) (domain.Report, error)
	ComplianceHistory(ctx context.Context, team string, limit int) ([]domain.ComplianceSnapshot, error)
	ListExclusions(ctx context.Context) ([]domain.Exclusion, error)
	SetExclusion(ctx context.Context, e domain.Exclusion) (domain.Exclusion, error)
	RemoveExclusion(ctx context.Context, uniqueName string) error
	GetLastRun(ctx context.Context) (*domain.JobRun, error)
}

type Handlers struct {
	cfg     config.Config
	log     zerolog.Logger
	svc     Service
	trigger func()
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc Service, trigger func()) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, trigger: trigger}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) reportRequest(c *gin.Context) (services.ReportRequest, error) {
	p, err := period.Parse(c.Query("period"), c.Query("start"), c.Query("end"), h.svc.Now())
	if err != nil {
		return services.ReportRequest{}, err
	}
	diag, _ := strconv.ParseBool(c.DefaultQuery("diagnostics", "false"))
	return services.ReportRequest{Team: c.Param("team"), Period: p, Diagnostics: diag}, nil
}

func (h *Handlers) Capex(c *gin.Context) {
	req, err := h.reportRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rep, err := h.svc.CapexReport(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handlers) CapexCSV(c *gin.Context) {
	kind := c.DefaultQuery("kind", export.KindMembers)
	if kind != export.KindMembers && kind != export.KindWrongLevel {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind " + strconv.Quote(kind), "kind": "bad_request"})
		return
	}
	req, err := h.reportRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rep, err := h.svc.CapexReport(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	name := fmt.Sprintf("capex-%s-%s-%s.csv", req.Team, kind, req.Period.Start.Format(time.DateOnly))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, rep, kind); err != nil {
		h.log.Error().Err(err).Msg("csv write failed")
	}
}

func (h *Handlers) ComplianceHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
	hist, err := h.svc.ComplianceHistory(c.Request.Context(), c.Param("team"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if hist == nil {
		hist = []domain.ComplianceSnapshot{}
	}
	c.JSON(http.StatusOK, hist)
}

func (h *Handlers) ListExclusions(c *gin.Context) {
	ex, err := h.svc.ListExclusions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if ex == nil {
		ex = []domain.Exclusion{}
	}
	c.JSON(http.StatusOK, ex)
}

func (h *Handlers) PutExclusion(c *gin.Context) {
	var body struct {
		Role               string `json:"role"`
		ExcludeFromMetrics *bool  `json:"excludeFromMetrics"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "bad_request"})
		return
	}
	e := domain.Exclusion{UniqueName: c.Param("uniqueName"), Role: body.Role, ExcludeFromMetrics: true}
	if body.ExcludeFromMetrics != nil {
		e.ExcludeFromMetrics = *body.ExcludeFromMetrics
	}
	saved, err := h.svc.SetExclusion(c.Request.Context(), e)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handlers) DeleteExclusion(c *gin.Context) {
	if err := h.svc.RemoveExclusion(c.Request.Context(), c.Param("uniqueName")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.svc.GetLastRun(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lr)
}

// RunNow queues the weekly digest; the trigger runs detached from the request.
func (h *Handlers) RunNow(c *gin.Context) {
	if h.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running", "kind": "not_configured"})
		return
	}
	go h.trigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("p", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, period.ErrInvalid):
		return http.StatusBadRequest, "invalid_period"
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrNoStore):
		return http.StatusServiceUnavailable, "no_store"
	case errors.Is(err, services.ErrInvalidExclusion):
		return http.StatusBadRequest, "bad_request"
	}
	var ue *domain.UpstreamError
	kind := domain.KindOf(err)
	switch {
	case kind == domain.KindUnauthorized:
		return http.StatusForbidden, kind.String()
	case kind == domain.KindTimeout:
		return http.StatusGatewayTimeout, kind.String()
	case kind == domain.KindNotConfigured:
		return http.StatusServiceUnavailable, kind.String()
	case errors.As(err, &ue):
		return http.StatusBadGateway, kind.String()
	}
	return http.StatusInternalServerError, "internal"
}
