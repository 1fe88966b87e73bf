/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/config"
)

// NewRouter wires the API. trigger starts a digest run in the background and
// may be nil when the scheduler is disabled.
func NewRouter(cfg config.Config, log zerolog.Logger, svc Service, trigger func()) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).
			Dur("took", time.Since(start)).Msg("http")
	})

	h := NewHandlers(cfg, log, svc, trigger)

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/teams/:team/capex", h.Capex)
	api.GET("/teams/:team/capex.csv", h.CapexCSV)
	api.GET("/teams/:team/compliance/history", h.ComplianceHistory)
	api.GET("/exclusions", h.ListExclusions)
	api.PUT("/exclusions/:uniqueName", h.PutExclusion)
	api.DELETE("/exclusions/:uniqueName", h.DeleteExclusion)

	r.GET("/admin/last-run", h.LastRun)
	r.POST("/admin/run", h.RunNow)

	return r
}
