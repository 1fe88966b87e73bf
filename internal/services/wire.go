package services

import (
	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/adapters/ado"
	"github.com/ssandy33/ado-pulse/internal/adapters/openai"
	"github.com/ssandy33/ado-pulse/internal/adapters/sevenpace"
	"github.com/ssandy33/ado-pulse/internal/adapters/telegram"
	"github.com/ssandy33/ado-pulse/internal/config"
)

// Wire builds a Service on the real upstream clients. store may be nil.
// Optional integrations without credentials are left out.
func Wire(cfg config.Config, log zerolog.Logger, store Store) *Service {
	ac := ado.NewClient(cfg, log)
	d := Deps{Roster: ac, WorkItems: ac, Store: store}
	if cfg.TrackerConfigured() {
		d.Worklogs = sevenpace.NewClient(cfg, log)
	} else {
		log.Warn().Msg("7pace not configured; reports will be degraded")
	}
	if llm := openai.NewClient(cfg, log); llm.Enabled() {
		d.LLM = llm
	}
	if tg := telegram.NewClient(cfg, log); tg.Enabled() {
		d.Notifier = tg
	}
	return New(cfg, log, d)
}
