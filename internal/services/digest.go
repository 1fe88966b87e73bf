package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ssandy33/ado-pulse/internal/adapters/telegram"
	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/governance"
	"github.com/ssandy33/ado-pulse/internal/period"
)

const (
	telegramChunk    = 3800
	digestTopMembers = 5
)

// RunWeeklyDigest builds last week's report for every configured team,
// stores its compliance snapshot and posts a digest. A failing team does
// not stop the others; the run is recorded as failed.
func (s *Service) RunWeeklyDigest(ctx context.Context) error {
	teams := s.cfg.ADOTeams
	if len(teams) == 0 {
		s.log.Warn().Msg("weekly digest: no teams configured")
		return nil
	}
	p, err := period.Named(period.LastWeek, s.now())
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	var jobID int64
	if s.store != nil {
		if jobID, err = s.store.StartJobRun(ctx, runID, teams); err != nil {
			s.log.Error().Err(err).Msg("start job run failed")
		}
	}
	s.log.Info().Str("run", runID).Strs("teams", teams).Time("from", p.Start).Msg("weekly digest: start")

	var (
		members   int
		snapshots int
		errs      []error
	)
	defer func() {
		if jobID != 0 {
			runErr := errors.Join(errs...)
			msg := ""
			if runErr != nil {
				msg = runErr.Error()
			}
			if err := s.store.FinishJobRun(context.WithoutCancel(ctx), jobID, members, snapshots, runErr == nil, msg); err != nil {
				s.log.Error().Err(err).Msg("finish job run failed")
			}
		}
	}()

	for _, team := range teams {
		rep, err := s.CapexReport(ctx, ReportRequest{Team: team, Period: p})
		if err != nil {
			s.log.Error().Err(err).Str("team", team).Msg("weekly digest: report failed")
			errs = append(errs, fmt.Errorf("%s: %w", team, err))
			continue
		}
		members += len(rep.Members)
		if s.store != nil && rep.TrackerConnected {
			if err := s.store.SaveComplianceSnapshot(ctx, domain.SnapshotOf(rep)); err != nil {
				s.log.Error().Err(err).Str("team", team).Msg("save snapshot failed")
			} else {
				snapshots++
			}
		}
		narrative := s.narrate(ctx, rep)
		s.deliver(ctx, renderDigest(rep, narrative))
	}

	s.log.Info().Str("run", runID).Int("members", members).Int("snapshots", snapshots).Int("failed_teams", len(errs)).
		Msg("weekly digest: done")
	return errors.Join(errs...)
}

// narrate returns "" when no LLM is configured or the call fails.
func (s *Service) narrate(ctx context.Context, rep domain.Report) string {
	if s.llm == nil || strings.TrimSpace(s.cfg.OpenAIKey) == "" || !rep.TrackerConnected {
		return ""
	}
	timeout := s.cfg.OpenAITimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	text, err := s.llm.Narrate(ctx, anonymize(rep))
	if err != nil {
		s.log.Error().Err(err).Str("team", rep.Team.Name).Msg("llm narrative failed")
		return ""
	}
	return text
}

func (s *Service) deliver(ctx context.Context, digest string) {
	if s.tg == nil || digest == "" {
		return
	}
	chats := append([]int64(nil), s.cfg.TelegramChatIDs...)
	type usernameResolver interface {
		ResolveUsername(ctx context.Context, username string) (int64, error)
	}
	if len(chats) == 0 && len(s.cfg.TelegramChatUsernames) > 0 {
		r, ok := s.tg.(usernameResolver)
		if !ok {
			s.log.Error().Msg("telegram client does not support username resolution; set TELEGRAM_CHAT_IDS")
			return
		}
		for _, u := range s.cfg.TelegramChatUsernames {
			id, err := r.ResolveUsername(ctx, u)
			if err != nil {
				s.log.Error().Err(err).Str("username", u).Msg("resolve username failed")
				continue
			}
			chats = append(chats, id)
		}
	}
	parts := chunkText(digest, telegramChunk)
	for _, chat := range chats {
		for _, part := range parts {
			if err := s.tg.SendMarkdownV2(ctx, chat, part); err != nil {
				s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
				break
			}
		}
	}
}

// renderDigest builds a MarkdownV2 summary of one team's report.
func renderDigest(rep domain.Report, narrative string) string {
	esc := telegram.EscapeMarkdownV2
	b := &strings.Builder{}
	fmt.Fprintf(b, "*ADO Pulse · %s*\n", esc(rep.Team.Name))
	fmt.Fprintf(b, "%s\n\n", esc(rep.Period.Label))
	if !rep.TrackerConnected {
		b.WriteString(esc("Time tracker not connected; no worklogs were read.") + "\n")
		return b.String()
	}

	g := rep.Governance
	status := "below target"
	if g.IsCompliant {
		status = "on target"
	}
	fmt.Fprintf(b, "*Compliance:* %s \\(%s\\)\n", esc(fmt.Sprintf("%.2f%%", g.CompliancePct)), esc(status))
	fmt.Fprintf(b, "%s\n", esc(fmt.Sprintf("%.2fh logged of %.2fh expected (%d members, %d business days, %dh/day)",
		g.ActualHours, g.ExpectedHours, g.ActiveMembers, g.BusinessDays, governance.HoursPerDay)))

	sm := rep.Summary
	fmt.Fprintf(b, "*CapEx:* %s\n", esc(fmt.Sprintf("%.2fh (%.2f%%)", sm.CapExHours, sm.CapExPct)))
	fmt.Fprintf(b, "*OpEx:* %s\n", esc(fmt.Sprintf("%.2fh", sm.OpExHours)))
	fmt.Fprintf(b, "*Unclassified:* %s\n", esc(fmt.Sprintf("%.2fh", sm.UnclassifiedHours)))
	fmt.Fprintf(b, "*Wrong level:* %s\n", esc(fmt.Sprintf("%d entries, %.2fh", sm.WrongLevelCount, sm.WrongLevelHours)))
	fmt.Fprintf(b, "*Logging:* %s\n", esc(fmt.Sprintf("%d members, %d not logging", sm.MembersLogging, sm.MembersNotLogging)))

	var quiet []string
	for _, m := range rep.Members {
		if !m.IsExcluded && m.TotalHours == 0 {
			quiet = append(quiet, m.DisplayName)
		}
	}
	if len(quiet) > 0 {
		if len(quiet) > digestTopMembers {
			quiet = append(quiet[:digestTopMembers], fmt.Sprintf("+%d more", len(quiet)-digestTopMembers))
		}
		fmt.Fprintf(b, "\n*No time logged:* %s\n", esc(strings.Join(quiet, ", ")))
	}

	if narrative != "" {
		fmt.Fprintf(b, "\n%s\n", esc(narrative))
	}
	return b.String()
}

// chunkText splits text into chunks of up to max runes, attempting to break on line boundaries.
func chunkText(s string, max int) []string {
	if max <= 0 {
		return []string{s}
	}
	var chunks []string
	cur := ""
	curlen := 0
	for _, ln := range strings.Split(s, "\n") {
		rl := len([]rune(ln))
		if rl > max {
			if curlen > 0 {
				chunks = append(chunks, cur)
				cur, curlen = "", 0
			}
			r := []rune(ln)
			for i := 0; i < rl; i += max {
				j := min(i+max, rl)
				chunks = append(chunks, string(r[i:j]))
			}
			continue
		}
		extra := rl
		if curlen > 0 {
			extra++
		}
		switch {
		case curlen+extra > max:
			chunks = append(chunks, cur)
			cur, curlen = ln, rl
		case curlen == 0:
			cur, curlen = ln, rl
		default:
			cur += "\n" + ln
			curlen += extra
		}
	}
	if curlen > 0 {
		chunks = append(chunks, cur)
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
