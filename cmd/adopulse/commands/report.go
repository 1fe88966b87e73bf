package commands

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssandy33/ado-pulse/cmd/adopulse/internal/clierr"
	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/export"
	"github.com/ssandy33/ado-pulse/internal/logger"
	"github.com/ssandy33/ado-pulse/internal/period"
	"github.com/ssandy33/ado-pulse/internal/services"
)

type reportOptions struct {
	team        string
	period      string
	start       string
	end         string
	format      string
	kind        string
	noDB        bool
	diagnostics bool
}

func newReportCmd(load func() config.Config, build Builder) *cobra.Command {
	var o reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a CapEx/OpEx report for one team",
		Long: "Fetches the team roster, its members' worklogs and the work item hierarchy, " +
			"then prints the aggregated report as JSON or CSV.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, o, load, build)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.team, "team", "", "team name (defaults to the first configured team)")
	f.StringVar(&o.period, "period", period.ThisMonth, "named period: this-month, last-month, this-week, last-week, last-7-days, last-30-days")
	f.StringVar(&o.start, "start", "", "custom range start, YYYY-MM-DD")
	f.StringVar(&o.end, "end", "", "custom range end, YYYY-MM-DD")
	f.StringVar(&o.format, "format", "json", "output format: json or csv")
	f.StringVar(&o.kind, "kind", export.KindMembers, "csv content: members or wrong-level")
	f.BoolVar(&o.noDB, "no-db", false, "skip the database; exclusions are not applied")
	f.BoolVar(&o.diagnostics, "diagnostics", false, "include pipeline diagnostics in JSON output")
	cmd.MarkFlagsMutuallyExclusive("period", "start")
	return cmd
}

func runReport(cmd *cobra.Command, o reportOptions, load func() config.Config, build Builder) error {
	format := strings.ToLower(o.format)
	if format != "json" && format != "csv" {
		return clierr.New(clierr.CodeUsage, "unknown format "+o.format)
	}
	if format == "csv" && o.kind != export.KindMembers && o.kind != export.KindWrongLevel {
		return clierr.New(clierr.CodeUsage, "unknown csv kind "+o.kind)
	}

	cfg := load()
	log := logger.NewWithWriter(cfg, cmd.ErrOrStderr())
	team := o.team
	if team == "" && len(cfg.ADOTeams) > 0 {
		team = cfg.ADOTeams[0]
	}
	if team == "" {
		return clierr.New(clierr.CodeUsage, "no team given and ADO_TEAMS is empty")
	}

	ctx := cmd.Context()
	svc, cleanup, err := build(ctx, cfg, log, !o.noDB)
	if err != nil {
		return clierr.Wrap(clierr.CodeFailure, "setup", err)
	}
	defer cleanup()

	p, err := period.Parse(o.period, o.start, o.end, svc.Now())
	if err != nil {
		return clierr.Classify("period", err)
	}
	rep, err := svc.CapexReport(ctx, services.ReportRequest{Team: team, Period: p, Diagnostics: o.diagnostics})
	if err != nil {
		return clierr.Classify("report", err)
	}

	out := cmd.OutOrStdout()
	if format == "csv" {
		return export.Write(out, rep, o.kind)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
