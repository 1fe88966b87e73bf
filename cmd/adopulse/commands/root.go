package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/repo"
	"github.com/ssandy33/ado-pulse/internal/services"
)

// Reporter is the part of the service the CLI drives.
type Reporter interface {
	Now() time.Time
	CapexReport(ctx context.Context, req services.ReportRequest) (domain.Report, error)
}

// Builder constructs a Reporter and a cleanup func for one invocation.
type Builder func(ctx context.Context, cfg config.Config, log zerolog.Logger, useDB bool) (Reporter, func(), error)

func NewRootCmd() *cobra.Command {
	return newRootCmd(config.Load, buildService)
}

func newRootCmd(load func() config.Config, build Builder) *cobra.Command {
	version := os.Getenv("ADOPULSE_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "adopulse",
		Short:         "CapEx/OpEx time reports from Azure DevOps and 7pace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of adopulse",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "adopulse version %s\n", version)
		},
	})
	cmd.AddCommand(newReportCmd(load, build))
	return cmd
}

func buildService(ctx context.Context, cfg config.Config, log zerolog.Logger, useDB bool) (Reporter, func(), error) {
	if !useDB {
		return services.Wire(cfg, log, nil), func() {}, nil
	}
	db, err := repo.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return services.Wire(cfg, log, repo.NewRepository(db, log)), db.Close, nil
}
