package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/migration"
)

func newEmailMigrationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emailmigration",
		Short: "Migrate organization members to SSO emails from a mapping CSV",
	}
	cmd.AddCommand(newEmailMigrationRunCmd(a, migration.ModeDryRun))
	cmd.AddCommand(newEmailMigrationRunCmd(a, migration.ModeExecute))
	return cmd
}

func newEmailMigrationRunCmd(a *app, mode migration.Mode) *cobra.Command {
	use, short := "execute", "Apply the migration mapping to the organization"
	if mode == migration.ModeDryRun {
		use, short = "dry-run", "Validate the migration mapping without changing anything"
	}

	var mappingCSV, reportCSV string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmailMigration(cmd, a, mode, mappingCSV, reportCSV)
		},
	}

	cmd.Flags().StringVar(&mappingCSV, "mapping-csv", "", "CSV mapping existing emails to SSO emails (required)")
	cmd.Flags().StringVar(&reportCSV, "report-csv", "", "Base name for the audit report CSV (required)")
	_ = cmd.MarkFlagRequired("mapping-csv")
	_ = cmd.MarkFlagRequired("report-csv")
	return cmd
}

func runEmailMigration(cmd *cobra.Command, a *app, mode migration.Mode, mappingCSV, reportCSV string) error {
	ctx := cmd.Context()

	rows, err := migration.LoadMapping(mappingCSV)
	if err != nil {
		return withCode(exitValidation, err)
	}

	_, sess, err := a.session()
	if err != nil {
		return err
	}
	client, err := a.directoryClient(sess)
	if err != nil {
		return err
	}

	organizationID, err := askOrganizationID(a.printer)
	if err != nil {
		return withCode(exitUsage, err)
	}

	engine := migration.NewEngine(client, mode, a.log, a.printer)
	if err := engine.Preflight(ctx, sess.User.Email, organizationID, rows); err != nil {
		switch {
		case errors.Is(err, migration.ErrNoActiveSession),
			errors.Is(err, migration.ErrForbidden),
			errors.Is(err, migration.ErrOrganizationMissing),
			errors.Is(err, migration.ErrOwnerMappingMissing):
			return withCode(exitValidation, err)
		}
		return withCode(exitAPI, err)
	}

	reporter, err := migration.NewReporter(reportPath(a.cfg.ReportDir, reportCSV, time.Now()))
	if err != nil {
		return err
	}
	summary, err := engine.Run(ctx, rows, reporter)
	if err != nil {
		return errors.Wrap(err, "write audit report")
	}

	a.printer.Info("total rows: %d, execution time: %s", summary.TotalRows, summary.Elapsed.Round(time.Millisecond))
	a.printer.Succeed("passed: %d", summary.TotalRows-summary.FailedCount)
	if summary.FailedCount > 0 {
		a.printer.Fail("failed: %d", summary.FailedCount)
	}
	a.printer.Info("audit report written to %s", reporter.Path())
	return nil
}

// reportPath derives the audit file location: the report base name with a
// millisecond timestamp, under the report directory.
func reportPath(reportDir, reportCSV string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(reportCSV), filepath.Ext(reportCSV))
	return filepath.Join(reportDir, fmt.Sprintf("%s_%d.csv", base, now.UnixMilli()))
}
