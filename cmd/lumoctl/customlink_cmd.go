package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/customlink"
)

func newCustomLinkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customlink",
		Short: "Manage meeting custom links",
	}
	cmd.AddCommand(newCustomLinkAddCmd(a))
	return cmd
}

func newCustomLinkAddCmd(a *app) *cobra.Command {
	var fromCSV, blockedCSV string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Bulk-provision custom links from a CSV of email / room-name pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			requests, err := customlink.LoadRequests(fromCSV)
			if err != nil {
				return withCode(exitValidation, err)
			}

			var blocked []string
			if blockedCSV != "" {
				blocked, err = customlink.LoadBlockedDomains(blockedCSV)
				if err != nil {
					return withCode(exitValidation, err)
				}
			}

			_, sess, err := a.session()
			if err != nil {
				return err
			}
			client, err := a.directoryClient(sess)
			if err != nil {
				return err
			}

			svc := customlink.NewService(client, blocked, a.log, a.printer)
			summary := svc.Provision(ctx, requests)

			a.printer.Info("total requests: %d, execution time: %s", summary.Total, summary.Elapsed.Round(time.Millisecond))
			if len(summary.Failures) == 0 {
				a.printer.Succeed("all %d custom links provisioned", summary.Total)
				return nil
			}
			a.printer.Succeed("passed: %d", summary.Succeeded())
			a.printer.Fail("failed: %d", len(summary.Failures))
			return withCode(exitValidation, errors.Errorf("%d of %d custom link request(s) failed", len(summary.Failures), summary.Total))
		},
	}

	cmd.Flags().StringVar(&fromCSV, "from-csv", "", "CSV with Email and Room Name columns (required)")
	cmd.Flags().StringVar(&blockedCSV, "blocked-domains", "", "CSV with a Domain Name column of blocked email domains")
	_ = cmd.MarkFlagRequired("from-csv")
	return cmd
}
