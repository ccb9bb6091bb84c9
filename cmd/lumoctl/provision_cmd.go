package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/provision"
	"github.com/lumoboard/lumoctl/pkg/validate"
)

func newSiloedUserProvisionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siloeduserprovision",
		Short: "Configure siloed-tenant user provisioning",
	}
	cmd.AddCommand(newSiloedSetCmd(a))
	return cmd
}

func newSiloedSetCmd(a *app) *cobra.Command {
	var organizationID, accountID string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Enable IDP auto-association, and optionally account mapping, for every organization sharing an identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !validate.IsID(organizationID) {
				return withCode(exitValidation, errors.Errorf("invalid organization id %q", organizationID))
			}
			if accountID != "" && !validate.IsID(accountID) {
				return withCode(exitValidation, errors.Errorf("invalid account id %q", accountID))
			}

			_, sess, err := a.session()
			if err != nil {
				return err
			}
			client, err := a.directoryClient(sess)
			if err != nil {
				return err
			}

			svc := provision.NewService(client, a.log, a.printer)
			summary, err := svc.Apply(ctx, organizationID, accountID)
			if err != nil {
				return withCode(exitAPI, err)
			}

			a.printer.Info("execution time: %s", summary.Elapsed.Round(time.Millisecond))
			for _, line := range summary.Describe(accountID) {
				a.printer.Info("%s", line)
			}
			if len(summary.IDPFailures)+len(summary.AccountFailures) > 0 {
				return withCode(exitAPI, errors.Errorf("%d organization update(s) failed", len(summary.IDPFailures)+len(summary.AccountFailures)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&organizationID, "organization-id", "", "Organization whose identity provider drives the walk (required)")
	cmd.Flags().StringVar(&accountID, "account-id", "", "Billing account to attach matching organizations to")
	_ = cmd.MarkFlagRequired("organization-id")
	return cmd
}
