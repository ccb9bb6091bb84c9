package main

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/license"
)

func newProvisionLicenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provisionlicense",
		Short: "Provision licenses for legacy enterprise organizations",
	}
	cmd.AddCommand(newLinkLegacySubscriptionCmd(a))
	return cmd
}

func newLinkLegacySubscriptionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link-external-legacy-subscription",
		Short: "Link a legacy billing subscription to an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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
			input, err := askLegacySubscriptionDetails(a.printer)
			if err != nil {
				return withCode(exitUsage, err)
			}

			svc := license.NewService(client, a.log)
			sub, err := svc.Link(ctx, sess.User.Email, organizationID, input)
			switch {
			case err == nil:
			case errors.Is(err, license.ErrNoActiveSession), errors.Is(err, license.ErrForbidden):
				return withCode(exitValidation, err)
			default:
				return withCode(exitAPI, err)
			}

			a.printer.Succeed("linked the subscription to organization %s", organizationID)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sub)
		},
	}
}
