package main

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/directory"
	"github.com/lumoboard/lumoctl/pkg/validate"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Look up and manage platform users",
	}
	cmd.AddCommand(newUserGetCmd(a))
	cmd.AddCommand(newUserDeleteCmd(a))
	return cmd
}

func newUserGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|email>",
		Short: "Fetch a user by id or email and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			_, sess, err := a.session()
			if err != nil {
				return err
			}
			client, err := a.directoryClient(sess)
			if err != nil {
				return err
			}

			var user *directory.User
			switch {
			case validate.IsEmail(key):
				user, err = client.GetUserByEmail(ctx, key)
			case validate.IsID(key):
				user, err = client.GetUserByID(ctx, key)
			default:
				return withCode(exitValidation, errors.Errorf("%q is neither a valid user id nor an email address", key))
			}
			if err != nil {
				if directory.IsNotFound(err) {
					return withCode(exitValidation, errors.Errorf("user %s not found", key))
				}
				return withCode(exitAPI, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		},
	}
}

func newUserDeleteCmd(a *app) *cobra.Command {
	var newOwnerID string
	var hard bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user, reassigning their owned workspaces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID := args[0]

			if !validate.IsID(userID) {
				return withCode(exitValidation, errors.Errorf("invalid user id %q", userID))
			}
			if newOwnerID != "" && !validate.IsID(newOwnerID) {
				return withCode(exitValidation, errors.Errorf("invalid new owner id %q", newOwnerID))
			}

			_, sess, err := a.session()
			if err != nil {
				return err
			}
			client, err := a.directoryClient(sess)
			if err != nil {
				return err
			}

			if err := client.DeleteUser(ctx, userID, newOwnerID, hard); err != nil {
				if directory.IsNotFound(err) {
					return withCode(exitValidation, errors.Errorf("user %s not found", userID))
				}
				return withCode(exitAPI, err)
			}
			a.printer.Succeed("user %s deleted", userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&newOwnerID, "new-owner-id", "", "Member receiving the deleted user's workspaces")
	cmd.Flags().BoolVar(&hard, "hard", false, "Permanently delete instead of soft-deleting")
	return cmd
}
