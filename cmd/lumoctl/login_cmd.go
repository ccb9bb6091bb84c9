package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/profile"
	"github.com/lumoboard/lumoctl/pkg/validate"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Authenticate against the active instance and persist the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			file, sess, err := a.session()
			if err != nil {
				return err
			}

			email := ""
			if len(args) == 1 {
				email = args[0]
				if !validate.IsEmail(email) {
					return withCode(exitValidation, errors.Errorf("invalid email format - %s", email))
				}
			} else {
				email, err = askEmail(a.printer, "Enter your email:")
				if err != nil {
					return withCode(exitUsage, err)
				}
			}

			password, err := a.printer.AskSecret("Enter your password:")
			if err != nil {
				return withCode(exitUsage, err)
			}

			client, err := a.directoryClient(profile.Session{Services: sess.Services})
			if err != nil {
				return err
			}
			token, err := client.Authenticate(ctx, email, password)
			if err != nil {
				return withCode(exitAPI, errors.Wrap(err, "authenticate"))
			}

			me, err := client.WithToken(token).SessionUser(ctx)
			if err != nil {
				return withCode(exitAPI, errors.Wrap(err, "fetch session user"))
			}

			active := file.Active()
			active.User = profile.SessionUser{
				ID:        me.ID,
				FirstName: me.FirstName,
				LastName:  me.LastName,
				Email:     me.Email,
				Token:     token,
			}
			if err := a.store.Save(file); err != nil {
				return errors.Wrap(err, "save profile store")
			}
			a.printer.Succeed("logged in as %s on instance %s", me.Email, active.Name)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the active instance session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _, err := a.session()
			if err != nil {
				return err
			}
			file.ClearSession()
			if err := a.store.Save(file); err != nil {
				return errors.Wrap(err, "save profile store")
			}
			a.printer.Succeed("logged out of instance %s", file.Active().Name)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the active session user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, sess, err := a.session()
			if err != nil {
				return err
			}
			if sess.User.Email == "" {
				return withCode(exitValidation, errors.New("no active session found; login to proceed"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s> (instance %s)\n",
				sess.User.FirstName, sess.User.LastName, sess.User.Email, file.Active().Name)
			return nil
		},
	}
}
