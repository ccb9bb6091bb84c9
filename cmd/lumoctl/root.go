package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/config"
	"github.com/lumoboard/lumoctl/internal/directory"
	"github.com/lumoboard/lumoctl/internal/profile"
	"github.com/lumoboard/lumoctl/pkg/console"
)

// app holds the wiring every command shares: configuration, logger, the
// profile store and the terminal printer.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	printer *console.Printer
	store   *profile.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, withCode(exitValidation, errors.Wrap(err, "load configuration"))
	}
	path, err := cfg.ProfileStorePath()
	if err != nil {
		return nil, withCode(exitValidation, errors.Wrap(err, "resolve profile store path"))
	}
	return &app{
		cfg:     cfg,
		log:     cfg.Logger(),
		printer: console.New(),
		store:   profile.Open(path, cfg.ProfileKey),
	}, nil
}

// session loads the profile store and hands back the active session. The
// returned File is what commands mutate and pass to store.Save.
func (a *app) session() (*profile.File, profile.Session, error) {
	file, err := a.store.Load()
	if err != nil {
		return nil, profile.Session{}, withCode(exitValidation, errors.Wrap(err, "load profile store"))
	}
	return file, file.Active().Session(), nil
}

// directoryClient builds a directory client for the session's instance,
// authenticated with the session token when one exists.
func (a *app) directoryClient(sess profile.Session) (*directory.Client, error) {
	if sess.Services.Directory == "" {
		return nil, withCode(exitValidation, errors.New("active profile has no directory service URL; run `lumoctl config set --config-url=...` first"))
	}
	client, err := directory.NewClient(directory.Options{
		BaseURL:  sess.Services.Directory,
		Token:    sess.User.Token,
		Timeout:  a.cfg.HTTPTimeout,
		Logger:   a.log,
		PageSize: a.cfg.PageSize,
	})
	if err != nil {
		return nil, withCode(exitValidation, err)
	}
	return client, nil
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lumoctl",
		Short:         "Administrative CLI for the Lumoboard collaboration platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newUserCmd(a))
	cmd.AddCommand(newCustomLinkCmd(a))
	cmd.AddCommand(newProvisionLicenseCmd(a))
	cmd.AddCommand(newSiloedUserProvisionCmd(a))
	cmd.AddCommand(newEmailMigrationCmd(a))
	return cmd
}

func Execute() {
	a, err := newApp()
	if err == nil {
		err = newRootCmd(a).Execute()
	}
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
