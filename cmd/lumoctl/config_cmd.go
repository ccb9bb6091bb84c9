package main

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lumoboard/lumoctl/internal/profile"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and switch instance profiles",
	}
	cmd.AddCommand(newConfigGetInstanceCmd(a))
	cmd.AddCommand(newConfigSetInstanceCmd(a))
	cmd.AddCommand(newConfigSetCmd(a))
	return cmd
}

func newConfigGetInstanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get-instance",
		Short: "Print the active instance profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _, err := a.session()
			if err != nil {
				return err
			}
			active := file.Active()
			out := struct {
				Name     string           `json:"name"`
				Services profile.Services `json:"services"`
				User     string           `json:"user,omitempty"`
			}{Name: active.Name, Services: active.Services, User: active.User.Email}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newConfigSetInstanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-instance <name>",
		Short: "Switch the active instance profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _, err := a.session()
			if err != nil {
				return err
			}
			if err := file.SetActive(args[0]); err != nil {
				return withCode(exitValidation, err)
			}
			if err := a.store.Save(file); err != nil {
				return errors.Wrap(err, "save profile store")
			}
			a.printer.Succeed("active instance is now %s", args[0])
			return nil
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	var configURL, name string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Discover an instance's service URLs and store them as a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if _, err := url.ParseRequestURI(configURL); err != nil {
				return withCode(exitValidation, errors.Errorf("invalid config URL %q", configURL))
			}

			file, _, err := a.session()
			if err != nil {
				return err
			}

			services, err := profile.DiscoverServices(ctx, &http.Client{Timeout: a.cfg.HTTPTimeout}, configURL)
			if err != nil {
				return withCode(exitAPI, errors.Wrap(err, "discover instance services"))
			}
			if services.Config == "" {
				services.Config = configURL
			}

			if name == "" {
				name = file.Active().Name
			}
			file.AddProfile(profile.Profile{Name: name, Services: services})
			if err := a.store.Save(file); err != nil {
				return errors.Wrap(err, "save profile store")
			}
			a.printer.Succeed("instance %s provisioned; directory service at %s", name, services.Directory)
			return nil
		},
	}

	cmd.Flags().StringVar(&configURL, "config-url", "", "Instance environment configuration URL (required)")
	cmd.Flags().StringVar(&name, "name", "", "Profile name (default: active profile)")
	_ = cmd.MarkFlagRequired("config-url")
	return cmd
}
