package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/spf13/cobra"
)

type uninstallOptions struct {
	deleteData     bool
	noninteractive bool
}

func newUninstallCommand(a *app) *cobra.Command {
	var opts uninstallOptions

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop BrainFrame and remove it from this machine",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			return a.uninstall(ctx, opts, a.interactive(cmd) && !opts.noninteractive)
		}),
	}

	cmd.Flags().BoolVar(&opts.deleteData, "delete-data", false, "also delete the data directory")
	cmd.Flags().BoolVar(&opts.noninteractive, "noninteractive", false, "never prompt; use flags and defaults")
	return cmd
}

func (a *app) uninstall(ctx context.Context, opts uninstallOptions, interactive bool) error {
	if err := a.guard.RequirePrivilege(); err != nil {
		return err
	}

	installPath := a.settings.InstallPath.Value
	dataPath := a.settings.DataPath.Value
	c, err := a.compose(installPath)
	if err != nil {
		return err
	}
	if err := c.AssertInstalled(); err != nil {
		return err
	}

	deleteData, err := a.decide(interactive, fmt.Sprintf("Also delete all data in %s?", dataPath), false, opts.deleteData)
	if err != nil {
		return err
	}
	if interactive {
		targets := installPath
		if deleteData {
			targets += " and " + dataPath
		}
		proceed, err := a.prompter.Confirm(fmt.Sprintf("This removes %s. Continue?", targets), false)
		if err != nil {
			return err
		}
		if !proceed {
			return errors.New(errors.ErrTypeValidation, "uninstall cancelled")
		}
	}

	a.printer.Step("Stopping BrainFrame and removing its images")
	if err := a.ensureTool(ctx, installPath); err != nil {
		return err
	}
	if err := c.Run(ctx, "down", "--rmi", "all"); err != nil {
		return err
	}

	if err := removeTree(installPath); err != nil {
		return err
	}
	if deleteData {
		if err := removeTree(dataPath); err != nil {
			return err
		}
	}

	a.printer.Success("BrainFrame has been uninstalled")
	if !deleteData {
		a.printer.Info("Data was kept in %s", dataPath)
	}
	return nil
}

func removeTree(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("failed to remove %s", path), err)
	}
	return nil
}
