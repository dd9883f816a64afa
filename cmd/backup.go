package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/provision"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"github.com/spf13/cobra"
)

// backupTimeFormat 默认备份目录名
const backupTimeFormat = "2006-01-02_15-04-05"

// now is replaced in tests.
var now = time.Now

type backupOptions struct {
	destination    string
	installRsync   bool
	noninteractive bool
}

func newBackupCommand(a *app) *cobra.Command {
	var opts backupOptions

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Stop BrainFrame and copy its data directory",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			return a.backup(ctx, opts, a.interactive(cmd) && !opts.noninteractive)
		}),
	}

	cmd.Flags().StringVar(&opts.destination, "destination", "", "where to write the backup (default <data path>/backups/<timestamp>)")
	cmd.Flags().BoolVar(&opts.installRsync, "install-rsync", false, "install rsync when it is missing")
	cmd.Flags().BoolVar(&opts.noninteractive, "noninteractive", false, "never prompt; use flags and defaults")
	return cmd
}

func (a *app) backup(ctx context.Context, opts backupOptions, interactive bool) error {
	if err := a.host.Ensure(ctx, provision.Rsync, a.confirmDependency(interactive, opts.installRsync)); err != nil {
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

	stop, err := a.decide(interactive, "BrainFrame must be stopped before a backup. Stop it now?", true, true)
	if err != nil {
		return err
	}
	if !stop {
		return errors.New(errors.ErrTypeValidation, "backup cancelled; BrainFrame is still running")
	}

	a.printer.Step("Stopping BrainFrame")
	if err := a.ensureTool(ctx, installPath); err != nil {
		return err
	}
	if err := c.Run(ctx, "stop"); err != nil {
		return err
	}

	destination := opts.destination
	if destination == "" {
		destination = filepath.Join(dataPath, "backups", now().Format(backupTimeFormat))
	}
	if err := os.MkdirAll(destination, 0o775); err != nil {
		return errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("failed to create %s", destination), err)
	}

	a.printer.Step("Copying %s to %s", dataPath, destination)
	argv := []string{"rsync", "--archive", "--verbose", "--progress", "--exclude", "backups", dataPath, destination}
	if _, err := a.runner.Run(ctx, argv, runner.Options{ExitOnFailure: true}); err != nil {
		return err
	}

	a.printer.Success("Backup written to %s", destination)
	a.printer.Info("Start BrainFrame again with: brainframe compose up -d")
	return nil
}
