package cmd

import (
	"context"

	"github.com/penwyp/brainframe-cli/internal/compose"
	"github.com/penwyp/brainframe-cli/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type updateOptions struct {
	version        string
	force          bool
	restart        bool
	noninteractive bool
}

func newUpdateCommand(a *app) *cobra.Command {
	var opts updateOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update an existing BrainFrame installation",
		Args:  cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			return a.update(ctx, opts, a.interactive(cmd) && !opts.noninteractive)
		}),
	}

	cmd.Flags().StringVar(&opts.version, "version", compose.Latest, "BrainFrame version to update to")
	cmd.Flags().BoolVar(&opts.force, "force", false, "reinstall the same version or allow a downgrade")
	cmd.Flags().BoolVar(&opts.restart, "restart", false, "restart BrainFrame after updating")
	cmd.Flags().BoolVar(&opts.noninteractive, "noninteractive", false, "never prompt; use flags and defaults")
	return cmd
}

func (a *app) update(ctx context.Context, opts updateOptions, interactive bool) error {
	installPath := a.settings.InstallPath.Value
	c, err := a.compose(installPath)
	if err != nil {
		return err
	}
	if err := c.AssertInstalled(); err != nil {
		return err
	}

	existing, err := c.InstalledVersion()
	if err != nil {
		return err
	}
	requested, err := c.ResolveVersion(ctx, a.releases, opts.version)
	if err != nil {
		return err
	}
	change, err := version.Check(existing, requested, opts.force)
	if err != nil {
		return err
	}
	a.logger.Debug("Update classified",
		zap.Stringer("installed", existing), zap.Stringer("requested", requested), zap.Stringer("change", change))
	switch change {
	case version.Same:
		a.printer.Warning("Reinstalling version %s", requested)
	case version.Downgrade:
		a.printer.Warning("Downgrading from %s to %s", existing, requested)
	}

	a.printer.Step("Downloading BrainFrame %s", requested)
	if err := a.ensureTool(ctx, installPath); err != nil {
		return err
	}
	if err := c.Download(ctx, a.releases, requested); err != nil {
		return err
	}

	a.printer.Step("Pulling images")
	if err := c.Run(ctx, "pull"); err != nil {
		return err
	}

	restart, err := a.decide(interactive, "Restart BrainFrame now to use the new version?", true, opts.restart)
	if err != nil {
		return err
	}
	if restart {
		if err := c.Run(ctx, "down", "--except-volumes"); err != nil {
			return err
		}
		if err := c.Run(ctx, "up", "-d"); err != nil {
			return err
		}
	}

	a.printer.Success("Updated BrainFrame from %s to %s", existing, requested)
	if !restart {
		a.printer.Info("Restart BrainFrame to use the new version")
	}
	return nil
}
