package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newComposeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compose [--debug] [args...]",
		Short: "Run docker-compose against the BrainFrame installation",
		Long: `Run docker-compose against the BrainFrame installation.

All arguments are passed through. "down" also removes volumes unless
--except-volumes is given. A leading --debug enables brainframe's own
debug output and is not passed on.`,
		DisableFlagParsing: true,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, args []string) error {
			args, _ = leadingDebug(args)
			installPath := a.settings.InstallPath.Value
			c, err := a.compose(installPath)
			if err != nil {
				return err
			}
			if err := c.AssertInstalled(); err != nil {
				return err
			}
			if err := a.ensureTool(ctx, installPath); err != nil {
				return err
			}
			return c.Run(ctx, args...)
		}),
	}
}

// leadingDebug strips --debug flags that precede the passed-through
// arguments and reports whether any were present.
func leadingDebug(args []string) ([]string, bool) {
	found := false
	for len(args) > 0 && args[0] == "--debug" {
		args = args[1:]
		found = true
	}
	return args, found
}
