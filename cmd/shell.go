package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"github.com/spf13/cobra"
)

// shellImage 提供 BrainFrame 工具链的容器镜像
const shellImage = "aotuai/brainframe-cli-20.04:0.3.2"

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open a shell in a container with the BrainFrame tools",
		Long: `Open a shell in a container with the BrainFrame tools.

The current directory is mounted at /host inside the container.`,
		Args: cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			if err := a.guard.RequireDocker(); err != nil {
				return err
			}
			user, err := a.guard.CurrentUser()
			if err != nil {
				return err
			}
			dir, err := os.Getwd()
			if err != nil {
				return errors.Wrap(errors.ErrTypeValidation, "unable to determine the current directory", err)
			}

			_, err = a.runner.Run(ctx, []string{
				"docker", "run", "-it", "--rm",
				"-v", fmt.Sprintf("%s:/host", dir),
				"-w", "/host",
				"-e", "HOST_USER=" + user,
				shellImage, "bash",
			}, runner.Options{ExitOnFailure: true})
			return err
		}),
	}
}
