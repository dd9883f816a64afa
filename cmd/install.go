package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/penwyp/brainframe-cli/internal/compose"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/permission"
	"github.com/penwyp/brainframe-cli/internal/provision"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type installOptions struct {
	installPath      string
	dataPath         string
	version          string
	installDocker    bool
	installCurl      bool
	addToGroup       bool
	addToDockerGroup bool
	start            bool
	noninteractive   bool
}

func newInstallCommand(a *app) *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install BrainFrame on this machine",
		Long: `Install BrainFrame on this machine.

Without flags the installer asks before every decision. Passing any flag
switches to noninteractive mode, where unset flags take their defaults.`,
		Args: cobra.NoArgs,
		RunE: a.action(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			return a.install(ctx, opts, a.interactive(cmd) && !opts.noninteractive)
		}),
	}

	cmd.Flags().StringVar(&opts.installPath, "install-path", "", "where BrainFrame's configuration is installed (default from BRAINFRAME_INSTALL_PATH)")
	cmd.Flags().StringVar(&opts.dataPath, "data-path", "", "where BrainFrame stores its data (default from BRAINFRAME_DATA_PATH)")
	cmd.Flags().StringVar(&opts.version, "version", compose.Latest, "BrainFrame version to install")
	cmd.Flags().BoolVar(&opts.installDocker, "install-docker", false, "install Docker when it is missing")
	cmd.Flags().BoolVar(&opts.installCurl, "install-curl", false, "install curl when it is missing")
	cmd.Flags().BoolVar(&opts.addToGroup, "add-to-group", false, "add the current user to the brainframe group")
	cmd.Flags().BoolVar(&opts.addToDockerGroup, "add-to-docker-group", false, "add the current user to the docker group")
	cmd.Flags().BoolVar(&opts.start, "start", false, "start BrainFrame once installed")
	cmd.Flags().BoolVar(&opts.noninteractive, "noninteractive", false, "never prompt; use flags and defaults")
	return cmd
}

func (a *app) install(ctx context.Context, opts installOptions, interactive bool) error {
	if err := a.guard.RequirePrivilege(); err != nil {
		return err
	}
	if interactive {
		a.printer.Banner("BrainFrame installer", "Press ctrl+c at any time to cancel.")
	}

	a.printer.Step("Checking dependencies")
	if err := a.host.Ensure(ctx, provision.Curl, a.confirmDependency(interactive, opts.installCurl)); err != nil {
		return err
	}
	if err := a.host.Ensure(ctx, provision.Docker, a.confirmDependency(interactive, opts.installDocker)); err != nil {
		return err
	}

	if err := a.offerGroup(ctx, permission.DockerGroupName, interactive, opts.addToDockerGroup,
		"Add your user to the docker group so Docker can be used without sudo?"); err != nil {
		return err
	}

	installPath, err := a.choosePath(interactive, "Where should BrainFrame be installed?",
		opts.installPath, a.settings.InstallPath.Value)
	if err != nil {
		return err
	}
	dataPath, err := a.choosePath(interactive, "Where should BrainFrame store its data?",
		opts.dataPath, a.settings.DataPath.Value)
	if err != nil {
		return err
	}
	// compose 描述文件通过该变量找到数据目录
	if err := os.Setenv(a.settings.DataPath.EnvVarName(), dataPath); err != nil {
		return errors.Wrap(errors.ErrTypeConfig, "unable to export the data path", err)
	}

	a.printer.Step("Preparing %s and %s", installPath, dataPath)
	for _, dir := range []string{installPath, dataPath} {
		if err := os.MkdirAll(dir, 0o775); err != nil {
			return errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("failed to create %s", dir), err)
		}
	}
	if err := a.guard.CreateGroup(ctx, permission.SharedGroupName, permission.SharedGroupID); err != nil {
		return err
	}
	if err := a.guard.GrantGroupAccess(installPath, dataPath); err != nil {
		return err
	}
	if err := a.offerGroup(ctx, permission.SharedGroupName, interactive, opts.addToGroup,
		"Add your user to the brainframe group so BrainFrame can be managed without sudo?"); err != nil {
		return err
	}

	a.printer.Step("Downloading BrainFrame")
	if err := a.ensureTool(ctx, installPath); err != nil {
		return err
	}
	c, err := a.compose(installPath)
	if err != nil {
		return err
	}
	v, err := c.ResolveVersion(ctx, a.releases, opts.version)
	if err != nil {
		return err
	}
	if err := c.Download(ctx, a.releases, v); err != nil {
		return err
	}
	a.logger.Debug("Installed compose descriptor", zap.Stringer("version", v), zap.String("path", c.DescriptorPath()))

	a.printer.Step("Pulling images")
	if err := c.Run(ctx, "pull"); err != nil {
		return err
	}

	start, err := a.decide(interactive, "Start BrainFrame now?", true, opts.start)
	if err != nil {
		return err
	}
	if start {
		if err := c.Run(ctx, "up", "-d"); err != nil {
			return err
		}
	}

	a.printer.Success("BrainFrame %s is installed in %s", v, installPath)
	if !start {
		a.printer.Info("Start BrainFrame with: brainframe compose up -d")
	}
	a.recommendExports(installPath, dataPath)
	return nil
}

// offerGroup 在用户尚未加入 name 组时按需加入
func (a *app) offerGroup(ctx context.Context, name string, interactive, flag bool, question string) error {
	status, err := a.guard.GroupStatus(name)
	if err != nil {
		return err
	}
	if status.Added {
		return nil
	}
	add, err := a.decide(interactive, question, true, flag)
	if err != nil || !add {
		return err
	}
	if err := a.guard.AddToGroup(ctx, name); err != nil {
		return err
	}
	a.printer.Warning("Log out and back in for the %s group membership to take effect", name)
	return nil
}

// choosePath 优先使用 flag，其次在交互模式下询问，最后使用配置值
func (a *app) choosePath(interactive bool, question, flag, def string) (string, error) {
	if flag != "" {
		return filepath.Clean(flag), nil
	}
	if !interactive {
		return def, nil
	}
	return a.prompter.Path(question, def)
}

// recommendExports 当选择的路径与当前配置不同时提示用户持久化环境变量
func (a *app) recommendExports(installPath, dataPath string) {
	var pairs [][2]string
	if installPath != a.settings.InstallPath.Value {
		pairs = append(pairs, [2]string{a.settings.InstallPath.EnvVarName(), installPath})
	}
	if dataPath != a.settings.DataPath.Value {
		pairs = append(pairs, [2]string{a.settings.DataPath.EnvVarName(), dataPath})
	}
	if len(pairs) == 0 {
		return
	}
	a.printer.Warning("A non-default location was chosen. Add these lines to your shell profile:")
	a.printer.Exports(pairs...)
}
