package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/penwyp/brainframe-cli/internal/compose"
	"github.com/penwyp/brainframe-cli/internal/config"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/logger"
	"github.com/penwyp/brainframe-cli/internal/permission"
	"github.com/penwyp/brainframe-cli/internal/provision"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"github.com/penwyp/brainframe-cli/internal/version"
	"github.com/penwyp/brainframe-cli/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// cliVersion holds the current version of brainframe
// This will be set at build time via ldflags
var cliVersion = "dev"

// GetVersionString returns a formatted version string
func GetVersionString() string {
	return fmt.Sprintf("brainframe version %s", cliVersion)
}

// 将关键依赖抽象为接口以便测试时注入 Mock。
// 若在运行时未被替换，则使用默认实现。
var (
	settingsLoader     func() (*config.Settings, error)                        = config.LoadBundled
	dependencyProvider func(cmd *cobra.Command, a *app) (dependencies, error) = defaultDependencies
	terminalCheck      func() bool                                             = func() bool { return ui.IsInteractive(os.Stdin) }
	appLogger          *zap.Logger                                             // 全局日志记录器
)

// raise 重新投递信号，此时默认处理会终止进程
var raise = func(sig syscall.Signal) error { return syscall.Kill(os.Getpid(), sig) }

type commandRunner interface {
	Run(ctx context.Context, argv []string, opts runner.Options) (runner.Result, error)
	Output(ctx context.Context, argv []string) (string, error)
}

type privilegeGuard interface {
	IsRoot() bool
	RequirePrivilege() error
	RequireDocker() error
	CurrentUser() (string, error)
	GroupStatus(name string) (permission.Membership, error)
	CreateGroup(ctx context.Context, name string, gid int) error
	AddToGroup(ctx context.Context, name string) error
	GrantGroupAccess(paths ...string) error
}

type releaseSource interface {
	compose.ReleaseSource
	provision.Fetcher
}

type toolProvisioner interface {
	Ensure(ctx context.Context, installRoot string, required version.Version) (provision.Outcome, error)
}

type hostInstaller interface {
	Ensure(ctx context.Context, dep provision.Dependency, confirm provision.Confirm) error
	EnsureAll(ctx context.Context, deps []provision.Dependency, confirm provision.Confirm) error
}

// dependencies 命令执行期间共享的外部协作者
type dependencies struct {
	runner   commandRunner
	guard    privilegeGuard
	releases releaseSource
	tools    toolProvisioner
	host     hostInstaller
	prompter ui.Prompter
	// stop uninstalls the signal handler.
	stop func()
}

// app 一次命令执行的上下文：配置、输出以及依赖
type app struct {
	dependencies

	debug    bool
	settings *config.Settings
	logger   *zap.Logger
	printer  *ui.Printer
	stderr   io.Writer
	terminal bool
	cancel   context.CancelCauseFunc
	// interrupted is set by the first idle signal.
	interrupted atomic.Bool
}

func defaultDependencies(cmd *cobra.Command, a *app) (dependencies, error) {
	r := runner.New(runner.WithLogger(a.logger), runner.WithEcho(cmd.OutOrStdout()))
	client := version.NewClient(version.WithLogger(a.logger))
	tools := provision.NewProvisioner(r, client, a.settings.ComposeDownloadURL.Value, provision.WithLogger(a.logger))

	return dependencies{
		runner:   r,
		guard:    permission.NewGuard(r, a.logger),
		releases: client,
		tools:    tools,
		host:     provision.NewInstaller(r, a.logger),
		prompter: ui.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
		stop:     r.Notify(a.interrupt),
	}, nil
}

// setup 在任何子命令运行之前解析配置并构建依赖
func (a *app) setup(cmd *cobra.Command) error {
	a.logger = logger.New(a.debug)
	appLogger = a.logger

	ctx, cancel := context.WithCancelCause(cmd.Context())
	cmd.SetContext(ctx)
	a.cancel = cancel

	settings, err := settingsLoader()
	if err != nil {
		return err
	}
	if err := settings.ExportDataPath(); err != nil {
		return errors.Wrap(errors.ErrTypeConfig, "unable to export the data path", err)
	}
	a.settings = settings
	a.printer = ui.NewPrinter(cmd.OutOrStdout())
	a.stderr = cmd.ErrOrStderr()
	a.terminal = terminalCheck()

	deps, err := dependencyProvider(cmd, a)
	if err != nil {
		return err
	}
	a.dependencies = deps
	return nil
}

// interrupt is called for signals that arrive while no command runs.
// The first one cancels the command context. A second one means the flow
// is stuck in a call that ignores ctx, so the handler is removed and the
// signal delivered again to terminate the process.
func (a *app) interrupt(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		s = syscall.SIGINT
	}
	if a.interrupted.Swap(true) {
		a.logger.Debug("Interrupted again, terminating", zap.Stringer("signal", sig))
		if a.stop != nil {
			a.stop()
		}
		if err := raise(s); err != nil {
			a.logger.Debug("Failed to re-raise signal", zap.Error(err))
		}
		return
	}
	a.logger.Debug("Interrupted while idle", zap.Stringer("signal", sig))
	a.cancel(errors.Interrupted("", 128+int(s)))
}

func (a *app) close() {
	if a.stop != nil {
		a.stop()
	}
	if a.cancel != nil {
		a.cancel(nil)
	}
}

// action 包装子命令：统一清理，并让空闲时的中断优先于命令自身的错误
func (a *app) action(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		ctx := cmd.Context()
		err := fn(ctx, cmd, args)
		if cause := context.Cause(ctx); errors.GetType(cause) == errors.ErrTypeInterrupted {
			return cause
		}
		return err
	}
}

// interactive reports whether cmd should prompt. Giving any flag other
// than --debug, or running without a terminal, selects noninteractive mode.
func (a *app) interactive(cmd *cobra.Command) bool {
	if !a.terminal {
		return false
	}
	flagged := false
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name != "debug" {
			flagged = true
		}
	})
	return !flagged
}

func (a *app) credentials() (*config.Credentials, error) {
	return a.settings.StagingCredentials()
}

// compose 返回以 installPath 为上下文的 compose 封装
func (a *app) compose(installPath string) (*compose.Compose, error) {
	creds, err := a.credentials()
	if err != nil {
		return nil, err
	}
	return compose.New(compose.Config{
		InstallPath: installPath,
		Binary:      []string{provision.Path(installPath)},
		Origin:      a.settings.Origin(),
		Credentials: creds,
	}, a.runner, a.guard, compose.WithLogger(a.logger), compose.WithStderr(a.stderr)), nil
}

// ensureTool 保证安装目录下的 docker-compose 满足配置要求的版本
func (a *app) ensureTool(ctx context.Context, installPath string) error {
	required, err := version.Parse(a.settings.ComposeVersion.Value)
	if err != nil {
		return errors.Wrap(errors.ErrTypeConfig,
			fmt.Sprintf("invalid %s", a.settings.ComposeVersion.EnvVarName()), err)
	}
	outcome, err := a.tools.Ensure(ctx, installPath, required)
	if err != nil {
		return err
	}
	a.logger.Debug("Compose tool ready", zap.Stringer("outcome", outcome))
	return nil
}

// confirmDependency 构造依赖安装确认函数：交互模式下询问，否则采用 flag
func (a *app) confirmDependency(interactive, flag bool) provision.Confirm {
	return func(dep provision.Dependency) (bool, error) {
		if !interactive {
			return flag, nil
		}
		return a.prompter.Confirm(fmt.Sprintf("%s is not installed. Install it now?", dep.Command), true)
	}
}

// decide returns flag in noninteractive mode and asks question otherwise.
func (a *app) decide(interactive bool, question string, def, flag bool) (bool, error) {
	if !interactive {
		return flag, nil
	}
	return a.prompter.Confirm(question, def)
}

// NewRootCommand 构建 brainframe 根命令及其子命令表
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "brainframe",
		Short:         "Install and manage a BrainFrame deployment",
		Version:       cliVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 透传命令不解析 flag，开头的 --debug 需要手动识别
			if cmd.DisableFlagParsing {
				if _, debug := leadingDebug(args); debug {
					a.debug = true
				}
			}
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate(GetVersionString() + "\n")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug output for troubleshooting")

	for _, build := range []func(*app) *cobra.Command{
		newInstallCommand,
		newUpdateCommand,
		newUninstallCommand,
		newBackupCommand,
		newComposeCommand,
		newShellCommand,
		newInfoCommand,
	} {
		root.AddCommand(build(a))
	}
	return root
}

// Execute 执行根命令；返回的错误交给 main 决定退出码
func Execute(ctx context.Context) error { return NewRootCommand().ExecuteContext(ctx) }
