package provision

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/logger"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"go.uber.org/zap"
)

// Dependency 主机上必须存在的可执行程序，以及可选的自动安装命令
type Dependency struct {
	Command string
	// Install is run step by step when the operator opts in.
	Install [][]string
}

// 安装流程依赖的主机程序
var (
	Docker = Dependency{
		Command: "docker",
		Install: [][]string{
			{"curl", "-fsSL", "https://get.docker.com", "-o", "/tmp/get-docker.sh"},
			{"sh", "/tmp/get-docker.sh"},
		},
	}
	Rsync = Dependency{
		Command: "rsync",
		Install: [][]string{{"apt-get", "install", "-y", "rsync"}},
	}
	Curl = Dependency{
		Command: "curl",
		Install: [][]string{{"apt-get", "install", "-y", "curl"}},
	}
)

// Confirm decides whether a missing dependency should be installed.
type Confirm func(dep Dependency) (bool, error)

// Installer 检查并按需安装主机依赖
type Installer struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
	logger   *zap.Logger
}

// NewInstaller 创建 Installer
func NewInstaller(r CommandRunner, l *zap.Logger) *Installer {
	return &Installer{
		runner:   r,
		lookPath: exec.LookPath,
		logger:   logger.OrNop(l),
	}
}

// Ensure 确保 dep 在 PATH 中；缺失时经 confirm 同意后安装
func (i *Installer) Ensure(ctx context.Context, dep Dependency, confirm Confirm) error {
	if path, err := i.lookPath(dep.Command); err == nil {
		i.logger.Debug("Dependency found", zap.String("command", dep.Command), zap.String("path", path))
		return nil
	}

	install := false
	if confirm != nil && len(dep.Install) > 0 {
		var err error
		if install, err = confirm(dep); err != nil {
			return err
		}
	}
	if !install {
		return missing(dep.Command)
	}

	for _, argv := range dep.Install {
		if _, err := i.runner.Run(ctx, argv, runner.Options{ExitOnFailure: true, AsRoot: true}); err != nil {
			return err
		}
	}

	if _, err := i.lookPath(dep.Command); err != nil {
		return missing(dep.Command)
	}
	return nil
}

// EnsureAll runs Ensure for each dependency in order, stopping at the
// first failure.
func (i *Installer) EnsureAll(ctx context.Context, deps []Dependency, confirm Confirm) error {
	for _, dep := range deps {
		if err := i.Ensure(ctx, dep, confirm); err != nil {
			return err
		}
	}
	return nil
}

func missing(command string) error {
	return errors.Wrap(errors.ErrTypeDependency,
		fmt.Sprintf("%s is not installed", command), errors.ErrMissingExecutable).
		WithSuggestion(fmt.Sprintf("Install %s manually, then run this command again", command))
}
