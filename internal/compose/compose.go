package compose

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/fatih/color"
	"github.com/penwyp/brainframe-cli/internal/config"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/logger"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"go.uber.org/zap"
)

const (
	// DescriptorName 安装目录中的 compose 描述文件
	DescriptorName = "docker-compose.yml"
	// OverrideName is picked up next to the descriptor when present.
	OverrideName = "docker-compose.override.yml"
	// EnvFileName is passed with --env-file when present.
	EnvFileName = ".env"

	exceptVolumesFlag = "--except-volumes"
	exceptVolumesHelp = `    --except-volumes        Do not add --volumes to "brainframe compose down"`
)

// CommandRunner 命令执行器接口
type CommandRunner interface {
	Run(ctx context.Context, argv []string, opts runner.Options) (runner.Result, error)
}

// Guard 权限检查接口
type Guard interface {
	RequireDocker() error
	IsRoot() bool
	GrantGroupAccess(paths ...string) error
}

// Config 描述一次安装
type Config struct {
	InstallPath string
	// Binary is the compose command prefix, usually the provisioned
	// docker-compose under InstallPath.
	Binary      []string
	Origin      string
	Credentials *config.Credentials
}

// Compose 以安装目录为上下文执行 compose 命令
type Compose struct {
	cfg    Config
	runner CommandRunner
	guard  Guard
	stderr io.Writer
	logger *zap.Logger
}

// Option configures a Compose.
type Option func(*Compose)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Compose) {
		c.logger = l
	}
}

// WithStderr sets where supplementary help is printed.
func WithStderr(w io.Writer) Option {
	return func(c *Compose) {
		c.stderr = w
	}
}

// New 创建 Compose
func New(cfg Config, r CommandRunner, g Guard, opts ...Option) *Compose {
	c := &Compose{
		cfg:    cfg,
		runner: r,
		guard:  g,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNop(c.logger)
	return c
}

// DescriptorPath returns the path of the compose descriptor.
func (c *Compose) DescriptorPath() string {
	return filepath.Join(c.cfg.InstallPath, DescriptorName)
}

// AssertInstalled 检查安装目录中是否存在 compose 描述文件
func (c *Compose) AssertInstalled() error {
	if info, err := os.Stat(c.DescriptorPath()); err == nil && info.Mode().IsRegular() {
		return nil
	}
	return errors.Wrap(errors.ErrTypeValidation,
		fmt.Sprintf("no installation found in %s", c.cfg.InstallPath), errors.ErrNotInstalled).
		WithSuggestion(fmt.Sprintf("Install BrainFrame first, or set %s to the install location",
			config.EnvVarName("install_path")))
}

// Command 组装完整的 compose 命令行
// The override and .env files are added when they exist. "down" removes
// volumes unless --except-volumes is given; that flag is consumed here. The
// returned help text is printed after the command when --help was asked for
// alongside "down".
func (c *Compose) Command(args []string) (argv []string, extraHelp string) {
	argv = append(slices.Clone(c.cfg.Binary), "--file", c.DescriptorPath())

	if override := filepath.Join(c.cfg.InstallPath, OverrideName); isFile(override) {
		argv = append(argv, "--file", override)
	}
	if env := filepath.Join(c.cfg.InstallPath, EnvFileName); isFile(env) {
		argv = append(argv, "--env-file", env)
	}

	args = slices.Clone(args)
	if slices.Contains(args, "down") {
		if i := slices.Index(args, exceptVolumesFlag); i >= 0 {
			args = slices.Delete(args, i, i+1)
		} else if !slices.Contains(args, "--volumes") {
			args = append(args, "--volumes")
		}
		if slices.Contains(args, "--help") {
			extraHelp = exceptVolumesHelp
		}
	}

	return append(argv, args...), extraHelp
}

// Run 执行 compose 子命令；非零退出码原样传递
func (c *Compose) Run(ctx context.Context, args ...string) error {
	if err := c.guard.RequireDocker(); err != nil {
		return err
	}

	argv, extraHelp := c.Command(args)
	if _, err := c.runner.Run(ctx, argv, runner.Options{ExitOnFailure: true}); err != nil {
		return err
	}

	if extraHelp != "" {
		_, _ = fmt.Fprintln(c.stderr, color.MagentaString(extraHelp))
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
