package runner

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/logger"
	"go.uber.org/zap"
)

// ErrProcessActive is the panic value when a command is started while
// another one is still running. All commands in this CLI are serial, so
// this is a programming error.
var ErrProcessActive = stderrors.New("runner: a process is already active")

// Options 控制单次命令执行
type Options struct {
	// Quiet suppresses echoing the command line.
	Quiet bool
	// ExitOnFailure turns a non-zero exit into a ChildProcess error
	// carrying the child's status.
	ExitOnFailure bool
	// AsRoot prefixes the command with sudo when not already root.
	AsRoot bool
	Dir    string
	// Env is appended to the current environment.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Result 命令执行结果
type Result struct {
	ExitCode    int
	Interrupted bool
	Signal      os.Signal
}

// Runner 串行执行外部命令，并把中断信号转发给正在运行的子进程
type Runner struct {
	mu          sync.Mutex
	active      *os.Process
	interrupted os.Signal

	echo   io.Writer
	logger *zap.Logger
	euid   func() int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithEcho sets where command lines are echoed. Defaults to stdout.
func WithEcho(w io.Writer) Option {
	return func(r *Runner) {
		r.echo = w
	}
}

// New 创建 Runner
func New(opts ...Option) *Runner {
	r := &Runner{
		echo: os.Stdout,
		euid: os.Geteuid,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.OrNop(r.logger)
	return r
}

// Run 启动 argv 并阻塞直到其退出
//
// Output is streamed straight to the configured writers. An interrupted
// command yields an Interrupted error even if the child also exited
// non-zero. An executable that cannot be found yields a Dependency error.
// Run panics on an empty argv or when another command is active.
func (r *Runner) Run(ctx context.Context, argv []string, opts Options) (Result, error) {
	if len(argv) == 0 {
		panic("runner: empty command line")
	}

	argv = r.command(argv, opts)
	cmdline := FormatCommand(argv)
	if !opts.Quiet {
		_, _ = fmt.Fprintln(r.echo, color.MagentaString(cmdline))
	}
	r.logger.Debug("Running command", zap.Strings("argv", argv))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = valueOr[io.Reader](opts.Stdin, os.Stdin)
	cmd.Stdout = valueOr[io.Writer](opts.Stdout, os.Stdout)
	cmd.Stderr = valueOr[io.Writer](opts.Stderr, os.Stderr)

	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		panic(ErrProcessActive)
	}
	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		return Result{ExitCode: -1}, startError(argv[0], err)
	}
	r.active = cmd.Process
	r.interrupted = nil
	r.mu.Unlock()

	waitErr := cmd.Wait()

	r.mu.Lock()
	sig := r.interrupted
	r.active, r.interrupted = nil, nil
	r.mu.Unlock()

	res := Result{}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case stderrors.As(waitErr, &exitErr):
		res.ExitCode = exitStatus(exitErr)
	default:
		res.ExitCode = -1
		if sig == nil {
			return res, errors.Wrap(errors.ErrTypeChildProcess,
				fmt.Sprintf("failed waiting for %q", cmdline), waitErr)
		}
	}

	if sig != nil {
		res.Interrupted, res.Signal = true, sig
		r.logger.Debug("Command interrupted", zap.String("command", cmdline), zap.Stringer("signal", sig))
		return res, errors.Interrupted(cmdline, 128+signalNumber(sig))
	}

	r.logger.Debug("Command finished", zap.String("command", cmdline), zap.Int("exit_code", res.ExitCode))
	if res.ExitCode != 0 && opts.ExitOnFailure {
		return res, errors.ChildProcess(cmdline, res.ExitCode)
	}
	return res, nil
}

// Output runs argv quietly and returns the first line of its stdout with
// surrounding whitespace removed. A non-zero exit is an error.
func (r *Runner) Output(ctx context.Context, argv []string) (string, error) {
	var stdout, stderr bytes.Buffer
	_, err := r.Run(ctx, argv, Options{
		Quiet:         true,
		ExitOnFailure: true,
		Stdin:         bytes.NewReader(nil),
		Stdout:        &stdout,
		Stderr:        &stderr,
	})
	if err != nil {
		if stderr.Len() > 0 {
			r.logger.Debug("Command stderr", zap.String("stderr", stderr.String()))
		}
		return "", err
	}

	line, _, _ := strings.Cut(stdout.String(), "\n")
	return strings.TrimSpace(line), nil
}

// Forward 将 sig 转发给当前子进程
// It returns false, signalling nothing, when no command is active. A
// forwarded signal marks the running command as interrupted.
func (r *Runner) Forward(sig os.Signal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return false
	}
	r.interrupted = sig
	if err := r.active.Signal(sig); err != nil {
		// the child may already have exited; it is reaped by Run
		r.logger.Debug("Failed to forward signal", zap.Stringer("signal", sig), zap.Error(err))
	}
	return true
}

// Active reports whether a command is currently running.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// command applies the privilege-escalation prefix.
func (r *Runner) command(argv []string, opts Options) []string {
	if opts.AsRoot && r.euid() != 0 {
		return append([]string{"sudo"}, argv...)
	}
	return argv
}

// FormatCommand renders argv for display, quoting arguments with spaces.
func FormatCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n'\"") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}

func startError(name string, err error) error {
	if stderrors.Is(err, exec.ErrNotFound) || stderrors.Is(err, os.ErrNotExist) {
		return errors.Wrap(errors.ErrTypeDependency,
			fmt.Sprintf("cannot run %s (%v)", name, err), errors.ErrMissingExecutable).
			WithSuggestion(fmt.Sprintf("Install %s and make sure it is on your PATH", name))
	}
	return errors.Wrap(errors.ErrTypeDependency, fmt.Sprintf("failed to start %s", name), err)
}

// exitStatus maps a signal death to the shell convention 128+signal.
func exitStatus(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}

func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return int(syscall.SIGINT)
}

func valueOr[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
