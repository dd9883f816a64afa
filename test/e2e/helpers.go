package e2e

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeCompose 模拟 docker-compose：报告版本、记录参数、按环境变量退出
// "sleep" among the arguments blocks until SIGINT/SIGTERM, then exits 0.
const fakeCompose = `#!/bin/sh
if [ "$1" = "version" ]; then
  echo 1.27.4
  exit 0
fi
echo "$@" > "$(dirname "$0")/last-args"
case " $* " in
  *" sleep "*)
    trap 'exit 0' INT TERM
    sleep 10 >/dev/null 2>&1 &
    wait
    exit 0
    ;;
esac
exit ${FAKE_COMPOSE_STATUS:-0}
`

const descriptor = `version: "2.4"
services:
  core:
    image: aotuai/brainframe_core:0.29.1
`

// buildBinary 构建 brainframe 可执行文件并返回路径。
func buildBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "brainframe-bin")

	cmd := exec.Command("go", "build", "-o", binPath, "github.com/penwyp/brainframe-cli")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build binary: %v, output: %s", err, string(out))
	}
	return binPath
}

// TestHelper provides utilities for E2E tests
type TestHelper struct {
	t           *testing.T
	binPath     string
	InstallPath string
	DataPath    string
}

// NewTestHelper builds the binary and prepares empty install and data
// directories.
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{
		t:           t,
		binPath:     buildBinary(t),
		InstallPath: t.TempDir(),
		DataPath:    t.TempDir(),
	}
}

// Install 写入 compose 描述文件和假的 docker-compose
func (h *TestHelper) Install() {
	h.t.Helper()
	require.NoError(h.t, os.WriteFile(filepath.Join(h.InstallPath, "docker-compose.yml"), []byte(descriptor), 0o644))
	require.NoError(h.t, os.WriteFile(filepath.Join(h.InstallPath, "docker-compose"), []byte(fakeCompose), 0o755))
}

// LastComposeArgs returns the arguments of the last fake compose call.
func (h *TestHelper) LastComposeArgs() string {
	data, err := os.ReadFile(filepath.Join(h.InstallPath, "last-args"))
	require.NoError(h.t, err)
	return string(bytes.TrimSpace(data))
}

// Command prepares brainframe with the helper's paths in the environment.
func (h *TestHelper) Command(env map[string]string, args ...string) (*exec.Cmd, *bytes.Buffer) {
	cmd := exec.Command(h.binPath, args...)
	cmd.Env = append(os.Environ(),
		"BRAINFRAME_DEFAULTS_FILE=",
		"BRAINFRAME_STAGING=false",
		"BRAINFRAME_COMPOSE_VERSION=1.27.4",
		"BRAINFRAME_INSTALL_PATH="+h.InstallPath,
		"BRAINFRAME_DATA_PATH="+h.DataPath,
	)
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	return cmd, &out
}

// Run executes brainframe and returns its combined output and exit code.
func (h *TestHelper) Run(env map[string]string, args ...string) (string, int) {
	cmd, out := h.Command(env, args...)
	code := exitCode(h.t, cmd.Run())
	return out.String(), code
}

// RunAndSignal starts brainframe, waits for delay and delivers sig to it.
func (h *TestHelper) RunAndSignal(sig os.Signal, delay time.Duration, args ...string) (string, int) {
	cmd, out := h.Command(nil, args...)
	require.NoError(h.t, cmd.Start())
	time.Sleep(delay)
	require.NoError(h.t, cmd.Process.Signal(sig))
	code := exitCode(h.t, cmd.Wait())
	return out.String(), code
}

// SkipWithoutDocker 非 root 且不在 docker 组时 compose 命令会被拒绝
func SkipWithoutDocker(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("compose commands need root or docker group membership")
	}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "unexpected error: %v", err)
	return exitErr.ExitCode()
}
