package cmd

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/permission"
	"github.com/penwyp/brainframe-cli/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersionString(t *testing.T) {
	orig := cliVersion
	defer func() { cliVersion = orig }()

	cliVersion = "1.2.3"
	assert.Equal(t, "brainframe version 1.2.3", GetVersionString())
}

func TestRoot_CommandTable(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"install", "update", "uninstall", "backup", "compose", "shell", "info"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
}

func TestRoot_ConfigErrorStopsCommand(t *testing.T) {
	h := newHarness(t, false)
	t.Setenv("BRAINFRAME_STAGING", "maybe")

	err := h.execute("info")
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeConfig, errors.GetType(err))
	assert.Nil(t, h.app, "dependencies must not be built")
}

func TestRoot_StagingWithoutCredentials(t *testing.T) {
	h := newHarness(t, false)
	h.writeDescriptor(t, "0.29.1")
	t.Setenv("BRAINFRAME_STAGING", "true")
	t.Setenv("BRAINFRAME_STAGING_USERNAME", "")
	require.NoError(t, os.Unsetenv("BRAINFRAME_STAGING_USERNAME"))
	t.Setenv("BRAINFRAME_STAGING_PASSWORD", "")
	require.NoError(t, os.Unsetenv("BRAINFRAME_STAGING_PASSWORD"))

	err := h.execute("compose", "ps")
	assert.True(t, errors.Is(err, errors.ErrStagingCredentials))
	assert.Empty(t, h.runner.calls)
}

func TestInteractiveMode(t *testing.T) {
	tests := []struct {
		name     string
		terminal bool
		args     []string
		expected bool
	}{
		{name: "terminal without flags", terminal: true, args: []string{"backup"}, expected: true},
		{name: "debug flag keeps prompts", terminal: true, args: []string{"--debug", "backup"}, expected: true},
		{name: "any other flag disables prompts", terminal: true, args: []string{"backup", "--destination", "/tmp/x"}},
		{name: "no terminal", args: []string{"backup"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.terminal)
			h.writeDescriptor(t, "0.29.1")
			h.prompter.answers["stopped"] = true
			if len(tt.args) > 1 && tt.args[1] == "--destination" {
				tt.args[2] = filepath.Join(t.TempDir(), "backup")
			}

			require.NoError(t, h.execute(tt.args...))
			asked := len(h.prompter.asked) > 0
			assert.Equal(t, tt.expected, asked)
		})
	}
}

func TestRoot_IdleInterruptWins(t *testing.T) {
	h := newHarness(t, false)
	h.writeDescriptor(t, "0.29.1")
	h.tools.hook = func(ctx context.Context) error {
		h.app.interrupt(syscall.SIGTERM)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}

	err := h.execute("compose", "ps")
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeInterrupted, errors.GetType(err))
	assert.Equal(t, 143, errors.ExitCode(err))
	assert.Empty(t, h.runner.calls)
}

func TestRoot_RepeatedIdleInterruptTerminates(t *testing.T) {
	h := newHarness(t, false)
	h.writeDescriptor(t, "0.29.1")

	var raised []syscall.Signal
	origRaise := raise
	t.Cleanup(func() { raise = origRaise })
	raise = func(sig syscall.Signal) error {
		raised = append(raised, sig)
		return nil
	}

	stopped := 0
	h.tools.hook = func(context.Context) error {
		h.app.stop = func() { stopped++ }
		// 流程忽略 ctx：第一次取消无效，第二次重新投递信号
		h.app.interrupt(syscall.SIGINT)
		assert.Empty(t, raised)
		h.app.interrupt(syscall.SIGINT)
		return nil
	}

	err := h.execute("compose", "ps")
	require.Error(t, err)
	assert.Equal(t, 130, errors.ExitCode(err))
	assert.Equal(t, []syscall.Signal{syscall.SIGINT}, raised)
	// once from interrupt, once from the action wrapper
	assert.Equal(t, 2, stopped)
}

func TestInfo(t *testing.T) {
	h := newHarness(t, false)

	t.Run("single field", func(t *testing.T) {
		h.out.Reset()
		require.NoError(t, h.execute("info", "install_path"))
		assert.Equal(t, h.installPath+"\n", h.out.String())
	})

	t.Run("table", func(t *testing.T) {
		h.out.Reset()
		require.NoError(t, h.execute("info"))
		assert.Contains(t, h.out.String(), "data_path")
		assert.Contains(t, h.out.String(), h.dataPath)
	})

	t.Run("unknown field", func(t *testing.T) {
		err := h.execute("info", "colour")
		require.Error(t, err)
		assert.Equal(t, errors.ErrTypeValidation, errors.GetType(err))
		assert.Contains(t, errors.GetSuggestion(err), "install_path")
	})
}

func TestCompose(t *testing.T) {
	t.Run("passes arguments through", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		require.NoError(t, h.execute("compose", "logs", "-f", "core"))
		require.Len(t, h.runner.calls, 1)
		assert.Equal(t, h.composeCall("logs", "-f", "core"), h.runner.calls[0])
		assert.True(t, h.runner.opts[0].ExitOnFailure)
		assert.Equal(t, []string{h.installPath}, h.tools.roots)
		assert.Equal(t, version.MustParse("1.27.4"), h.tools.required[0])
	})

	t.Run("down removes volumes", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		require.NoError(t, h.execute("compose", "down"))
		assert.Equal(t, h.composeCall("down", "--volumes"), h.runner.calls[0])
	})

	t.Run("leading debug flag is not passed on", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		require.NoError(t, h.execute("compose", "--debug", "ps"))
		assert.Equal(t, h.composeCall("ps"), h.runner.calls[0])
		assert.True(t, h.app.debug)
	})

	t.Run("later debug flag belongs to docker-compose", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		require.NoError(t, h.execute("compose", "logs", "--debug"))
		assert.Equal(t, h.composeCall("logs", "--debug"), h.runner.calls[0])
		assert.False(t, h.app.debug)
	})

	t.Run("not installed", func(t *testing.T) {
		h := newHarness(t, false)

		err := h.execute("compose", "ps")
		assert.True(t, errors.Is(err, errors.ErrNotInstalled))
		assert.Empty(t, h.runner.calls)
		assert.Empty(t, h.tools.roots)
	})

	t.Run("child failure keeps its status", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")
		h.runner.err = errors.ChildProcess("docker-compose ps", 3)

		err := h.execute("compose", "ps")
		assert.Equal(t, 3, errors.ExitCode(err))
	})
}

func TestUpdate(t *testing.T) {
	t.Run("upgrade to latest and restart", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.28.0")

		require.NoError(t, h.execute("update", "--restart"))
		assert.Equal(t, [][]string{
			h.composeCall("pull"),
			h.composeCall("down"),
			h.composeCall("up", "-d"),
		}, h.runner.calls)

		data, err := os.ReadFile(h.descriptor())
		require.NoError(t, err)
		assert.Contains(t, string(data), "brainframe_core:0.29.1")
		assert.Contains(t, h.out.String(), "from 0.28.0 to 0.29.1")
	})

	t.Run("same version needs force", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		err := h.execute("update")
		require.Error(t, err)
		assert.Equal(t, errors.ErrTypeValidation, errors.GetType(err))
		assert.Contains(t, errors.GetSuggestion(err), "--force")
		assert.Empty(t, h.runner.calls)

		require.NoError(t, h.execute("update", "--force"))
		assert.Equal(t, [][]string{h.composeCall("pull")}, h.runner.calls)
	})

	t.Run("downgrade needs force", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		err := h.execute("update", "--version", "0.28.0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "older")

		require.NoError(t, h.execute("update", "--version", "0.28.0", "--force"))
		assert.Contains(t, h.out.String(), "Downgrading")
	})

	t.Run("interactive restart prompt", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDescriptor(t, "0.28.0")
		h.prompter.answers["Restart"] = false

		require.NoError(t, h.execute("update"))
		assert.Equal(t, [][]string{h.composeCall("pull")}, h.runner.calls)
		assert.Len(t, h.prompter.asked, 1)
	})
}

func TestInstall(t *testing.T) {
	t.Run("requires root", func(t *testing.T) {
		h := newHarness(t, false)
		h.guard.root = false

		err := h.execute("install", "--noninteractive")
		assert.True(t, errors.Is(err, errors.ErrNotRoot))
		assert.Empty(t, h.host.checked)
	})

	t.Run("noninteractive with flags", func(t *testing.T) {
		h := newHarness(t, false)
		installPath := filepath.Join(t.TempDir(), "bf")
		dataPath := filepath.Join(t.TempDir(), "data")

		require.NoError(t, h.execute("install",
			"--install-path", installPath, "--data-path", dataPath,
			"--add-to-group", "--start"))

		assert.Equal(t, []string{"curl", "docker"}, h.host.checked)
		assert.DirExists(t, dataPath)
		assert.FileExists(t, filepath.Join(installPath, "docker-compose.yml"))
		assert.Equal(t, []string{"brainframe:1337"}, h.guard.created)
		assert.Equal(t, []string{permission.SharedGroupName}, h.guard.added)
		assert.Contains(t, h.guard.granted, []string{installPath, dataPath})
		assert.Equal(t, []string{installPath}, h.tools.roots)
		assert.Equal(t, dataPath, os.Getenv("BRAINFRAME_DATA_PATH"))

		binary := filepath.Join(installPath, "docker-compose")
		descriptor := filepath.Join(installPath, "docker-compose.yml")
		assert.Equal(t, [][]string{
			{binary, "--file", descriptor, "pull"},
			{binary, "--file", descriptor, "up", "-d"},
		}, h.runner.calls)

		out := h.out.String()
		assert.Contains(t, out, `export BRAINFRAME_INSTALL_PATH="`+installPath+`"`)
		assert.Contains(t, out, `export BRAINFRAME_DATA_PATH="`+dataPath+`"`)
	})

	t.Run("missing docker is not installed without consent", func(t *testing.T) {
		h := newHarness(t, false)
		h.host.missing["docker"] = true

		err := h.execute("install", "--noninteractive")
		assert.True(t, errors.Is(err, errors.ErrMissingExecutable))
		assert.Empty(t, h.runner.calls)
	})

	t.Run("interactive", func(t *testing.T) {
		h := newHarness(t, true)
		h.host.missing["docker"] = true
		h.prompter.answers["docker is not installed"] = true
		h.prompter.answers["docker group"] = true
		h.prompter.answers["brainframe group"] = false
		h.prompter.answers["Start BrainFrame"] = false

		require.NoError(t, h.execute("install"))
		assert.Equal(t, []string{permission.DockerGroupName}, h.guard.added)
		assert.Equal(t, [][]string{h.composeCall("pull")}, h.runner.calls)
		assert.Contains(t, h.out.String(), "brainframe compose up -d")
		assert.NotContains(t, h.out.String(), "export ")
	})

	t.Run("existing group membership is not offered", func(t *testing.T) {
		h := newHarness(t, true)
		h.guard.groups[permission.DockerGroupName] = permission.Membership{Added: true, Active: true}
		h.guard.groups[permission.SharedGroupName] = permission.Membership{Added: true}

		require.NoError(t, h.execute("install"))
		for _, q := range h.prompter.asked {
			assert.NotContains(t, q, "group")
		}
		assert.Empty(t, h.guard.added)
	})
}

func TestUninstall(t *testing.T) {
	t.Run("keeps data by default", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		require.NoError(t, h.execute("uninstall", "--noninteractive"))
		assert.Equal(t, [][]string{h.composeCall("down", "--rmi", "all", "--volumes")}, h.runner.calls)
		assert.NoDirExists(t, h.installPath)
		assert.DirExists(t, h.dataPath)
	})

	t.Run("deletes data on request", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		require.NoError(t, h.execute("uninstall", "--delete-data"))
		assert.NoDirExists(t, h.installPath)
		assert.NoDirExists(t, h.dataPath)
	})

	t.Run("interactive abort", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDescriptor(t, "0.29.1")
		h.prompter.answers["Continue"] = false

		err := h.execute("uninstall")
		require.Error(t, err)
		assert.Empty(t, h.runner.calls)
		assert.FileExists(t, h.descriptor())
	})

	t.Run("requires root", func(t *testing.T) {
		h := newHarness(t, false)
		h.guard.root = false

		err := h.execute("uninstall", "--noninteractive")
		assert.True(t, errors.Is(err, errors.ErrNotRoot))
	})
}

func TestBackup(t *testing.T) {
	origNow := now
	defer func() { now = origNow }()
	now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }

	t.Run("default destination", func(t *testing.T) {
		h := newHarness(t, false)
		h.writeDescriptor(t, "0.29.1")

		require.NoError(t, h.execute("backup", "--noninteractive"))
		dest := filepath.Join(h.dataPath, "backups", "2024-03-09_14-05-06")
		assert.DirExists(t, dest)
		assert.Equal(t, [][]string{
			h.composeCall("stop"),
			{"rsync", "--archive", "--verbose", "--progress", "--exclude", "backups", h.dataPath, dest},
		}, h.runner.calls)
		assert.Equal(t, []string{"rsync"}, h.host.checked)
	})

	t.Run("declining to stop aborts", func(t *testing.T) {
		h := newHarness(t, true)
		h.writeDescriptor(t, "0.29.1")
		h.prompter.answers["stopped"] = false

		err := h.execute("backup")
		require.Error(t, err)
		assert.Equal(t, errors.ErrTypeValidation, errors.GetType(err))
		assert.Empty(t, h.runner.calls)
	})

	t.Run("missing rsync", func(t *testing.T) {
		h := newHarness(t, false)
		h.host.missing["rsync"] = true

		err := h.execute("backup", "--noninteractive")
		assert.True(t, errors.Is(err, errors.ErrMissingExecutable))

		require.NoError(t, os.WriteFile(h.descriptor(), []byte("services: {}\n"), 0o644))
		require.NoError(t, h.execute("backup", "--install-rsync"))
	})
}

func TestShell(t *testing.T) {
	t.Run("mounts the working directory", func(t *testing.T) {
		h := newHarness(t, false)
		dir, err := os.Getwd()
		require.NoError(t, err)

		require.NoError(t, h.execute("shell"))
		require.Len(t, h.runner.calls, 1)
		assert.Equal(t, []string{
			"docker", "run", "-it", "--rm",
			"-v", dir + ":/host",
			"-w", "/host",
			"-e", "HOST_USER=operator",
			"aotuai/brainframe-cli-20.04:0.3.2", "bash",
		}, h.runner.calls[0])
		assert.True(t, h.runner.opts[0].ExitOnFailure)
	})

	t.Run("needs docker access", func(t *testing.T) {
		h := newHarness(t, false)
		h.guard.dockerErr = errors.New(errors.ErrTypePermission, "not in the docker group")

		err := h.execute("shell")
		assert.Equal(t, errors.ErrTypePermission, errors.GetType(err))
		assert.Empty(t, h.runner.calls)
	})
}
