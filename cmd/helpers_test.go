package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/penwyp/brainframe-cli/internal/config"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/permission"
	"github.com/penwyp/brainframe-cli/internal/provision"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"github.com/penwyp/brainframe-cli/internal/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// ---------------- Mock 实现 ----------------

type fakeRunner struct {
	calls [][]string
	opts  []runner.Options
	err   error
}

func (f *fakeRunner) Run(_ context.Context, argv []string, opts runner.Options) (runner.Result, error) {
	f.calls = append(f.calls, argv)
	f.opts = append(f.opts, opts)
	return runner.Result{}, f.err
}

func (f *fakeRunner) Output(_ context.Context, argv []string) (string, error) {
	f.calls = append(f.calls, argv)
	return "", nil
}

type fakeGuard struct {
	root      bool
	dockerErr error
	groups    map[string]permission.Membership
	created   []string
	added     []string
	granted   [][]string
}

func (f *fakeGuard) IsRoot() bool { return f.root }

func (f *fakeGuard) RequirePrivilege() error {
	if !f.root {
		return errors.ErrNotRoot
	}
	return nil
}

func (f *fakeGuard) RequireDocker() error { return f.dockerErr }

func (f *fakeGuard) CurrentUser() (string, error) { return "operator", nil }

func (f *fakeGuard) GroupStatus(name string) (permission.Membership, error) {
	return f.groups[name], nil
}

func (f *fakeGuard) CreateGroup(_ context.Context, name string, gid int) error {
	f.created = append(f.created, fmt.Sprintf("%s:%d", name, gid))
	return nil
}

func (f *fakeGuard) AddToGroup(_ context.Context, name string) error {
	f.added = append(f.added, name)
	return nil
}

func (f *fakeGuard) GrantGroupAccess(paths ...string) error {
	f.granted = append(f.granted, paths)
	return nil
}

type fakeTools struct {
	roots    []string
	required []version.Version
	hook     func(ctx context.Context) error
}

func (f *fakeTools) Ensure(ctx context.Context, installRoot string, required version.Version) (provision.Outcome, error) {
	f.roots = append(f.roots, installRoot)
	f.required = append(f.required, required)
	if f.hook != nil {
		return provision.Current, f.hook(ctx)
	}
	return provision.Current, nil
}

type fakeHost struct {
	missing map[string]bool
	checked []string
}

func (f *fakeHost) Ensure(_ context.Context, dep provision.Dependency, confirm provision.Confirm) error {
	f.checked = append(f.checked, dep.Command)
	if !f.missing[dep.Command] {
		return nil
	}
	install, err := confirm(dep)
	if err != nil {
		return err
	}
	if !install {
		return errors.Wrap(errors.ErrTypeDependency, dep.Command+" is not installed", errors.ErrMissingExecutable)
	}
	return nil
}

func (f *fakeHost) EnsureAll(ctx context.Context, deps []provision.Dependency, confirm provision.Confirm) error {
	for _, dep := range deps {
		if err := f.Ensure(ctx, dep, confirm); err != nil {
			return err
		}
	}
	return nil
}

// fakePrompter answers by question substring; unknown questions get false.
type fakePrompter struct {
	answers map[string]bool
	paths   map[string]string
	asked   []string
}

func (f *fakePrompter) Confirm(question string, _ bool) (bool, error) {
	f.asked = append(f.asked, question)
	for key, answer := range f.answers {
		if strings.Contains(question, key) {
			return answer, nil
		}
	}
	return false, nil
}

func (f *fakePrompter) Path(question, def string) (string, error) {
	f.asked = append(f.asked, question)
	for key, path := range f.paths {
		if strings.Contains(question, key) {
			return path, nil
		}
	}
	return def, nil
}

// ------------------------------------------------

const descriptorTemplate = `version: "2.4"
services:
  core:
    image: aotuai/brainframe_core:%s
`

type harness struct {
	installPath string
	dataPath    string
	server      *httptest.Server

	runner   *fakeRunner
	guard    *fakeGuard
	tools    *fakeTools
	host     *fakeHost
	prompter *fakePrompter
	app      *app
	out      bytes.Buffer
}

// newHarness 注入 mock 依赖并指向临时目录与本地发布源
func newHarness(t *testing.T, terminal bool) *harness {
	t.Helper()

	h := &harness{
		installPath: t.TempDir(),
		dataPath:    t.TempDir(),
		runner:      &fakeRunner{},
		guard:       &fakeGuard{root: true, groups: map[string]permission.Membership{}},
		tools:       &fakeTools{},
		host:        &fakeHost{missing: map[string]bool{}},
		prompter:    &fakePrompter{answers: map[string]bool{}, paths: map[string]string{}},
	}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/releases/brainframe/latest":
			_, _ = w.Write([]byte("v0.29.1\n"))
		case "/releases/brainframe/v0.29.1/docker-compose.yml":
			_, _ = fmt.Fprintf(w, descriptorTemplate, "0.29.1")
		case "/releases/brainframe/v0.28.0/docker-compose.yml":
			_, _ = fmt.Fprintf(w, descriptorTemplate, "0.28.0")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(h.server.Close)

	t.Setenv(config.DefaultsFileEnvVar, "")
	t.Setenv("BRAINFRAME_INSTALL_PATH", h.installPath)
	t.Setenv("BRAINFRAME_DATA_PATH", h.dataPath)
	t.Setenv("BRAINFRAME_STAGING", "false")
	t.Setenv("BRAINFRAME_RELEASE_ORIGIN", h.server.URL)
	t.Setenv("BRAINFRAME_COMPOSE_VERSION", "1.27.4")

	origProvider, origTerminal := dependencyProvider, terminalCheck
	t.Cleanup(func() {
		dependencyProvider, terminalCheck = origProvider, origTerminal
	})
	dependencyProvider = func(_ *cobra.Command, a *app) (dependencies, error) {
		h.app = a
		return dependencies{
			runner:   h.runner,
			guard:    h.guard,
			releases: version.NewClient(),
			tools:    h.tools,
			host:     h.host,
			prompter: h.prompter,
		}, nil
	}
	terminalCheck = func() bool { return terminal }
	return h
}

func (h *harness) execute(args ...string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&h.out)
	root.SetErr(&h.out)
	root.SetIn(strings.NewReader(""))
	return root.ExecuteContext(context.Background())
}

func (h *harness) writeDescriptor(t *testing.T, tag string) {
	t.Helper()
	body := fmt.Sprintf(descriptorTemplate, tag)
	require.NoError(t, os.WriteFile(filepath.Join(h.installPath, "docker-compose.yml"), []byte(body), 0o644))
}

func (h *harness) binary() string {
	return filepath.Join(h.installPath, "docker-compose")
}

func (h *harness) descriptor() string {
	return filepath.Join(h.installPath, "docker-compose.yml")
}

// composeCall 组装期望的 compose 命令行
func (h *harness) composeCall(args ...string) []string {
	return append([]string{h.binary(), "--file", h.descriptor()}, args...)
}
