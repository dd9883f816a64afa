package permission

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/user"
	"slices"
	"strconv"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/logger"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	// SharedGroupName 主机与容器共享的用户组
	SharedGroupName = "brainframe"
	// SharedGroupID is fixed so the host and the containers agree on it.
	SharedGroupID = 1337
	// DockerGroupName grants access to the docker daemon socket.
	DockerGroupName = "docker"
)

// CommandRunner 命令执行器接口
type CommandRunner interface {
	Run(ctx context.Context, argv []string, opts runner.Options) (runner.Result, error)
}

// Membership 用户组成员关系
// Added means the group database lists the user. Active means the current
// session already carries the group; a freshly added user needs to log in
// again before that happens.
type Membership struct {
	Added  bool
	Active bool
}

// Guard 权限检查与用户组管理
type Guard struct {
	runner CommandRunner
	logger *zap.Logger

	euid          func() int
	getenv        func(string) string
	lookupGroup   func(name string) (*user.Group, error)
	userGroupIDs  func(username string) ([]string, error)
	sessionGroups func() ([]int, error)
	chown         func(path string, uid, gid int) error
	chmod         func(path string, mode os.FileMode) error
}

// NewGuard 创建 Guard
func NewGuard(r CommandRunner, l *zap.Logger) *Guard {
	return &Guard{
		runner:        r,
		logger:        logger.OrNop(l),
		euid:          os.Geteuid,
		getenv:        os.Getenv,
		lookupGroup:   user.LookupGroup,
		userGroupIDs:  userGroupIDs,
		sessionGroups: currentSessionGroups,
		chown:         unix.Chown,
		chmod:         os.Chmod,
	}
}

// IsRoot reports whether the process runs with superuser privileges.
func (g *Guard) IsRoot() bool {
	return g.euid() == 0
}

// RequirePrivilege 在任何副作用之前检查 root 权限
func (g *Guard) RequirePrivilege() error {
	if !g.IsRoot() {
		return errors.ErrNotRoot
	}
	return nil
}

// CurrentUser returns the user who invoked the CLI, looking through sudo.
func (g *Guard) CurrentUser() (string, error) {
	if name := g.getenv("SUDO_USER"); name != "" {
		return name, nil
	}
	if name := g.getenv("LOGNAME"); name != "" {
		return name, nil
	}
	return "", errors.New(errors.ErrTypePermission, "unable to determine the current user").
		WithSuggestion("Set LOGNAME or run the command through sudo")
}

// GroupStatus 查询当前用户在 name 组中的成员状态
// A group that does not exist yields a zero Membership.
func (g *Guard) GroupStatus(name string) (Membership, error) {
	grp, err := g.lookupGroup(name)
	if err != nil {
		var unknown user.UnknownGroupError
		if stderrors.As(err, &unknown) {
			return Membership{}, nil
		}
		return Membership{}, errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("cannot look up group %s", name), err)
	}
	gid, err := strconv.Atoi(grp.Gid)
	if err != nil {
		return Membership{}, errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("group %s has a non-numeric id", name), err)
	}

	var m Membership

	username, err := g.CurrentUser()
	if err != nil {
		return m, err
	}
	ids, err := g.userGroupIDs(username)
	if err != nil {
		return m, errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("cannot list the groups of %s", username), err)
	}
	m.Added = slices.Contains(ids, grp.Gid)

	session, err := g.sessionGroups()
	if err != nil {
		return m, errors.Wrap(errors.ErrTypePermission, "cannot list the groups of this session", err)
	}
	m.Active = slices.Contains(session, gid)

	g.logger.Debug("Group membership",
		zap.String("group", name), zap.String("user", username),
		zap.Bool("added", m.Added), zap.Bool("active", m.Active))
	return m, nil
}

// RequireGroupMembership 要求当前会话已生效 name 组成员身份
// The error's suggestion depends on whether the user still has to log in
// again or has not been added at all.
func (g *Guard) RequireGroupMembership(name string) error {
	m, err := g.GroupStatus(name)
	if err != nil {
		return err
	}
	switch {
	case m.Active:
		return nil
	case m.Added:
		return errors.New(errors.ErrTypePermission,
			fmt.Sprintf("you were added to the %s group, but this session does not have it yet", name)).
			WithSuggestion("Log out and back in (or restart) for the group change to take effect, or rerun with sudo")
	default:
		return errors.New(errors.ErrTypePermission,
			fmt.Sprintf("you are not in the %s group", name)).
			WithSuggestion(fmt.Sprintf("Run 'sudo usermod -a -G %s $USER' and log in again, or rerun with sudo", name))
	}
}

// RequireDocker passes for root or for users whose session carries the
// docker group.
func (g *Guard) RequireDocker() error {
	if g.IsRoot() {
		return nil
	}
	return g.RequireGroupMembership(DockerGroupName)
}

// userGroupIDs lists the group ids the group database gives username.
func userGroupIDs(username string) ([]string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, err
	}
	return u.GroupIds()
}

func currentSessionGroups() ([]int, error) {
	groups, err := unix.Getgroups()
	if err != nil {
		return nil, err
	}
	return append(groups, unix.Getegid()), nil
}
