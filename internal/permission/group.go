package permission

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/runner"
	"go.uber.org/zap"
)

// sharedMode rwx for owner and group, r-x for others.
const sharedMode = 0o775

// CreateGroup 创建用户组；已存在时什么也不做
func (g *Guard) CreateGroup(ctx context.Context, name string, gid int) error {
	_, err := g.lookupGroup(name)
	if err == nil {
		g.logger.Info("Group already exists", zap.String("group", name))
		return nil
	}
	var unknown user.UnknownGroupError
	if !stderrors.As(err, &unknown) {
		return errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("cannot look up group %s", name), err)
	}

	_, err = g.runner.Run(ctx, []string{"groupadd", name, "--gid", strconv.Itoa(gid)},
		runner.Options{ExitOnFailure: true, AsRoot: true})
	return err
}

// AddToGroup adds the invoking user to name. The change only takes effect
// after the user logs in again.
func (g *Guard) AddToGroup(ctx context.Context, name string) error {
	username, err := g.CurrentUser()
	if err != nil {
		return err
	}
	g.logger.Info("Adding user to group", zap.String("user", username), zap.String("group", name))

	_, err = g.runner.Run(ctx, []string{"usermod", "-a", "-G", name, username},
		runner.Options{ExitOnFailure: true, AsRoot: true})
	return err
}

// GrantGroupAccess 将路径归属 brainframe 组并授予组读写执行权限
func (g *Guard) GrantGroupAccess(paths ...string) error {
	for _, path := range paths {
		if err := g.chown(path, -1, SharedGroupID); err != nil {
			return errors.Wrap(errors.ErrTypePermission,
				fmt.Sprintf("failed to give the %s group ownership of %s", SharedGroupName, path), err)
		}
		if err := g.chmod(path, sharedMode); err != nil {
			return errors.Wrap(errors.ErrTypePermission,
				fmt.Sprintf("failed to set permissions on %s", path), err)
		}
	}
	return nil
}
