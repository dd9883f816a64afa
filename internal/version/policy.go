package version

import (
	"fmt"

	"github.com/penwyp/brainframe-cli/internal/errors"
)

// Change 更新请求相对于已安装版本的分类
type Change int

const (
	// Upgrade requested is newer than existing.
	Upgrade Change = iota
	// Same requested equals existing.
	Same
	// Downgrade requested is older than existing.
	Downgrade
)

func (c Change) String() string {
	switch c {
	case Upgrade:
		return "upgrade"
	case Same:
		return "same"
	case Downgrade:
		return "downgrade"
	default:
		return "unknown"
	}
}

// Classify 将 (existing, requested) 归为升级、同版本或降级之一
func Classify(existing, requested Version) Change {
	switch Compare(requested, existing) {
	case 1:
		return Upgrade
	case 0:
		return Same
	default:
		return Downgrade
	}
}

// Check 应用更新策略
// Upgrades are always allowed. Reinstalling the same version and
// downgrading are refused unless force is set; each gets its own message.
func Check(existing, requested Version, force bool) (Change, error) {
	change := Classify(existing, requested)
	if force {
		return change, nil
	}

	switch change {
	case Same:
		return change, errors.New(errors.ErrTypeValidation,
			fmt.Sprintf("version %s is already installed", existing)).
			WithSuggestion("Pass --force to reinstall the same version")
	case Downgrade:
		return change, errors.New(errors.ErrTypeValidation,
			fmt.Sprintf("version %s is older than the installed version %s", requested, existing)).
			WithSuggestion("Downgrades may not be compatible with existing data. Pass --force to downgrade anyway")
	}
	return change, nil
}
