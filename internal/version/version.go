package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/penwyp/brainframe-cli/internal/errors"
)

var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([^+]+))?(?:\+(.+))?$`)

// Version 语义化版本
type Version struct {
	Major      int
	Minor      int
	Patch      int
	PreRelease string
	Build      string
}

// String renders v without the leading "v".
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Tag renders v the way release tags and image tags spell it ("v1.2.3").
func (v Version) Tag() string {
	return "v" + v.String()
}

// Parse 解析版本字符串，可带 "v" 前缀
// Missing minor and patch components default to zero. Anything else is a
// dependency error wrapping errors.ErrMalformedVersion.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	matches := versionRegex.FindStringSubmatch(trimmed)
	if matches == nil {
		return Version{}, errors.Wrap(errors.ErrTypeDependency,
			fmt.Sprintf("malformed version %q", s), errors.ErrMalformedVersion)
	}

	var v Version
	var err error
	if v.Major, err = atoi(matches[1]); err != nil {
		return Version{}, err
	}
	if matches[2] != "" {
		if v.Minor, err = atoi(matches[2]); err != nil {
			return Version{}, err
		}
	}
	if matches[3] != "" {
		if v.Patch, err = atoi(matches[3]); err != nil {
			return Version{}, err
		}
	}
	v.PreRelease = matches[4]
	v.Build = matches[5]

	return v, nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(errors.ErrTypeDependency,
			fmt.Sprintf("version component %q out of range", s), errors.ErrMalformedVersion)
	}
	return n, nil
}

// Compare 比较两个版本
// 返回: -1 (a < b), 0 (a == b), 1 (a > b)
// Components compare numerically. A release sorts after any of its
// pre-releases; build metadata is ignored.
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}

	switch {
	case a.PreRelease == "" && b.PreRelease != "":
		return 1
	case a.PreRelease != "" && b.PreRelease == "":
		return -1
	case a.PreRelease != "" && b.PreRelease != "":
		return comparePreRelease(a.PreRelease, b.PreRelease)
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

// comparePreRelease 逐段比较预发布标识，数字段按数值比较
func comparePreRelease(pre1, pre2 string) int {
	parts1 := strings.Split(pre1, ".")
	parts2 := strings.Split(pre2, ".")

	for i := 0; i < len(parts1) && i < len(parts2); i++ {
		num1, err1 := strconv.Atoi(parts1[i])
		num2, err2 := strconv.Atoi(parts2[i])

		if err1 == nil && err2 == nil {
			if c := compareInt(num1, num2); c != 0 {
				return c
			}
			continue
		}
		if c := strings.Compare(parts1[i], parts2[i]); c != 0 {
			return c
		}
	}

	return compareInt(len(parts1), len(parts2))
}
