package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// String 原样返回
func String(raw string) (string, error) {
	return raw, nil
}

// Path cleans raw as a filesystem path. Empty paths are rejected.
func Path(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	return filepath.Clean(raw), nil
}

// ParseBool 解析常见的真假值写法（不区分大小写）
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "on", "t":
		return true, nil
	case "false", "0", "no", "n", "off", "f":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean; use true/false, yes/no or 1/0", raw)
}
