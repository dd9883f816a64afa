package main

import (
	"context"
	"os"

	"github.com/penwyp/brainframe-cli/cmd"
	"github.com/penwyp/brainframe-cli/internal/errors"
)

// main 为 CLI 入口，调用 cmd.Execute。
// 所有错误在这里统一转换为输出与退出码。
func main() {
	err := cmd.Execute(context.Background())
	os.Exit(errors.NewErrorHandler().Report(os.Stderr, err))
}
