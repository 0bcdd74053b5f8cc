package main

import (
	"github.com/turtacn/shieldgate/cmd/cli"
)

// main is the entry point for the shieldctl command-line tool.
// main 是 shieldctl 命令行工具的入口点。
func main() {
	cli.Execute()
}
