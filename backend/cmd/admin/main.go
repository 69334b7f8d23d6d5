// Package main 提供运维用的 admin 命令行：迁移、账号初始化、改角色与离线批量导入。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(bootstrap).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
