// cmd/parmair-bridge/main.go
package main

import (
	"os"

	"k8s.io/component-base/logs"

	"github.com/tamzrod/parmair-bridge/cmd/parmair-bridge/app"
)

func main() {
	cmd := app.NewBridgeCmd()
	logs.InitLogs()
	defer logs.FlushLogs()
	if err := cmd.Execute(); err != nil {
		logs.FlushLogs()
		os.Exit(1)
	}
}
