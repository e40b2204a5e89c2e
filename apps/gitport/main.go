package main

import (
	"os"

	"github.com/iotacb/gitport/apps/gitport/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
