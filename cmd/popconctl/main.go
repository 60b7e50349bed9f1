package main

import (
	"os"

	"github.com/armadaproject/popcon/cmd/popconctl/cmd"
	"github.com/armadaproject/popcon/internal/common"
)

func main() {
	common.ConfigureCommandLineLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
