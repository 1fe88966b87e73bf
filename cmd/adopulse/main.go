package main

import (
	"fmt"
	"os"

	"github.com/ssandy33/ado-pulse/cmd/adopulse/commands"
	"github.com/ssandy33/ado-pulse/cmd/adopulse/internal/clierr"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(clierr.ExitCodeOf(err))
	}
}
