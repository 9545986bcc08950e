// Command campo records field inspection outcomes offline and syncs them to
// the inspection API when connectivity allows.
package main

import (
	"fmt"
	"os"

	"github.com/fiscalia/campo/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
