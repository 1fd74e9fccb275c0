// Command graphgate runs the material graph command gateway and its tools.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/graphgate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
