// Command probecheck runs semantics-conformance probes against an engine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/probecheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
