// Command shelfterm drives the self-update engine from the command line,
// either as a one-shot console-mode check or as an administrative tool
// for the bad-version memory and effective configuration.
package main

import (
	"fmt"
	"os"
)

// version is overridden at build time via -ldflags "-X main.version=1.3.2".
var version = "0.0.0"

func main() {
	cli := NewCLI(version)
	if err := cli.GetRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
