// Command nopanicrun checks a package and its dependencies for panics
// reachable from //nopanic:deny regions and prints one block per finding.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errFindings makes the process exit non-zero without printing an error.
var errFindings = errors.New("panic reachable")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nopanicrun",
		Short:         "Prove that //nopanic:deny regions cannot reach a panic",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("verbose", false, "log analysis progress to stderr")
	root.PersistentFlags().String("goroot", "", "toolchain root (default: go env GOROOT)")
	root.PersistentFlags().String("dir", ".", "directory the package patterns are resolved in")
	root.PersistentFlags().StringSlice("build-flags", nil, "extra flags passed to the go command")

	root.AddCommand(newCheckCmd())
	root.AddCommand(newDepsCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
