// Command nopanic is a linter that checks //nopanic:deny regions cannot
// reach a panic.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/mpyw/nopanic"
)

func main() {
	singlechecker.Main(nopanic.Analyzer)
}
