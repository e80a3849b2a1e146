// logparse - Rule-based build log classification
//
// logparse classifies build console logs against an ordered rule file,
// collapses them into sections, and reports per-category counts and an
// annotated copy of each log.
package main

import (
	"os"

	"github.com/ccollicutt/logparse/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
