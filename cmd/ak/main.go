// Command ak records commits in append-only cubes and replays them as
// timelines.
package main

import (
	"os"

	"github.com/roach88/akasha/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
