// Command ligandscreen screens query compounds against a ligand corpus.
package main

import (
	"context"
	"os"

	"github.com/turtacn/ligandscreen/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:]))
}

//Personal.AI order the ending
