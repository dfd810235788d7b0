// Command apiserver runs the screening HTTP API.  It is equivalent to
// "ligandscreen serve" and accepts the same flags.
package main

import (
	"context"
	"os"

	"github.com/turtacn/ligandscreen/internal/interfaces/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	args := append([]string{"serve"}, os.Args[1:]...)
	os.Exit(cli.Execute(context.Background(), args))
}

//Personal.AI order the ending
