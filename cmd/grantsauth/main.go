// Command grantsauth runs the grants-cache authorization core
// standalone: a minimal HTTP-fetching `serve` loop, plus `config test`
// and `version` utility subcommands.
package main

import (
	"os"

	"github.com/creachadair/command"
)

// version, commit and date are overridden at build time via
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	root := &command.C{
		Name: "grantsauth",
		Help: "grantsauth authorizes bearer-token principals against a cached upstream grants document.",

		Commands: commands(),
	}

	env := root.NewEnv(nil).MergeFlags(true)
	command.RunOrFail(env, os.Args[1:])
}
