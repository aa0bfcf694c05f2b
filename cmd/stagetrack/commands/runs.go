package commands

import "github.com/alecthomas/kingpin/v2"

// RunsCommand is the parent command for the run archive subcommands.
type RunsCommand struct {
	Cmd *kingpin.CmdClause
}

// NewRunsCommand returns the runs parent command.
func NewRunsCommand(app *kingpin.Application) *RunsCommand {
	return &RunsCommand{Cmd: app.Command("runs", "Manage archived runs.")}
}
