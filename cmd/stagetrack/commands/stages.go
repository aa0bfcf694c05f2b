package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type StagesCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewStagesCommand returns the stages command.
func NewStagesCommand(rootCmd *RootCommand, app *kingpin.Application) *StagesCommand {
	c := &StagesCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("stages", "Show the stage catalog.")
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c StagesCommand) Name() string { return c.Cmd.FullCommand() }

func (c StagesCommand) Run(_ context.Context) error {
	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintStages(); err != nil {
		return fmt.Errorf("could not print stages: %w", err)
	}
	return nil
}
