package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stagetrack/internal/app/transitioncheck"
)

type CheckCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	from   string
	to     string
	format string
}

// NewCheckCommand returns the check command.
func NewCheckCommand(rootCmd *RootCommand, app *kingpin.Application) *CheckCommand {
	c := &CheckCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("check", "Check if a stage transition is allowed.")
	c.Cmd.Arg("from", "Source stage (name, panel key or number).").Required().StringVar(&c.from)
	c.Cmd.Arg("to", "Target stage (name, panel key or number).").Required().StringVar(&c.to)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c CheckCommand) Name() string { return c.Cmd.FullCommand() }

func (c CheckCommand) Run(ctx context.Context) error {
	svc, err := transitioncheck.NewService(transitioncheck.ServiceConfig{
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	check, err := svc.Run(ctx, transitioncheck.Request{From: c.from, To: c.to})
	if err != nil {
		return fmt.Errorf("could not check transition: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintTransitionCheck(*check); err != nil {
		return fmt.Errorf("could not print check: %w", err)
	}

	return nil
}
