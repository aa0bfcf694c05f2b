package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stagetrack/internal/app/runremove"
	"github.com/slok/stagetrack/internal/printer"
)

type RunsRmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewRunsRmCommand returns the runs rm command.
func NewRunsRmCommand(rootCmd *RootCommand, runsCmd *RunsCommand) *RunsRmCommand {
	c := &RunsRmCommand{rootCmd: rootCmd}

	c.Cmd = runsCmd.Cmd.Command("rm", "Remove an archived run.")
	c.Cmd.Arg("name-or-id", "Run name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c RunsRmCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunsRmCommand) Run(ctx context.Context) error {
	repo, err := newRunRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := runremove.NewService(runremove.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	run, err := svc.Run(ctx, runremove.Request{NameOrID: c.nameOrID})
	if err != nil {
		return fmt.Errorf("could not remove run: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Removed run: %s", run.Name)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
