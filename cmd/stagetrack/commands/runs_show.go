package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stagetrack/internal/app/runshow"
)

type RunsShowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	format   string
}

// NewRunsShowCommand returns the runs show command.
func NewRunsShowCommand(rootCmd *RootCommand, runsCmd *RunsCommand) *RunsShowCommand {
	c := &RunsShowCommand{rootCmd: rootCmd}

	c.Cmd = runsCmd.Cmd.Command("show", "Show the full report of an archived run.")
	c.Cmd.Arg("name-or-id", "Run name or ID.").Required().StringVar(&c.nameOrID)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c RunsShowCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunsShowCommand) Run(ctx context.Context) error {
	repo, err := newRunRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := runshow.NewService(runshow.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	run, err := svc.Run(ctx, runshow.Request{NameOrID: c.nameOrID})
	if err != nil {
		return fmt.Errorf("could not get run: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintRun(*run); err != nil {
		return fmt.Errorf("could not print run: %w", err)
	}

	return nil
}
