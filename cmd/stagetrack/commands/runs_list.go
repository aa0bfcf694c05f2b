package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/stagetrack/internal/app/runlist"
	"github.com/slok/stagetrack/internal/model"
)

type RunsListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	stageFilter string
	failedOnly  bool
	format      string
}

// NewRunsListCommand returns the runs list command.
func NewRunsListCommand(rootCmd *RootCommand, runsCmd *RunsCommand) *RunsListCommand {
	c := &RunsListCommand{rootCmd: rootCmd}

	c.Cmd = runsCmd.Cmd.Command("list", "List archived runs.")
	c.Cmd.Flag("stage", "Filter by current stage (name, panel key or number).").StringVar(&c.stageFilter)
	c.Cmd.Flag("failed", "Only show runs with failed stages.").BoolVar(&c.failedOnly)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c RunsListCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunsListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	var stageFilter *model.Stage
	if c.stageFilter != "" {
		stage, err := model.ParseStage(c.stageFilter)
		if err != nil {
			return fmt.Errorf("invalid stage filter: %w", err)
		}
		stageFilter = &stage
	}

	repo, err := newRunRepository(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := runlist.NewService(runlist.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	runs, err := svc.Run(ctx, runlist.Request{
		StageFilter: stageFilter,
		FailedOnly:  c.failedOnly,
	})
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintRunList(runs); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
