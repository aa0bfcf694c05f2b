package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/stagetrack/cmd/stagetrack/commands"
	"github.com/slok/stagetrack/internal/log"
	loglogrus "github.com/slok/stagetrack/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// reportCommands write reports to stdout, logs stay off for them unless --debug is set.
var reportCommands = map[string]bool{
	"runs list": true,
	"runs show": true,
	"check":     true,
	"stages":    true,
}

// Run runs the stagetrack CLI with the given arguments and standard streams.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("stagetrack", "Execution stage tracking and transition checking tool.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)
	cmds := registerCommands(app, rootCmd)

	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr
	if reportCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	var g run.Group

	// Stop on SIGINT/SIGTERM.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// The selected command, cancelled when the group stops.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// registerCommands sets up the commands and their flags, indexed by full command name.
func registerCommands(app *kingpin.Application, rootCmd *commands.RootCommand) map[string]commands.Command {
	replayCmd := commands.NewReplayCommand(rootCmd, app)
	checkCmd := commands.NewCheckCommand(rootCmd, app)
	stagesCmd := commands.NewStagesCommand(rootCmd, app)

	// Archive commands live under "runs".
	runsCmd := commands.NewRunsCommand(app)
	runsListCmd := commands.NewRunsListCommand(rootCmd, runsCmd)
	runsShowCmd := commands.NewRunsShowCommand(rootCmd, runsCmd)
	runsRmCmd := commands.NewRunsRmCommand(rootCmd, runsCmd)

	cmdList := []commands.Command{replayCmd, checkCmd, stagesCmd, runsListCmd, runsShowCmd, runsRmCmd}
	cmds := make(map[string]commands.Command, len(cmdList))
	for _, c := range cmdList {
		cmds[c.Name()] = c
	}

	return cmds
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // Reports go to stdout, logs never mix with them.
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled")

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
