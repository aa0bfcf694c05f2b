package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/stagetrack/internal/app/replay"
	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/metrics"
	"github.com/slok/stagetrack/internal/model"
	storageio "github.com/slok/stagetrack/internal/storage/io"
	"github.com/slok/stagetrack/internal/utils/kv"
)

type ReplayCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	scripts     []string
	save        bool
	strict      bool
	format      string
	metricsOut  string
	concurrency int
	metadata    []string
}

// NewReplayCommand returns the replay command.
func NewReplayCommand(rootCmd *RootCommand, app *kingpin.Application) *ReplayCommand {
	c := &ReplayCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("replay", "Replay stage scripts through fresh trackers.")
	c.Cmd.Arg("script", "Replay script YAML files.").Required().StringsVar(&c.scripts)
	c.Cmd.Flag("save", "Archive the replayed runs.").BoolVar(&c.save)
	c.Cmd.Flag("strict", "Abort on the first rejected transition.").BoolVar(&c.strict)
	c.Cmd.Flag("metrics-out", "Write the replay metrics in Prometheus text format to this file.").StringVar(&c.metricsOut)
	c.Cmd.Flag("concurrency", "Number of scripts replayed at the same time.").Default("4").IntVar(&c.concurrency)
	c.Cmd.Flag("metadata", "Metadata added to every transition (KEY=VALUE, repeatable).").Short('m').StringsVar(&c.metadata)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c ReplayCommand) Name() string { return c.Cmd.FullCommand() }

func (c ReplayCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	metadata, err := kv.ParseSpecs(c.metadata)
	if err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}

	cfg := replay.ServiceConfig{
		ScriptRepository: newScriptFileRepository(),
		MaxConcurrency:   c.concurrency,
		Observer: func(run string, ev model.StageEvent) {
			logger.WithValues(log.Kv{"run": run, "stage": ev.Stage.String()}).Debugf("stage event %s", ev.Type)
		},
		Logger: logger,
	}

	var reg *prometheus.Registry
	if c.metricsOut != "" {
		reg = prometheus.NewRegistry()
		rec, err := metrics.NewPrometheusRecorder(reg)
		if err != nil {
			return fmt.Errorf("could not create metrics recorder: %w", err)
		}
		cfg.Recorder = rec
	}

	// Only open the archive when it's going to be used.
	if c.save {
		repo, err := newRunRepository(ctx, c.rootCmd)
		if err != nil {
			return err
		}
		defer repo.Close()
		cfg.RunRepository = repo
	}

	svc, err := replay.NewService(cfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	results, err := svc.Run(ctx, replay.Request{
		Scripts:  c.scripts,
		Save:     c.save,
		Strict:   c.strict,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("could not replay scripts: %w", err)
	}

	if reg != nil {
		if err := prometheus.WriteToTextfile(c.metricsOut, reg); err != nil {
			return fmt.Errorf("could not write metrics: %w", err)
		}
		logger.Infof("metrics written to %s", c.metricsOut)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintReplayResults(results); err != nil {
		return fmt.Errorf("could not print replay results: %w", err)
	}

	return nil
}

// scriptFileRepository loads replay scripts from host paths, relative paths are
// resolved from the working directory.
type scriptFileRepository struct {
	loader *storageio.ReplayScriptYAMLRepository
}

func newScriptFileRepository() scriptFileRepository {
	return scriptFileRepository{loader: storageio.NewReplayScriptYAMLRepository(os.DirFS("/"))}
}

func (r scriptFileRepository) GetReplayScript(ctx context.Context, path string) (model.ReplayScript, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.ReplayScript{}, fmt.Errorf("could not resolve script path: %w", err)
	}

	rel, err := filepath.Rel("/", abs)
	if err != nil {
		return model.ReplayScript{}, fmt.Errorf("could not resolve script path: %w", err)
	}

	return r.loader.GetReplayScript(ctx, filepath.ToSlash(rel))
}
