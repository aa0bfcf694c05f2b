package printer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/slok/stagetrack/internal/execution"
	"github.com/slok/stagetrack/internal/model"
)

// TablePrinter prints run information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRunList prints runs in a table format.
func (t *TablePrinter) PrintRunList(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tSTAGE\tPROGRESS\tFAILED\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\n",
			r.Name,
			currentStage(r),
			execution.OverallProgress(r.ExecutionStages),
			yesNo(r.Failed()),
			TimeAgo(r.CreatedAt),
		)
	}

	return nil
}

// PrintRun prints the full report of a run: panel, stage metrics, history and events.
func (t *TablePrinter) PrintRun(run model.Run) error {
	fmt.Fprintf(t.writer, "Name:       %s\n", run.Name)
	fmt.Fprintf(t.writer, "ID:         %s\n", run.ID)
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(run.CreatedAt))
	fmt.Fprintf(t.writer, "Stage:      %s\n", currentStage(run))
	if acc, ok := execution.CurrentAccordion(run.ExecutionStages); ok {
		fmt.Fprintf(t.writer, "Accordion:  %s\n", acc)
	}
	fmt.Fprintf(t.writer, "Progress:   %s\n", FormatProgressBar(execution.OverallProgress(run.ExecutionStages)))
	fmt.Fprintf(t.writer, "Failed:     %s\n", yesNo(run.Failed()))

	metrics := stageMetrics(run)

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNUMBER\tSTAGE\tSTATUS\tPROGRESS\tDURATION\tERRORS")
	for _, v := range execution.ProgressVisualization(run.ExecutionStages) {
		m, ok := metrics[model.Stage(v.Number)]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d%%\t%s\t%s\n",
			execution.StatusIcon(v.Status), v.Number, v.Label, v.Status, v.Progress, duration(m, ok), errorCount(m, ok))
	}
	// Stages tracked outside the panel only have metrics.
	for _, s := range model.Stages() {
		if _, inPanel := execution.StageKeyFromNumber(int(s)); inPanel {
			continue
		}
		if m, ok := metrics[s]; ok {
			fmt.Fprintf(tw, "\t%d\t%s\t-\t-\t%s\t%s\n", int(s), s, duration(m, ok), errorCount(m, ok))
		}
	}
	tw.Flush()

	if len(run.History) > 0 {
		fmt.Fprintln(t.writer, "\nTransitions:")
		tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tFROM\tTO\tBY\tMETADATA")
		for _, tr := range run.History {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				FormatEventTime(tr.Timestamp), tr.From, tr.To, orDash(tr.TriggeredBy), formatMetadata(tr.Metadata))
		}
		tw.Flush()
	}

	if len(run.Events) > 0 {
		fmt.Fprintln(t.writer, "\nEvents:")
		tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSTAGE\tTYPE\tPROGRESS\tMESSAGE")
		for _, ev := range run.Events {
			progress := "-"
			if ev.Progress != nil {
				progress = fmt.Sprintf("%d%%", *ev.Progress)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				FormatEventTime(ev.Timestamp), ev.Stage, ev.Type, progress, orDash(ev.Message))
		}
		tw.Flush()
	}

	return nil
}

// PrintReplayResults prints a summary per replayed script and the rejected steps.
func (t *TablePrinter) PrintReplayResults(results []model.ReplayResult) error {
	if len(results) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCRIPT\tRUN\tSTAGE\tPROGRESS\tSTEPS\tREJECTED\tSAVED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%d\t%d\t%s\n",
			r.Script,
			r.Run.Name,
			currentStage(r.Run),
			execution.OverallProgress(r.Run.ExecutionStages),
			len(r.Steps),
			r.Rejected(),
			yesNo(r.Saved),
		)
	}
	tw.Flush()

	for _, r := range results {
		for _, s := range r.Steps {
			if s.Err != nil {
				fmt.Fprintf(t.writer, "%s: step %d rejected: %s\n", r.Script, s.Index, s.Err)
			}
		}
	}

	return nil
}

// PrintTransitionCheck prints the verdict of a transition check.
func (t *TablePrinter) PrintTransitionCheck(check model.TransitionCheck) error {
	switch {
	case check.Allowed && check.Restart:
		fmt.Fprintf(t.writer, "%s -> %s: allowed (restart)\n", check.From, check.To)
	case check.Allowed:
		fmt.Fprintf(t.writer, "%s -> %s: allowed\n", check.From, check.To)
	default:
		fmt.Fprintf(t.writer, "%s -> %s: rejected (%s): %s\n", check.From, check.To, check.Reason, check.Message)
	}
	return nil
}

// PrintStages prints the stage catalog.
func (t *TablePrinter) PrintStages() error {
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NUMBER\tNAME\tKEY\tLABEL\tACCORDION")
	for _, s := range model.Stages() {
		key, label, acc := "-", "-", "-"
		if k, ok := execution.StageKeyFromNumber(int(s)); ok {
			key, label, acc = string(k), k.Label(), execution.AccordionID(int(s))
		}
		start := ""
		if s == model.StartStage {
			start = " (start)"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\t%s\n", int(s), s, start, key, label, acc)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func currentStage(r model.Run) string {
	if r.CurrentStage == nil {
		return "-"
	}
	return r.CurrentStage.String()
}

func duration(m model.StageMetrics, ok bool) string {
	if !ok {
		return "-"
	}
	return execution.FormatStageDuration(m.Duration)
}

func errorCount(m model.StageMetrics, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d", m.ErrorCount)
}

func formatMetadata(md map[string]string) string {
	if len(md) == 0 {
		return "-"
	}
	kvs := make([]string, 0, len(md))
	for _, k := range slices.Sorted(maps.Keys(md)) {
		kvs = append(kvs, k+"="+md[k])
	}
	return strings.Join(kvs, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
