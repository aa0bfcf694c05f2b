package tracker

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/stagetrack/internal/execution"
	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/metrics"
	"github.com/slok/stagetrack/internal/model"
)

// Config is the configuration of a Tracker.
type Config struct {
	// ID is the run ID, a ULID is generated if empty.
	ID string
	// Name is the run name, defaults to the ID.
	Name string
	// Observer is called with every event once the state has been committed (optional).
	Observer func(model.StageEvent)
	// Now returns the current time, defaults to UTC wall clock.
	Now      func() time.Time
	Recorder metrics.Recorder
	Logger   log.Logger
}

func (c *Config) defaults() error {
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	if c.Recorder == nil {
		c.Recorder = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tracker.Tracker", "run": c.Name})
	return nil
}

// Tracker tracks the stages of a single pipeline run. It holds the current stage,
// the append-only transition history and event log, the per-stage metrics and the
// execution panel state derived from them.
//
// A Tracker is safe for concurrent use.
type Tracker struct {
	id        string
	name      string
	createdAt time.Time
	observer  func(model.StageEvent)
	now       func() time.Time
	recorder  metrics.Recorder
	logger    log.Logger

	mu      sync.Mutex
	current *model.Stage
	history []model.StageTransition
	events  []model.StageEvent
	metrics map[model.Stage]*model.StageMetrics
	stages  model.ExecutionStagesState
}

// New returns a new Tracker with an empty run.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		id:        cfg.ID,
		name:      cfg.Name,
		createdAt: cfg.Now(),
		observer:  cfg.Observer,
		now:       cfg.Now,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		metrics:   map[model.Stage]*model.StageMetrics{},
		stages:    execution.NewExecutionStages(),
	}, nil
}

// TrackStage records the progress of a stage. Progress is not required to be monotonic.
func (t *Tracker) TrackStage(stage model.Stage, progress int, message string, data any) model.StageEvent {
	t.mu.Lock()
	now := t.now()
	ev := model.StageEvent{
		Stage:     stage,
		Type:      model.StageEventTypeProgress,
		Timestamp: now,
		Progress:  intPtr(progress),
		Message:   message,
		Data:      data,
	}
	t.events = append(t.events, ev)
	t.ensureMetrics(stage, now)
	t.setPanel(stage, func(s *model.ExecutionStageState) {
		s.Status = model.StageStatusInProgress
		s.Progress = progress
		if data != nil {
			s.Data = data
		}
	})
	t.mu.Unlock()

	t.emit(ev)
	return ev
}

// TransitionStage moves the run from one stage to another. Rejected transitions
// return a *model.TransitionError and leave the tracker untouched.
func (t *Tracker) TransitionStage(from, to model.Stage, triggeredBy string, metadata map[string]string) (model.StageTransition, error) {
	if err := model.ValidateTransition(from, to); err != nil {
		var terr *model.TransitionError
		if errors.As(err, &terr) {
			t.recorder.ObserveRejectedTransition(terr.Reason)
		}
		t.logger.Debugf("Rejected transition %s -> %s: %s", from, to, err)
		return model.StageTransition{}, err
	}

	t.mu.Lock()
	now := t.now()
	tr := model.StageTransition{
		From:        from,
		To:          to,
		Timestamp:   now,
		TriggeredBy: triggeredBy,
		Metadata:    maps.Clone(metadata),
	}
	t.history = append(t.history, tr)
	current := to
	t.current = &current

	t.finalize(from, now)
	t.ensureMetrics(to, now)

	completed := model.StageEvent{Stage: from, Type: model.StageEventTypeCompleted, Timestamp: now, Progress: intPtr(100)}
	started := model.StageEvent{Stage: to, Type: model.StageEventTypeStarted, Timestamp: now, Progress: intPtr(0)}
	t.events = append(t.events, completed, started)

	if tr.IsRestart() {
		t.resetPanelAfter(model.StartStage)
	} else {
		t.setPanel(from, func(s *model.ExecutionStageState) {
			s.Status = model.StageStatusCompleted
			s.Progress = 100
		})
	}
	t.setPanel(to, func(s *model.ExecutionStageState) {
		s.Status = model.StageStatusInProgress
		s.Progress = 0
	})
	t.mu.Unlock()

	t.recorder.ObserveTransition(from, to)
	t.logger.Debugf("Transitioned %s -> %s (triggered by %q)", from, to, triggeredBy)
	t.emit(completed, started)

	return copyTransition(tr), nil
}

// FailStage records a failure of a stage. It does not change the current stage,
// recovering is up to the caller (usually transitioning back to the start stage).
func (t *Tracker) FailStage(stage model.Stage, cause error, data any) model.StageEvent {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	t.mu.Lock()
	now := t.now()
	ev := model.StageEvent{
		Stage:     stage,
		Type:      model.StageEventTypeFailed,
		Timestamp: now,
		Message:   msg,
		Data:      data,
	}
	t.events = append(t.events, ev)

	t.ensureMetrics(stage, now)
	t.metrics[stage].ErrorCount++
	t.finalize(stage, now)

	t.setPanel(stage, func(s *model.ExecutionStageState) {
		s.Status = model.StageStatusFailed
		if data != nil {
			s.Data = data
		}
	})
	t.mu.Unlock()

	t.logger.Debugf("Stage %s failed: %s", stage, msg)
	t.emit(ev)
	return ev
}

// CurrentStage returns the current stage, false if the run has not transitioned yet.
func (t *Tracker) CurrentStage() (model.Stage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return 0, false
	}
	return *t.current, true
}

// StageHistory returns a copy of the transition history.
func (t *Tracker) StageHistory() []model.StageTransition {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := make([]model.StageTransition, 0, len(t.history))
	for _, tr := range t.history {
		h = append(h, copyTransition(tr))
	}
	return h
}

// StageEvents returns a copy of the event log. If stages are passed only the
// events of those stages are returned.
func (t *Tracker) StageEvents(stages ...model.Stage) []model.StageEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	filter := make(map[model.Stage]bool, len(stages))
	for _, s := range stages {
		filter[s] = true
	}

	evs := make([]model.StageEvent, 0, len(t.events))
	for _, ev := range t.events {
		if len(filter) > 0 && !filter[ev.Stage] {
			continue
		}
		evs = append(evs, copyEvent(ev))
	}
	return evs
}

// StageMetrics returns the metrics of a stage, false if the stage has none.
func (t *Tracker) StageMetrics(stage model.Stage) (model.StageMetrics, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.metrics[stage]
	if !ok {
		return model.StageMetrics{}, false
	}
	return copyMetrics(*m), true
}

// AllStageMetrics returns a copy of the metrics of all stages.
func (t *Tracker) AllStageMetrics() map[model.Stage]model.StageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	ms := make(map[model.Stage]model.StageMetrics, len(t.metrics))
	for s, m := range t.metrics {
		ms[s] = copyMetrics(*m)
	}
	return ms
}

// ExecutionStages returns the execution panel state of the run.
func (t *Tracker) ExecutionStages() model.ExecutionStagesState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stages.Clone()
}

// Reset clears the run, nothing tracked before survives a reset.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = nil
	t.history = nil
	t.events = nil
	t.metrics = map[model.Stage]*model.StageMetrics{}
	t.stages = execution.NewExecutionStages()
	t.logger.Debugf("Tracker reset")
}

// Snapshot returns the current state of the run.
func (t *Tracker) Snapshot() model.Run {
	t.mu.Lock()
	defer t.mu.Unlock()

	run := model.Run{
		ID:              t.id,
		Name:            t.name,
		CreatedAt:       t.createdAt,
		History:         make([]model.StageTransition, 0, len(t.history)),
		Events:          make([]model.StageEvent, 0, len(t.events)),
		Metrics:         make([]model.StageMetrics, 0, len(t.metrics)),
		ExecutionStages: t.stages.Clone(),
	}
	if t.current != nil {
		current := *t.current
		run.CurrentStage = &current
	}
	for _, tr := range t.history {
		run.History = append(run.History, copyTransition(tr))
	}
	for _, ev := range t.events {
		run.Events = append(run.Events, copyEvent(ev))
	}
	for _, m := range t.metrics {
		run.Metrics = append(run.Metrics, copyMetrics(*m))
	}
	sort.Slice(run.Metrics, func(i, j int) bool { return run.Metrics[i].Stage < run.Metrics[j].Stage })

	return run
}

// ensureMetrics creates the metrics of a stage if missing. Needs the lock.
func (t *Tracker) ensureMetrics(stage model.Stage, now time.Time) {
	if _, ok := t.metrics[stage]; ok {
		return
	}
	t.metrics[stage] = &model.StageMetrics{Stage: stage, StartTime: now}
}

// finalize sets the end of a stage only once. Needs the lock.
func (t *Tracker) finalize(stage model.Stage, now time.Time) {
	m, ok := t.metrics[stage]
	if !ok || m.Finalized() {
		return
	}

	end := now
	d := end.Sub(m.StartTime)
	m.EndTime = &end
	m.Duration = &d
	t.recorder.ObserveStageDuration(stage, d)
}

// setPanel updates the panel entry of a stage, stages outside the panel are ignored. Needs the lock.
func (t *Tracker) setPanel(stage model.Stage, update func(s *model.ExecutionStageState)) {
	key, ok := execution.StageKeyFromNumber(int(stage))
	if !ok {
		return
	}
	s := t.stages[key]
	update(&s)
	t.stages[key] = s
}

// resetPanelAfter sets every panel stage after the given one back to pending. Needs the lock.
func (t *Tracker) resetPanelAfter(stage model.Stage) {
	for _, key := range model.ExecutionStageKeys() {
		n, _ := execution.StageNumberFromKey(key)
		if n > int(stage) {
			t.stages[key] = model.ExecutionStageState{Status: model.StageStatusPending}
		}
	}
}

func (t *Tracker) emit(evs ...model.StageEvent) {
	for _, ev := range evs {
		t.recorder.ObserveEvent(ev.Stage, ev.Type)
		t.logger.Debugf("Stage event: %s %s", ev.Stage, ev.Type)
		if t.observer != nil {
			t.observer(copyEvent(ev))
		}
	}
}

func intPtr(i int) *int { return &i }

func copyEvent(ev model.StageEvent) model.StageEvent {
	if ev.Progress != nil {
		ev.Progress = intPtr(*ev.Progress)
	}
	return ev
}

func copyTransition(tr model.StageTransition) model.StageTransition {
	tr.Metadata = maps.Clone(tr.Metadata)
	return tr
}

func copyMetrics(m model.StageMetrics) model.StageMetrics {
	if m.EndTime != nil {
		end := *m.EndTime
		m.EndTime = &end
	}
	if m.Duration != nil {
		d := *m.Duration
		m.Duration = &d
	}
	return m
}
