// Package syncer sequences reconciler runs against the remote catalog
// service. The stage pipeline is an explicit ordered list with
// declared preconditions — inserting a future entity type is a list
// change, not a reordering of procedural code. Overlapping triggers
// for the same stage set coalesce onto the in-progress run through a
// single-flight group.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Stage is one step of a sync run. Stages execute in list order;
// stage N's writes are visible to stage N+1's reads.
type Stage struct {
	Name string
	// Precondition, when non-nil, is checked before Run. A returned
	// error skips the stage for this run without failing it — local
	// data may already satisfy later stages even when an earlier one
	// could not do its work.
	Precondition func(ctx context.Context) error
	Run          func(ctx context.Context) error
}

// Orchestrator drives the stage pipeline.
type Orchestrator struct {
	stages []Stage
	logger *slog.Logger
	group  singleflight.Group
	events chan StageEvent
}

// New creates an orchestrator over an ordered stage list.
func New(stages []Stage, logger *slog.Logger) (*Orchestrator, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("at least one stage is required")
	}
	names := make(map[string]bool, len(stages))
	for _, st := range stages {
		if st.Name == "" || st.Run == nil {
			return nil, fmt.Errorf("every stage needs a name and a run function")
		}
		if names[st.Name] {
			return nil, fmt.Errorf("duplicate stage name %q", st.Name)
		}
		names[st.Name] = true
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		stages: stages,
		logger: logger,
		events: make(chan StageEvent, 64),
	}, nil
}

// Sync runs every stage in order. Concurrent Sync calls coalesce onto
// the full run already in flight and share its result; a SyncStages
// subset run in flight does not absorb them.
func (o *Orchestrator) Sync(ctx context.Context) error {
	return o.SyncStages(ctx)
}

// SyncStages runs the named subset of stages in pipeline order; with
// no names it runs all of them. A stage failure is logged, evented and
// does not stop later stages — the joined failures come back as one
// error.
func (o *Orchestrator) SyncStages(ctx context.Context, names ...string) error {
	only := make(map[string]bool, len(names))
	for _, n := range names {
		only[n] = true
	}
	// Triggers asking for the same stage set coalesce onto the run in
	// flight. Different sets get their own run: a full refresh racing
	// a timer-driven subset run must not ride along on it, or the
	// stages the subset omits would never execute for that trigger.
	_, err, _ := o.group.Do(coalesceKey(names), func() (any, error) {
		return nil, o.run(ctx, only)
	})
	return err
}

func coalesceKey(names []string) string {
	if len(names) == 0 {
		return "all"
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func (o *Orchestrator) run(ctx context.Context, only map[string]bool) error {
	runID := uuid.New().String()
	start := time.Now()
	o.logger.Info("sync run started", "run_id", runID)

	var errs []error
	for _, st := range o.stages {
		if len(only) > 0 && !only[st.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		o.runStage(ctx, runID, st, &errs)
	}

	err := errors.Join(errs...)
	if err != nil {
		o.logger.Warn("sync run finished with failures", "run_id", runID,
			"duration", time.Since(start), "error", err)
	} else {
		o.logger.Info("sync run finished", "run_id", runID, "duration", time.Since(start))
	}
	return err
}

func (o *Orchestrator) runStage(ctx context.Context, runID string, st Stage, errs *[]error) {
	start := time.Now()

	if st.Precondition != nil {
		if err := st.Precondition(ctx); err != nil {
			o.logger.Info("skipping stage, precondition unmet",
				"run_id", runID, "stage", st.Name, "reason", err)
			o.emit(StageEvent{RunID: runID, Stage: st.Name, Outcome: OutcomeSkipped,
				Err: err, Duration: time.Since(start), Time: time.Now()})
			return
		}
	}

	err := st.Run(ctx)
	ev := StageEvent{RunID: runID, Stage: st.Name, Duration: time.Since(start), Time: time.Now()}
	if err != nil {
		// Isolate the failure: later stages still attempt their work.
		*errs = append(*errs, fmt.Errorf("stage %s: %w", st.Name, err))
		ev.Outcome = OutcomeFailed
		ev.Err = err
		o.logger.Error("sync stage failed", "run_id", runID, "stage", st.Name,
			"duration", ev.Duration, "error", err)
	} else {
		ev.Outcome = OutcomeOK
		o.logger.Debug("sync stage completed", "run_id", runID, "stage", st.Name,
			"duration", ev.Duration)
	}
	o.emit(ev)
}

// StartPeriodic re-runs the named stages (all stages when names is
// empty) every interval until ctx is cancelled. Failures are already
// logged and evented by the run itself; the loop just keeps going —
// transient network errors get their retry on the next tick.
func (o *Orchestrator) StartPeriodic(ctx context.Context, interval time.Duration, names ...string) {
	go func() {
		for {
			if err := sleepWithContext(ctx, interval); err != nil {
				return
			}
			_ = o.SyncStages(ctx, names...)
		}
	}()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
