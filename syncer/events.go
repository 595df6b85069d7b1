// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"time"
)

// StageOutcome classifies how a stage ended.
type StageOutcome string

const (
	OutcomeOK      StageOutcome = "ok"
	OutcomeFailed  StageOutcome = "failed"
	OutcomeSkipped StageOutcome = "skipped"
)

// StageEvent is the structured record of one stage execution within a
// sync run. Background sync is silent toward interactive flows, so
// events are the only operator-facing signal of systemic failures.
type StageEvent struct {
	RunID    string
	Stage    string
	Outcome  StageOutcome
	Err      error
	Duration time.Duration
	Time     time.Time
}

func (o *Orchestrator) emit(ev StageEvent) {
	select {
	case o.events <- ev:
	default:
		// A full channel means nobody is draining events; dropping
		// beats blocking the sync run.
		o.logger.Warn("dropping stage event, channel full", "stage", ev.Stage, "outcome", ev.Outcome)
	}
}

// Events returns the stage event stream. The channel is never closed;
// consumers select against their own done signal.
func (o *Orchestrator) Events() <-chan StageEvent {
	return o.events
}
