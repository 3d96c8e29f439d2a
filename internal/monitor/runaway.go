// Package monitor implements the coordinator's periodic timers: flush,
// interesting (quiescence) and runaway (pace control), plus the
// Prometheus metrics they update. The decision logic is pure and
// independent of the engine's state-machine types so it can be tested
// against §8's scenarios directly.
package monitor

// RunState is the subset of the lifecycle state machine the runaway
// monitor cares about; kept local to this package to avoid an import
// cycle with internal/engine, which drives the timers that call these
// functions.
type RunState int

const (
	Other RunState = iota
	Rendering
	Paused
)

// Action is what the runaway monitor asks the engine to do to a worker.
type Action int

const (
	Pause Action = iota
	Resume
)

// WorkerProgress is one worker's runaway-monitor inputs for a tick.
type WorkerProgress struct {
	WorkerID uint32
	State    RunState
	Progress float32
}

// Transition is one requested state change.
type Transition struct {
	WorkerID uint32
	Action   Action
}

// Runaway computes pause/resume transitions for a tick (§4.6). p_min
// is the minimum progress across only the workers still in the render
// (RENDERING or PAUSED) — a worker in some other state hasn't reported
// a meaningful progress value and must not pull p_min down. A
// RENDERING worker pauses once it's more than margin ahead of p_min; a
// PAUSED worker resumes once it's back down to p_min or below (bare
// p_i <= p_min, no margin), per §4.6's prose, testable property 7, and
// the reference (`engine.cpp`'s `else if (progress <= slowest)`).
func Runaway(workers []WorkerProgress, margin float32) []Transition {
	var pMin float32
	havePMin := false
	for _, w := range workers {
		if w.State != Rendering && w.State != Paused {
			continue
		}
		if !havePMin || w.Progress < pMin {
			pMin = w.Progress
			havePMin = true
		}
	}
	if !havePMin {
		return nil
	}

	var out []Transition
	for _, w := range workers {
		switch w.State {
		case Rendering:
			if w.Progress > pMin+margin {
				out = append(out, Transition{WorkerID: w.WorkerID, Action: Pause})
			}
		case Paused:
			if w.Progress <= pMin {
				out = append(out, Transition{WorkerID: w.WorkerID, Action: Resume})
			}
		}
	}
	return out
}
