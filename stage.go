package pipeshell

import (
	"errors"
	"time"
)

// stageRecord accumulates what one stage did during a run.
type stageRecord struct {
	index      int
	invocation Invocation
	startTime  time.Time
	endTime    time.Time
	items      int
	err        error
}

// runTracker is owned by a single run. Streams are pulled from one
// goroutine at a time, so it needs no locking.
type runTracker struct {
	stages   []*stageRecord
	firstErr error
}

func (t *runTracker) begin(index int, inv Invocation) *stageRecord {
	stage := &stageRecord{
		index:      index,
		invocation: inv.Clone(),
		startTime:  time.Now(),
	}
	t.stages = append(t.stages, stage)
	return stage
}

// fail records err. Only the first failure of a run is kept as the run's
// error, and a stage only records errors attributed to itself.
func (t *runTracker) fail(stage *stageRecord, err error) {
	if t.firstErr == nil {
		t.firstErr = err
	}
	var se *StageError
	if errors.As(err, &se) && se.Index == stage.index && stage.err == nil {
		stage.err = err
	}
	if stage.endTime.IsZero() {
		stage.endTime = time.Now()
	}
}

// guard wraps a stage's output. Errors are attributed to the stage, and once
// any stage has failed no further item is let through, so stages after a
// failure never produce output even if they ignore their input's error.
func (t *runTracker) guard(stage *stageRecord, s Stream) Stream {
	return func(yield func(Item, error) bool) {
		defer func() {
			if stage.endTime.IsZero() {
				stage.endTime = time.Now()
			}
		}()
		if t.firstErr != nil {
			yield(nil, t.firstErr)
			return
		}
		for item, err := range s {
			if err != nil {
				err = stageError(stage.index, stage.invocation.Name, err)
				t.fail(stage, err)
				yield(nil, t.firstErr)
				return
			}
			if t.firstErr != nil {
				yield(nil, t.firstErr)
				return
			}
			stage.items++
			if !yield(item, nil) {
				return
			}
		}
	}
}
