package ingest

import "time"

// ExecutionContext reports how much of the host's time budget is left.
type ExecutionContext interface {
	RemainingBudgetMillis() int64
}

// DeadlineBudget counts down to a fixed deadline.
type DeadlineBudget struct {
	Deadline time.Time
	Now      func() time.Time
}

// NewDeadlineBudget returns a budget that expires d from now.
func NewDeadlineBudget(d time.Duration) DeadlineBudget {
	return DeadlineBudget{Deadline: time.Now().Add(d), Now: time.Now}
}

// RemainingBudgetMillis returns the milliseconds left until the deadline, never negative.
func (b DeadlineBudget) RemainingBudgetMillis() int64 {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	left := b.Deadline.Sub(now()).Milliseconds()
	if left < 0 {
		return 0
	}
	return left
}

// StaticBudget always reports the same remaining time.
type StaticBudget int64

// RemainingBudgetMillis returns b.
func (b StaticBudget) RemainingBudgetMillis() int64 {
	return int64(b)
}

// Decide builds the run result. When less than threshold milliseconds remain
// a copy of cfg is returned as the next config, carrying pendingCursor or
// with any stale cursor cleared. Otherwise the run is complete.
func Decide(remaining, threshold int64, pendingCursor *string, cfg ResourceConfig, batch Batch) ExecutionResult {
	entities := batch.Entities
	if entities == nil {
		entities = NewEntitySet()
	}
	result := ExecutionResult{Entities: entities, SkipDelete: batch.SkipDelete}

	if remaining >= threshold {
		return result
	}

	next := cfg.Clone()
	if pendingCursor != nil {
		tok := *pendingCursor
		next.NextToken = &tok
	} else {
		next.NextToken = nil
	}
	result.NextResourceConfig = &next
	return result
}
