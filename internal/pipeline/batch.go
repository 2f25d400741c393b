package pipeline

import (
	"context"
	"fmt"

	"reelvault/internal/jobs"
	"reelvault/internal/logging"
)

// BatchOutcome reports one item's result within a batch run.
type BatchOutcome struct {
	Payload   Payload
	Artifacts map[string]string
	Err       error
}

// ExecuteBatch runs the single-job Executor over each payload in order. One
// item's failure is recorded, marked on its metadata row, and does not stop
// the remaining items. Progress is reported as (items done, total), a
// coarser signal than the per-job percentage.
func (e *Executor) ExecuteBatch(ctx context.Context, payloads []Payload, cb jobs.Callbacks) []BatchOutcome {
	cb = ensureCallbacks(cb)
	total := len(payloads)
	outcomes := make([]BatchOutcome, 0, total)

	for i, payload := range payloads {
		cb.Status(fmt.Sprintf("Processing (%d/%d): %s", i+1, total, payload.RawFilename))

		artifacts, err := e.Execute(ctx, payload, cb)
		if err != nil {
			cb.Log(fmt.Sprintf("에러 발생 (%s): %v", payload.RawFilename, err))
			e.logger.Error("batch item failed",
				logging.String("file", payload.RawFilename),
				logging.Error(err))
			e.markErrored(ctx, payload, err)
		}
		outcomes = append(outcomes, BatchOutcome{Payload: payload, Artifacts: artifacts, Err: err})
		cb.Progress(i+1, total)
	}
	return outcomes
}
