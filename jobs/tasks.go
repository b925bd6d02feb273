package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTotalsIntegrity is the task type for the nightly document
	// totals check.
	TaskTotalsIntegrity = "billing:totals_integrity"
)

// TotalsIntegrityPayload configures a totals check run. Tolerance is the
// largest acceptable absolute drift between a stored header total and
// the sum of its lines, in currency units.
type TotalsIntegrityPayload struct {
	Tolerance float64 `json:"tolerance"`
}

// NewTotalsIntegrityTask constructs an Asynq task.
func NewTotalsIntegrityTask(payload TotalsIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTotalsIntegrity, data), nil
}
