package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFunnelStepDue = "funnels.step.due"

const TaskFunnelSweep = "funnels.sweep"

type FunnelStepDuePayload struct {
	LeadID     string `json:"leadId"`
	FunnelType string `json:"funnelType"`
}

func NewFunnelStepDueTask(payload FunnelStepDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFunnelStepDue, data), nil
}

func ParseFunnelStepDuePayload(task *asynq.Task) (FunnelStepDuePayload, error) {
	var payload FunnelStepDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FunnelStepDuePayload{}, err
	}
	return payload, nil
}

// NewFunnelSweepTask is the periodic catch-all pass. It carries no payload;
// the handler scans for anything due that a per-lead task missed.
func NewFunnelSweepTask() *asynq.Task {
	return asynq.NewTask(TaskFunnelSweep, nil)
}
