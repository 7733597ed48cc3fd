package ai

import "sync"

// ModelUsage is the accumulated consumption for one model.
type ModelUsage struct {
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// UsageSnapshot is a point-in-time copy of the ledger.
type UsageSnapshot struct {
	TotalCost   float64               `json:"total_cost"`
	TotalInput  int                   `json:"total_input_tokens"`
	TotalOutput int                   `json:"total_output_tokens"`
	ByModel     map[string]ModelUsage `json:"by_model"`
	ByTask      map[string]ModelUsage `json:"by_task"`
}

// Usage accumulates token and cost totals per model and per task for
// aggregate reporting. Safe for concurrent use.
type Usage struct {
	mu      sync.Mutex
	byModel map[string]ModelUsage
	byTask  map[string]ModelUsage
}

// NewUsage creates an empty ledger.
func NewUsage() *Usage {
	return &Usage{
		byModel: make(map[string]ModelUsage),
		byTask:  make(map[string]ModelUsage),
	}
}

// Record adds one call's consumption to the ledger. An empty taskID skips
// the per-task bucket.
func (u *Usage) Record(taskID, model string, inputTokens, outputTokens int, cost float64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	m := u.byModel[model]
	m.Requests++
	m.InputTokens += inputTokens
	m.OutputTokens += outputTokens
	m.Cost += cost
	u.byModel[model] = m

	if taskID != "" {
		t := u.byTask[taskID]
		t.Requests++
		t.InputTokens += inputTokens
		t.OutputTokens += outputTokens
		t.Cost += cost
		u.byTask[taskID] = t
	}
}

// Snapshot copies the ledger.
func (u *Usage) Snapshot() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()

	snap := UsageSnapshot{
		ByModel: make(map[string]ModelUsage, len(u.byModel)),
		ByTask:  make(map[string]ModelUsage, len(u.byTask)),
	}
	for model, usage := range u.byModel {
		snap.ByModel[model] = usage
		snap.TotalCost += usage.Cost
		snap.TotalInput += usage.InputTokens
		snap.TotalOutput += usage.OutputTokens
	}
	for task, usage := range u.byTask {
		snap.ByTask[task] = usage
	}
	return snap
}

// TaskCost returns the accumulated cost for one task.
func (u *Usage) TaskCost(taskID string) float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.byTask[taskID].Cost
}
