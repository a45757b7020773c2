package promptdeck

// ExecutePipelineRequest carries the input document for a published
// pipeline execution.
type ExecutePipelineRequest struct {
	Input map[string]any `json:"input"`
}

// NodeResult is the simulated outcome of one pipeline node.
type NodeResult struct {
	NodeID     string `json:"node_id"`
	Type       string `json:"type"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
}

// ExecutePipelineResponse is the execution verdict. Failures that are
// part of the execution contract (unknown key, unresolvable slug) come
// back with Success false and an error entry in Output, still as HTTP
// 200.
type ExecutePipelineResponse struct {
	Success         bool           `json:"success"`
	Output          map[string]any `json:"output"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	NodeResults     []NodeResult   `json:"node_results"`
}

// ValidateGraphRequest wraps a pipeline graph document for server-side
// validation.
type ValidateGraphRequest struct {
	Graph map[string]any `json:"graph"`
}

// ValidateGraphResponse reports the validation verdict with errors in
// discovery order.
type ValidateGraphResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
