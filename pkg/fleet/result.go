package fleet

import "time"

// ExecutionResult is the outcome of running one command against one host.
type ExecutionResult struct {
	Host       string    `json:"host"`
	Success    bool      `json:"success"`
	ExitCode   int       `json:"exit_code"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summary aggregates a BatchResult's outcome counts.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BatchResult aggregates ExecutionResults across a fan-out.
type BatchResult struct {
	Results        []ExecutionResult `json:"results"`
	Summary        Summary           `json:"summary"`
	OverallSuccess bool              `json:"overall_success"`
}

// NewBatchResult computes the Summary and OverallSuccess fields from results.
func NewBatchResult(results []ExecutionResult) BatchResult {
	s := Summary{Total: len(results)}
	allOK := true
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
			allOK = false
		}
	}
	return BatchResult{
		Results:        results,
		Summary:        s,
		OverallSuccess: allOK,
	}
}
