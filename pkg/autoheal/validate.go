package autoheal

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
)

const maxScenarioLen = 50

// validScenarios is the closed set of recognized scenario names.
var validScenarios = map[string]bool{
	"disk_space_low": true,
	"process_down":   true,
	"memory_leak":    true,
	"api_slow":       true,
	"ssl_expiring":   true,
}

var processNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var validProcessStatus = map[string]bool{
	"running": true, "crashed": true, "stopped": true, "unknown": true,
}

// numericKeys are the context fields validated as finite numbers in
// [0, 1_000_000].
var numericKeys = map[string]bool{
	"disk_usage": true, "memory_usage": true, "api_latency_ms": true, "ssl_expires_in_days": true,
}

// ValidatedContext is context after type-checking, with numeric fields
// available both as typed values (for condition evaluation) and generic
// values (for template substitution).
type ValidatedContext struct {
	Numeric map[string]float64
	Strings map[string]string
}

// validateScenario enforces the scenario name constraints.
func validateScenario(scenario string) (string, error) {
	if scenario == "" {
		return "", fmt.Errorf("scenario must not be empty")
	}
	if len(scenario) > maxScenarioLen {
		return "", fmt.Errorf("scenario exceeds %d characters", maxScenarioLen)
	}
	if !validScenarios[scenario] {
		return "", fmt.Errorf("unknown scenario %q", scenario)
	}
	return scenario, nil
}

// validateContext type-checks each declared key; unknown keys are
// dropped with a warning rather than causing failure.
func validateContext(raw map[string]any, log *slog.Logger) (ValidatedContext, error) {
	if log == nil {
		log = slog.Default()
	}
	out := ValidatedContext{Numeric: make(map[string]float64), Strings: make(map[string]string)}

	for key, val := range raw {
		switch {
		case numericKeys[key]:
			n, ok := asFloat(val)
			if !ok || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > 1_000_000 {
				return ValidatedContext{}, fmt.Errorf("context key %q: invalid numeric value %v", key, val)
			}
			out.Numeric[key] = n
		case key == "process_name":
			s, ok := val.(string)
			if !ok || len(s) > 100 || !processNamePattern.MatchString(s) {
				return ValidatedContext{}, fmt.Errorf("context key %q: invalid process name %v", key, val)
			}
			out.Strings[key] = s
		case key == "process_status":
			s, ok := val.(string)
			if !ok || !validProcessStatus[s] {
				return ValidatedContext{}, fmt.Errorf("context key %q: invalid enum value %v", key, val)
			}
			out.Strings[key] = s
		default:
			log.Warn("autoheal: dropping unrecognized context key", "key", key)
		}
	}
	return out, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// templateValues merges numeric and string fields into a single
// placeholder-substitution map.
func (c ValidatedContext) templateValues() map[string]string {
	out := make(map[string]string, len(c.Numeric)+len(c.Strings))
	for k, v := range c.Numeric {
		out[k] = formatNumber(v)
	}
	for k, v := range c.Strings {
		out[k] = v
	}
	return out
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
