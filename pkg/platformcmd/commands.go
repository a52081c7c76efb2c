// Package platformcmd holds the canonical per-OS command table. Its only
// consumer in this module is the operator HTTP API (internal/httpserver),
// which exposes lookups read-only; the metrics/log collaborators are
// contracts only, and neither autoheal nor the executor reads the table.
package platformcmd

import "fmt"

// Metric names the category of command being looked up.
type Metric string

const (
	MetricCPU     Metric = "cpu"
	MetricMemory  Metric = "memory"
	MetricProcess Metric = "process"
	MetricDisk    Metric = "disk"
	MetricNetwork Metric = "network"
)

// table[os][metric] = shell command template.
var table = map[string]map[Metric]string{
	"linux": {
		MetricCPU:     "top -bn1 | grep 'Cpu(s)' | awk '{print $2}'",
		MetricMemory:  "free -m | awk '/Mem:/ {printf \"%.2f\", $3/$2*100}'",
		MetricProcess: "pgrep -f '{process}' >/dev/null && echo running || echo stopped",
		MetricDisk:    "df -P | awk 'NR>1 {print $6, $5}'",
		MetricNetwork: "ss -s",
	},
	"darwin": {
		MetricCPU:     "top -l 1 | grep 'CPU usage' | awk '{print $3}'",
		MetricMemory:  "vm_stat | awk '/Pages active/ {print $3}'",
		MetricProcess: "pgrep -f '{process}' >/dev/null && echo running || echo stopped",
		MetricDisk:    "df -P | awk 'NR>1 {print $9, $5}'",
		MetricNetwork: "netstat -s",
	},
}

// Command returns the canonical command template for metric on platform.
// Returns an error of the form "Unsupported platform: <name>" for an
// unrecognized OS name.
func Command(platform string, metric Metric) (string, error) {
	cmds, ok := table[platform]
	if !ok {
		return "", fmt.Errorf("Unsupported platform: %s", platform)
	}
	cmd, ok := cmds[metric]
	if !ok {
		return "", fmt.Errorf("Unsupported platform: %s", platform)
	}
	return cmd, nil
}

// Supported returns the list of platform names the table covers.
func Supported() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}
