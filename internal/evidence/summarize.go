package evidence

import (
	"fmt"
	"strings"
)

// Summarize renders a one-line human summary for a tool result. Shapes it does
// not recognize fall back to a generic line so the transcript never shows raw
// structs.
func Summarize(raw interface{}) string {
	switch r := raw.(type) {
	case *LogSearchResult:
		s := fmt.Sprintf("Found %d log entries", len(r.Results))
		if r.Summary.TotalErrors > 0 || r.Summary.ErrorRate != "" {
			rate := r.Summary.ErrorRate
			if rate == "" {
				rate = "N/A"
			}
			s += fmt.Sprintf(" | %d errors | Error rate: %s", r.Summary.TotalErrors, rate)
		}
		return s
	case *DeploymentHistoryResult:
		if len(r.Recent) == 0 {
			return "Found no recent deployments"
		}
		dep := r.Recent[0]
		s := fmt.Sprintf("Found deployment %s at %s", dep.ID, dep.Timestamp)
		if len(dep.FilesChanged) > 0 {
			paths := make([]string, 0, len(dep.FilesChanged))
			for _, f := range dep.FilesChanged {
				paths = append(paths, f.Path)
			}
			s += " | Changed: " + strings.Join(paths, ", ")
		}
		return s
	case *ServiceMetricsResult:
		if r.APIGateway != nil {
			m := r.APIGateway
			return fmt.Sprintf("CPU: %g%% | Mem: %g%% | Connections: %d/%d",
				m.CPUPercent, m.MemoryPercent, m.ActiveConnections, m.MaxConnections)
		}
		if r.Database != nil {
			m := r.Database
			return fmt.Sprintf("Connections: %d/%d | Query p99: %dms | Pool exhausted: %d times",
				m.ActiveConnections, m.MaxConnections, m.QueryLatencyP99MS, m.PoolExhaustedCount)
		}
		return "No metrics returned"
	case *IncidentFeedResult:
		return fmt.Sprintf("Found %d active incident(s)", len(r.Active))
	case nil:
		return "No result"
	default:
		return fmt.Sprintf("Retrieved result (%T)", raw)
	}
}
