// Package evidence provides the demo evidence sources used to exercise the
// investigation harness without live integrations. Each tool returns a typed
// result carrying a realistic snapshot of an outage: a production deployment
// that shrank a database connection pool and triggered a 502 storm.
package evidence

import (
	"context"
	"time"

	"github.com/incidentloop/incidentloop/internal/harness"
)

// Result types are stable shapes the Summarize function and the reasoner
// prompts both consume.

// LogEntry is a single structured log line.
type LogEntry struct {
	Timestamp  string `json:"timestamp"`
	Level      string `json:"level"`
	Message    string `json:"message"`
	Service    string `json:"service"`
	Path       string `json:"path,omitempty"`
	DurationMS int    `json:"duration_ms,omitempty"`
}

// LogSummary aggregates a log search window.
type LogSummary struct {
	TotalErrors      int      `json:"total_errors"`
	ErrorRate        string   `json:"error_rate"`
	FirstError       string   `json:"first_error"`
	ServicesAffected []string `json:"services_affected"`
}

// LogSearchResult is the payload of the log_search tool.
type LogSearchResult struct {
	Query   string     `json:"query"`
	Results []LogEntry `json:"results"`
	Summary LogSummary `json:"summary"`
}

// FileChange records a config diff included in a deployment.
type FileChange struct {
	Path    string `json:"path"`
	Changes string `json:"changes"`
}

// Deployment describes one release.
type Deployment struct {
	ID            string       `json:"id"`
	Timestamp     string       `json:"timestamp"`
	Author        string       `json:"author"`
	Environment   string       `json:"environment"`
	Status        string       `json:"status"`
	CommitSHA     string       `json:"commit_sha"`
	CommitMessage string       `json:"commit_message"`
	FilesChanged  []FileChange `json:"files_changed"`
}

// DeploymentHistoryResult is the payload of the deployment_history tool.
type DeploymentHistoryResult struct {
	Recent []Deployment `json:"recent"`
}

// GatewayMetrics holds the api-gateway resource and connection metrics.
type GatewayMetrics struct {
	CPUPercent          float64 `json:"cpu_percent"`
	MemoryPercent       float64 `json:"memory_percent"`
	ActiveConnections   int     `json:"active_connections"`
	MaxConnections      int     `json:"max_connections"`
	ConnectionWaitP99MS int     `json:"connection_wait_time_p99"`
	RequestLatencyP99MS int     `json:"request_latency_p99"`
}

// DatabaseMetrics holds the database pool metrics.
type DatabaseMetrics struct {
	ActiveConnections  int `json:"active_connections"`
	MaxConnections     int `json:"max_connections"`
	QueryLatencyP99MS  int `json:"query_latency_p99"`
	PoolExhaustedCount int `json:"connection_pool_exhausted_count"`
}

// ServiceMetricsResult is the payload of the service_metrics tool. Only the
// section matching the requested service is populated.
type ServiceMetricsResult struct {
	APIGateway *GatewayMetrics  `json:"api_gateway,omitempty"`
	Database   *DatabaseMetrics `json:"database,omitempty"`
}

// Incident is one entry in the on-call incident feed.
type Incident struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
}

// IncidentFeedResult is the payload of the incident_feed tool.
type IncidentFeedResult struct {
	Active []Incident `json:"active"`
}

// sleep blocks for d or until ctx is cancelled, mimicking integration latency.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewDemoRegistry returns a tool registry wired with the four demo evidence
// sources. Latency of zero disables the simulated delays (useful in tests).
func NewDemoRegistry(latency time.Duration) (*harness.Registry, error) {
	reg := harness.NewRegistry()
	tools := []harness.Tool{
		&LogSearchTool{Latency: latency},
		&DeploymentHistoryTool{Latency: latency},
		&ServiceMetricsTool{Latency: latency},
		&IncidentFeedTool{Latency: latency},
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
