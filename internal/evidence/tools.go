package evidence

import (
	"context"
	"time"

	"github.com/incidentloop/incidentloop/internal/harness"
)

// LogSearchTool simulates a structured log search backend.
type LogSearchTool struct {
	Latency time.Duration
}

var _ harness.Tool = (*LogSearchTool)(nil)

func (t *LogSearchTool) Name() string        { return "log_search" }
func (t *LogSearchTool) Description() string { return "Search application logs" }

func (t *LogSearchTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := sleep(ctx, t.Latency); err != nil {
		return nil, err
	}
	query, _ := params["query"].(string)
	if query == "" {
		query = "service:api-gateway status:error"
	}
	return &LogSearchResult{
		Query: query,
		Results: []LogEntry{
			{Timestamp: "2024-01-15T14:20:01Z", Level: "INFO", Message: "Deployment abc123 started", Service: "deploy-manager"},
			{Timestamp: "2024-01-15T14:20:45Z", Level: "INFO", Message: "Deployment abc123 completed successfully", Service: "deploy-manager"},
			{Timestamp: "2024-01-15T14:21:03Z", Level: "WARN", Message: "Connection pool exhausted, waiting for available connection", Service: "api-gateway"},
			{Timestamp: "2024-01-15T14:21:15Z", Level: "ERROR", Message: "HTTP 502 Bad Gateway - upstream connection timeout", Service: "api-gateway", Path: "/api/users", DurationMS: 30000},
			{Timestamp: "2024-01-15T14:21:16Z", Level: "ERROR", Message: "HTTP 502 Bad Gateway - upstream connection timeout", Service: "api-gateway", Path: "/api/orders", DurationMS: 30000},
			{Timestamp: "2024-01-15T14:21:18Z", Level: "ERROR", Message: "HTTP 502 Bad Gateway - upstream connection timeout", Service: "api-gateway", Path: "/api/users", DurationMS: 30000},
			{Timestamp: "2024-01-15T14:22:30Z", Level: "ERROR", Message: "Database connection timeout after 30s", Service: "user-service"},
			{Timestamp: "2024-01-15T14:23:00Z", Level: "ERROR", Message: "Circuit breaker OPEN for user-service", Service: "api-gateway"},
		},
		Summary: LogSummary{
			TotalErrors:      47,
			ErrorRate:        "23.5%",
			FirstError:       "2024-01-15T14:21:15Z",
			ServicesAffected: []string{"api-gateway", "user-service"},
		},
	}, nil
}

// DeploymentHistoryTool simulates a release-history backend.
type DeploymentHistoryTool struct {
	Latency time.Duration
}

var _ harness.Tool = (*DeploymentHistoryTool)(nil)

func (t *DeploymentHistoryTool) Name() string        { return "deployment_history" }
func (t *DeploymentHistoryTool) Description() string { return "Get recent deployments" }

func (t *DeploymentHistoryTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := sleep(ctx, t.Latency); err != nil {
		return nil, err
	}
	return &DeploymentHistoryResult{
		Recent: []Deployment{
			{
				ID:            "abc123",
				Timestamp:     "2024-01-15T14:20:00Z",
				Author:        "developer@company.com",
				Environment:   "production",
				Status:        "success",
				CommitSHA:     "a1b2c3d4",
				CommitMessage: "Reduce connection pool for cost savings",
				FilesChanged: []FileChange{
					{Path: "config/database.yaml", Changes: "pool_size: 10 → pool_size: 5"},
					{Path: "config/timeouts.yaml", Changes: "connection_timeout: 30s → connection_timeout: 10s"},
				},
			},
		},
	}, nil
}

// ServiceMetricsTool simulates an infrastructure metrics backend. The
// "service" parameter selects which section of the snapshot is returned.
type ServiceMetricsTool struct {
	Latency time.Duration
}

var _ harness.Tool = (*ServiceMetricsTool)(nil)

func (t *ServiceMetricsTool) Name() string        { return "service_metrics" }
func (t *ServiceMetricsTool) Description() string { return "Query infrastructure metrics" }

func (t *ServiceMetricsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := sleep(ctx, t.Latency); err != nil {
		return nil, err
	}
	service, _ := params["service"].(string)
	res := &ServiceMetricsResult{}
	switch service {
	case "database":
		res.Database = &DatabaseMetrics{
			ActiveConnections:  5,
			MaxConnections:     5,
			QueryLatencyP99MS:  850,
			PoolExhaustedCount: 127,
		}
	default:
		res.APIGateway = &GatewayMetrics{
			CPUPercent:          45.2,
			MemoryPercent:       78.5,
			ActiveConnections:   98,
			MaxConnections:      100,
			ConnectionWaitP99MS: 4500,
			RequestLatencyP99MS: 2800,
		}
	}
	return res, nil
}

// IncidentFeedTool simulates the on-call incident feed.
type IncidentFeedTool struct {
	Latency time.Duration
}

var _ harness.Tool = (*IncidentFeedTool)(nil)

func (t *IncidentFeedTool) Name() string        { return "incident_feed" }
func (t *IncidentFeedTool) Description() string { return "Get active incidents" }

func (t *IncidentFeedTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := sleep(ctx, t.Latency); err != nil {
		return nil, err
	}
	return &IncidentFeedResult{
		Active: []Incident{
			{
				ID:        "INC-4521",
				Title:     "High error rate on api-gateway",
				Severity:  "P2",
				CreatedAt: "2024-01-15T14:25:00Z",
				Status:    "triggered",
			},
		},
	}, nil
}
