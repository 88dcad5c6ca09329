package api

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// CreateCampaignRequest is the body of POST /api/v1/campaigns.
type CreateCampaignRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// StartJobResponse is returned by POST endpoints that enqueue a
// background job (spec.md §4.9): callers poll GET /api/v1/jobs/:id.
type StartJobResponse struct {
	JobID    string `json:"job_id"`
	TraceID  string `json:"trace_id"`
	Status   string `json:"status"`
	Location string `json:"location"`
}
