package types

// QueryResponse is returned by GET /api/status/query and carried inside every
// SSE "update" message.
type QueryResponse struct {
	// Always true; failures use ErrorResponse instead.
	// example: true
	Success bool `json:"success" example:"true"`
	// Server time in unix seconds (fractional).
	// example: 1700000000.123
	Time float64 `json:"time" example:"1700000000.123"`
	// Resolved manual status. Unknown ids resolve to the {-1,"[unknown]"} sentinel.
	Status StatusItem `json:"status"`
	// Device map keyed by device id. Empty when private mode is on.
	Device map[string]Device `json:"device"`
	// Unix seconds (fractional) of the last accepted mutation.
	// example: 1700000000.123
	LastUpdated float64 `json:"last_updated" example:"1700000000.123"`
}

// DeviceSetRequest is the payload of POST /api/device/set. Pointer fields
// distinguish "omitted" from zero values so upserts merge instead of replace.
type DeviceSetRequest struct {
	// Required device id (map key).
	// example: desktop-1
	ID string `json:"id" example:"desktop-1"`
	// Display name shown to viewers.
	// example: My Desktop
	ShowName *string `json:"show_name,omitempty" example:"My Desktop"`
	// Whether the device is currently in use.
	// example: true
	Using *bool `json:"using,omitempty" example:"true"`
	// Free-form activity description.
	// example: coding
	Status *string `json:"status,omitempty" example:"coding"`
	// Legacy alias for status, kept for old clients.
	AppName *string `json:"app_name,omitempty"`
	// Extra values merged into the device's field map.
	Fields map[string]any `json:"fields,omitempty"`
}

// StatusListResponse wraps the catalog returned by GET /api/status/list.
type StatusListResponse struct {
	Success    bool         `json:"success"`
	StatusList []StatusItem `json:"status_list"`
}

// SetStatusResponse is returned by GET /api/status/set.
type SetStatusResponse struct {
	Success bool `json:"success"`
	// The id actually committed (handlers may rewrite the requested one).
	// example: 1
	SetTo int `json:"set_to" example:"1"`
}

// SuccessResponse is the minimal success envelope for mutating endpoints.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the consistent JSON failure payload.
type ErrorResponse struct {
	// Always false.
	Success bool `json:"success"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Human-readable message.
	// example: argument 'status' must be int
	Message string `json:"message" example:"argument 'status' must be int"`
	// Optional machine-readable detail.
	Details string `json:"details,omitempty"`
}

// MetaResponse describes the deployment for GET /api/meta.
type MetaResponse struct {
	Success  bool           `json:"success"`
	Version  string         `json:"version"`
	Timezone string         `json:"timezone"`
	Page     map[string]any `json:"page"`
	Status   map[string]any `json:"status"`
	Metrics  bool           `json:"metrics"`
}

// MetricsResponse is the JSON view of per-path visit counters for GET /api/metrics.
type MetricsResponse struct {
	Success bool              `json:"success"`
	Time    float64           `json:"time"`
	Visits  map[string]uint64 `json:"visits"`
}
