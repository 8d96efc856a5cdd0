package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NodeListResponse represents the available-nodes listing
type NodeListResponse struct {
	Nodes []TargetNode `json:"nodes"`
	Count int          `json:"count"`
}

// StatusResponse represents the controller status
type StatusResponse struct {
	Status   OffloadStatus `json:"status"`
	Active   bool          `json:"active"`
	TargetID string        `json:"target_id,omitempty"`
}

// CommandResponse represents the outcome of a boolean command
type CommandResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StartRequest represents a start-offload request body
type StartRequest struct {
	DataIDs []string `json:"data_ids,omitempty"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}
