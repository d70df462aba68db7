package http

// HeaderFamilyName carries the family a request acts for.
const HeaderFamilyName = "X-Family-Name"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Store   string `json:"store,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ToggleRequest is the request body for POST /api/toggle.
type ToggleRequest struct {
	Device string `json:"device"`
}

// ToggleResponse is the response body for POST /api/toggle.
type ToggleResponse struct {
	Status string `json:"status"`
	Lights bool   `json:"lights"`
}

// ModeRequest is the request body for POST /api/mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ModeResponse is the response body for POST /api/mode.
type ModeResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// ClimateRequest is the request body for POST /api/climate. Both readings are required.
type ClimateRequest struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// NoteRequest is the request body for POST /api/notes.
type NoteRequest struct {
	Content string `json:"content"`
}
