package models

// AnalysisRequest is the JSON/form body of POST /analyze.
// The screenshot itself arrives as a multipart file and is not bound here.
type AnalysisRequest struct {
	Message  string `json:"message,omitempty" form:"message"`
	ImageURL string `json:"image_url,omitempty" form:"image_url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AnalysisResponse is returned once a run reaches a terminal state
type AnalysisResponse struct {
	SessionID   string                 `json:"session_id"`
	State       string                 `json:"state"`
	Verdict     *Verdict               `json:"verdict,omitempty"`
	InputSource InputSource            `json:"input_source,omitempty"`
	Diagnostics *ExtractionDiagnostics `json:"diagnostics,omitempty"`
	ElapsedMS   int64                  `json:"elapsed_ms"`
}

// StateResponse reports the live pipeline state of a session
type StateResponse struct {
	SessionID string   `json:"session_id"`
	State     string   `json:"state"`
	Busy      bool     `json:"busy"`
	Verdict   *Verdict `json:"verdict,omitempty"`
}
