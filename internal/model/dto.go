package model

// DispatchRequest is the body of POST /v1/tools/dispatch.
type DispatchRequest struct {
	Tool      string         `json:"name" binding:"required"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDescriptor is one entry in the GET /v1/tools listing.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ReadOnly    bool   `json:"read_only"`
	Params      any    `json:"params"`
}

// ErrorResponse is the HTTP error envelope.
type ErrorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}
