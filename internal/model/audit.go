package model

import (
	"time"
)

// AuditLog is one recorded gateway request, usually a tool dispatch.
type AuditLog struct {
	ID        string `json:"id"`
	Tool      string `json:"tool,omitempty"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	// RequestBody is stored after redaction; secrets never reach disk.
	RequestBody string `json:"request_body"`

	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// Context carries extra dispatch detail such as the error type or
	// the upstream order id.
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
