package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update for a task
type WSProgressMessage struct {
	Type     string     `json:"type"`
	TaskID   string     `json:"taskId"`
	Status   TaskStatus `json:"status"`
	Progress Progress   `json:"progress"`
}

// WSCompleteMessage represents task completion
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	TaskID string      `json:"taskId"`
	Result interface{} `json:"result"`
}

// WSErrorMessage represents a task failure
type WSErrorMessage struct {
	Type   string  `json:"type"`
	TaskID string  `json:"taskId"`
	Error  WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
