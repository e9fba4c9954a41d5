package websocket

import "time"

// EventType represents the type of event sent over the feed.
type EventType string

const (
	// EventTypeDetection carries a per-document detection summary.
	EventTypeDetection EventType = "detection"
	// EventTypeSystemStatus carries periodic system status.
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection carries client connect/disconnect notices.
	EventTypeConnection EventType = "connection"
)

// Event is one message on the feed.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DetectionEvent summarizes one processed document. It carries type
// names and counts only; matched values never go over the feed.
type DetectionEvent struct {
	TotalMatches int            `json:"total_matches"`
	ByType       map[string]int `json:"by_type"`
	Anonymized   bool           `json:"anonymized"`
	TextLength   int            `json:"text_length"`
	ProcessingMS float64        `json:"processing_ms"`
}

// SystemStatusEvent reports service health over the feed.
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalDetections  int64  `json:"total_detections"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent reports client connection changes.
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
}
