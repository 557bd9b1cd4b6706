// Package events provides event management functionality.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents different event types
type EventType string

const (
	SnapshotReplaced EventType = "SNAPSHOT_REPLACED"
	UploadFailed     EventType = "UPLOAD_FAILED"
	UploadsPurged    EventType = "UPLOADS_PURGED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type the stream forwards by default
var AllEventTypes = []EventType{SnapshotReplaced, UploadFailed, UploadsPurged, ErrorOccurred}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// EventData is implemented by every typed event payload
type EventData interface {
	EventType() EventType
}

// SnapshotReplacedData contains data for SnapshotReplaced events
type SnapshotReplacedData struct {
	UploadID  string `json:"upload_id"`
	Holdings  int    `json:"holdings"`
	Dates     int    `json:"dates"`
	FirstDate string `json:"first_date,omitempty"`
	LastDate  string `json:"last_date,omitempty"`
}

// EventType returns the event type for SnapshotReplacedData
func (d *SnapshotReplacedData) EventType() EventType {
	return SnapshotReplaced
}

// UploadFailedData contains data for UploadFailed events
type UploadFailedData struct {
	Reason string `json:"reason"`
	Kind   string `json:"kind"` // missing_input, malformed_input, internal
}

// EventType returns the event type for UploadFailedData
func (d *UploadFailedData) EventType() EventType {
	return UploadFailed
}

// UploadsPurgedData contains data for UploadsPurged events
type UploadsPurgedData struct {
	Removed int `json:"removed"`
}

// EventType returns the event type for UploadsPurgedData
func (d *UploadsPurgedData) EventType() EventType {
	return UploadsPurged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// GetTypedData converts the Data map back into the typed payload for the event type
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case SnapshotReplaced:
		data = &SnapshotReplacedData{}
	case UploadFailed:
		data = &UploadFailedData{}
	case UploadsPurged:
		data = &UploadsPurgedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}
