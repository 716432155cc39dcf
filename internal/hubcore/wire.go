package hubcore

import "encoding/json"

// TaskMessage is one message in a task's conversation, following the
// A2A wire format. Parts is required; Metadata is an extension this
// hub adds to carry structured annotations such as a handler's
// self-reported confidence.
type TaskMessage struct {
	// Role is the message role ("user", "agent", or "system").
	Role string `json:"role"`
	// Parts are the ordered content parts that make up the message.
	Parts []*MessagePart `json:"parts"`
	// Metadata carries implementation-defined annotations, such as a
	// handler's confidence score.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MessagePart is one part of a TaskMessage: text, structured data, or
// a file reference.
type MessagePart struct {
	// Type identifies the part kind: "text", "data", or "file".
	Type string `json:"type"`
	// Text is the textual content when Type == "text".
	Text *string `json:"text,omitempty"`
	// Data is the structured payload when Type == "data".
	Data json.RawMessage `json:"data,omitempty"`
	// MIMEType is the MIME type when Type == "file".
	MIMEType *string `json:"mimeType,omitempty"`
	// URI is the file URI when Type == "file".
	URI *string `json:"uri,omitempty"`
}

// TextPart builds a MessagePart carrying plain text.
func TextPart(text string) *MessagePart {
	return &MessagePart{Type: "text", Text: &text}
}

// TaskStatus is a task status snapshot, as attached to a "status"
// TaskEvent.
type TaskStatus struct {
	// State is the canonical task state.
	State string `json:"state"`
	// Message is an optional human-readable status message.
	Message *TaskMessage `json:"message,omitempty"`
	// Timestamp is an RFC3339 timestamp for the status update.
	Timestamp string `json:"timestamp,omitempty"`
}

// TaskEvent is emitted by message/stream to report incremental task
// progress. Exactly one of Status, Artifact, or Message is set
// depending on Type.
type TaskEvent struct {
	// Type identifies the event kind: "status", "artifact", "message",
	// or "error".
	Type string `json:"type"`
	// TaskID is the ID of the task this event belongs to.
	TaskID string `json:"taskId"`
	// Status carries the task status for "status" events.
	Status *TaskStatus `json:"status,omitempty"`
	// Artifact carries the artifact for "artifact" events.
	Artifact *Artifact `json:"artifact,omitempty"`
	// Message carries the message for "message" events.
	Message *TaskMessage `json:"message,omitempty"`
	// Final reports whether this is the last event for the task.
	Final bool `json:"final,omitempty"`
}

// Artifact is an output artifact attached to a task, such as a file or
// a structured result.
type Artifact struct {
	// Name is the optional display name for the artifact.
	Name *string `json:"name,omitempty"`
	// Description is an optional human-readable description.
	Description *string `json:"description,omitempty"`
	// Parts are the content parts that make up the artifact.
	Parts []*MessagePart `json:"parts"`
	// Index is an optional sequence index for incremental artifacts.
	Index *int `json:"index,omitempty"`
	// Append indicates whether this artifact appends to a previous one.
	Append *bool `json:"append,omitempty"`
	// LastChunk reports whether this is the final chunk in a streaming
	// artifact sequence.
	LastChunk *bool `json:"lastChunk,omitempty"`
	// Metadata carries implementation-defined artifact metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}
