package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in the batch lifecycle
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// Job is the job ID this event relates to (empty for batch events)
	Job string `json:"job,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Batch lifecycle events
const (
	BatchStarted   EventType = "batch.started"
	BatchCompleted EventType = "batch.completed"
	BatchFailed    EventType = "batch.failed"

	// Dry-run events (no uploads, no pipeline invocations)
	BatchDryRunStarted   EventType = "batch.dryrun.started"
	BatchDryRunCompleted EventType = "batch.dryrun.completed"
)

// Job lifecycle events
const (
	JobQueued        EventType = "job.queued"
	JobSkipped       EventType = "job.skipped" // Terminal: output already complete, rerun mode
	JobUploadStarted EventType = "job.upload.started"
	JobUploaded      EventType = "job.uploaded"
	JobStarted       EventType = "job.started" // Pipeline process spawned
	JobCompleted     EventType = "job.completed"
	JobFailed        EventType = "job.failed"
)

// Input validation events
const (
	// InputRejected is emitted when a pre-flight check excludes an input
	// before any job is created for it. The input path rides in the Job
	// field and the reason in Error.
	InputRejected EventType = "input.rejected"
)

// NewEvent creates an event with the given type and job ID
func NewEvent(eventType EventType, job string) Event {
	return Event{
		Type: eventType,
		Job:  job,
	}
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithError returns a copy of the event with the error message set
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure returns true if this is a failure event type
func (e Event) IsFailure() bool {
	return strings.HasSuffix(string(e.Type), ".failed") || e.Type == InputRejected
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Job != "" {
		parts = append(parts, e.Job)
	}

	if e.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%q", e.Error))
	}

	return strings.Join(parts, " ")
}
