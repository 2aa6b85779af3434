// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package store

import (
	"time"
)

// Status represents the current status of a job.
type Status string

const (
	// StatusPending indicates the job is queued but not yet claimed.
	StatusPending Status = "pending"
	// StatusProcessing indicates a machine has claimed the job.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates the job completed successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job failed during processing.
	StatusFailed Status = "failed"
)

// Job is one unit of work in the shared queue.
type Job struct {
	// ID is the unique identifier for this job.
	ID string `json:"id"`
	// Type routes the job to machines polling for it.
	Type string `json:"type"`
	// Status tracks the job lifecycle.
	Status Status `json:"status"`
	// Priority orders dispatch; lower first.
	Priority int `json:"priority"`
	// AssignedMachine optionally pins the job to a machine name.
	AssignedMachine string `json:"assigned_machine,omitempty"`
	// Data is the opaque job payload.
	Data map[string]any `json:"data"`
	// SourceJobID links to the parent job when spawned by another job.
	SourceJobID string `json:"source_job_id,omitempty"`
	// CreatedAt is when the job was enqueued.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the job last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is a one-shot message queued for a named target machine.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`
	// Target is the machine this event is addressed to.
	Target string `json:"target"`
	// Source is the machine that produced the event.
	Source string `json:"source"`
	// EventType names the event; transitions key on it.
	EventType string `json:"event_type"`
	// JobID optionally links the event to a job.
	JobID string `json:"job_id,omitempty"`
	// Payload carries event data.
	Payload any `json:"payload,omitempty"`
	// CreatedAt is when the event was produced.
	CreatedAt time.Time `json:"created_at"`
	// ConsumedAt marks at-most-once consumption; nil while pending.
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// MachineState is the live-state row for one running machine.
type MachineState struct {
	// MachineName is the unique name of the running machine.
	MachineName string `json:"machine_name"`
	// ConfigType is the name declared in the machine's YAML.
	ConfigType string `json:"config_type"`
	// CurrentState is the machine's current FSM state.
	CurrentState string `json:"current_state"`
	// PID of the hosting process.
	PID int `json:"pid"`
	// LastActivity is refreshed on every tick.
	LastActivity time.Time `json:"last_activity"`
	// Metadata carries machine-specific details for the UI.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RealtimeRecord is one persisted realtime frame, retained in a bounded
// ring for late-joining UI clients.
type RealtimeRecord struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	MachineName string    `json:"machine_name,omitempty"`
	Payload     any       `json:"payload,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
