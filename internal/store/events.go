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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retr0h/fsmd/internal/bus"
)

// SendEvent appends an event to the target machine's mailbox and returns
// its id. The datagram accelerator path is the caller's concern; the
// mailbox row is the source of truth.
func (s *Store) SendEvent(
	target, source, eventType, jobID string,
	payload any,
) (string, error) {
	id := uuid.New().String()

	_, err := s.db.Exec(
		`INSERT INTO machine_events
			(id, target, source, event_type, job_id, payload, created_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?)`,
		id,
		target,
		source,
		eventType,
		jobID,
		marshalJSON(payload),
		time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to send event: %w", err)
	}

	s.emit(bus.NewFrame(bus.FrameMachineEvent, source, map[string]any{
		"event_id":   id,
		"target":     target,
		"event_type": eventType,
		"job_id":     jobID,
	}))

	return id, nil
}

// GetPendingEvents returns unconsumed events for the target in created_at
// order, optionally filtered to the given event types.
func (s *Store) GetPendingEvents(
	target string,
	types []string,
) ([]Event, error) {
	query := `SELECT id, target, source, event_type,
			COALESCE(job_id, ''), payload, created_at, consumed_at
		 FROM machine_events
		 WHERE target = ? AND consumed_at IS NULL`
	args := []any{target}

	if len(types) > 0 {
		query += fmt.Sprintf(
			" AND event_type IN (%s)",
			strings.TrimSuffix(strings.Repeat("?,", len(types)), ","),
		)
		for _, t := range types {
			args = append(args, t)
		}
	}

	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			payload    string
			createdAt  int64
			consumedAt *int64
		)
		err := rows.Scan(
			&event.ID,
			&event.Target,
			&event.Source,
			&event.EventType,
			&event.JobID,
			&payload,
			&createdAt,
			&consumedAt,
		)
		if err != nil {
			return nil, err
		}

		event.Payload = unmarshalAny(payload)
		event.CreatedAt = time.Unix(0, createdAt)
		if consumedAt != nil {
			t := time.Unix(0, *consumedAt)
			event.ConsumedAt = &t
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// MarkConsumed stamps an event consumed. Marking an already-consumed event
// is a no-op, which keeps duplicate datagram delivery harmless.
func (s *Store) MarkConsumed(eventID string) error {
	_, err := s.db.Exec(
		`UPDATE machine_events SET consumed_at = ?
		 WHERE id = ? AND consumed_at IS NULL`,
		time.Now().UnixNano(),
		eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark event consumed: %w", err)
	}

	return nil
}

// ClearEvents marks all matching unconsumed events consumed and returns how
// many were cleared.
func (s *Store) ClearEvents(
	target string,
	types []string,
) (int64, error) {
	query := `UPDATE machine_events SET consumed_at = ?
		 WHERE target = ? AND consumed_at IS NULL`
	args := []any{time.Now().UnixNano(), target}

	if len(types) > 0 {
		query += fmt.Sprintf(
			" AND event_type IN (%s)",
			strings.TrimSuffix(strings.Repeat("?,", len(types)), ","),
		)
		for _, t := range types {
			args = append(args, t)
		}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear events: %w", err)
	}

	n, _ := res.RowsAffected()
	return n, nil
}
