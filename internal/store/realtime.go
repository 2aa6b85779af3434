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
	"time"

	"github.com/retr0h/fsmd/internal/bus"
)

// appendRealtime persists a frame into the bounded ring, pruning the oldest
// rows past the configured size.
func (s *Store) appendRealtime(frame bus.Frame) error {
	_, err := s.db.Exec(
		`INSERT INTO realtime_events (type, machine_name, payload, created_at)
		 VALUES (?, ?, ?, ?)`,
		frame.Type,
		frame.MachineName,
		marshalJSON(frame.Payload),
		time.Now().UnixNano(),
	)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`DELETE FROM realtime_events WHERE id <= (
			SELECT id FROM realtime_events
			ORDER BY id DESC LIMIT 1 OFFSET ?
		 )`,
		s.ring,
	)

	return err
}

// ListRecentFrames returns the newest n persisted frames, oldest first, for
// late-joining clients.
func (s *Store) ListRecentFrames(n int) ([]RealtimeRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, type, COALESCE(machine_name, ''), payload, created_at
		 FROM (
			SELECT id, type, machine_name, payload, created_at
			FROM realtime_events ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list realtime frames: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []RealtimeRecord
	for rows.Next() {
		var (
			record    RealtimeRecord
			payload   string
			createdAt int64
		)
		err := rows.Scan(
			&record.ID,
			&record.Type,
			&record.MachineName,
			&payload,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		record.Payload = unmarshalAny(payload)
		record.CreatedAt = time.Unix(0, createdAt)
		records = append(records, record)
	}

	return records, rows.Err()
}
