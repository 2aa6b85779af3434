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
)

// Timestamps are stored as unix nanoseconds so ordering is total and cheap.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id               TEXT PRIMARY KEY,
		type             TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'pending',
		priority         INTEGER NOT NULL DEFAULT 100,
		assigned_machine TEXT,
		data             TEXT NOT NULL DEFAULT '{}',
		source_job_id    TEXT,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_dispatch
		ON jobs(status, priority, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_assigned
		ON jobs(assigned_machine)`,
	`CREATE TABLE IF NOT EXISTS machine_events (
		id          TEXT PRIMARY KEY,
		target      TEXT NOT NULL,
		source      TEXT NOT NULL,
		event_type  TEXT NOT NULL,
		job_id      TEXT,
		payload     TEXT,
		created_at  INTEGER NOT NULL,
		consumed_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_machine_events_target
		ON machine_events(target, consumed_at, created_at)`,
	`CREATE TABLE IF NOT EXISTS machine_state (
		machine_name  TEXT PRIMARY KEY,
		config_type   TEXT NOT NULL,
		current_state TEXT NOT NULL,
		pid           INTEGER NOT NULL DEFAULT 0,
		last_activity INTEGER NOT NULL,
		metadata      TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS realtime_events (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		type         TEXT NOT NULL,
		machine_name TEXT,
		payload      TEXT,
		created_at   INTEGER NOT NULL
	)`,
}

// applySchema runs every schema statement in order; all statements are
// idempotent so restarts are safe.
func (s *Store) applySchema() error {
	for i, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}

	return nil
}
