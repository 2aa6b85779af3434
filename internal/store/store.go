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

// Package store is the embedded SQL database shared by every machine
// process and the CLI: the job queue, the inter-machine event mailbox, the
// live machine-state table, and a bounded ring of realtime frames.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	// Pure-Go sqlite driver.
	_ "modernc.org/sqlite"

	"github.com/retr0h/fsmd/internal/bus"
)

// Store is the handle to the single database file. One writer at a time is
// serialized by sqlite itself; every machine process opens its own handle.
type Store struct {
	logger  *slog.Logger
	db      *sql.DB
	emitter bus.Emitter
	ring    int
}

// Option configures the Store.
type Option func(*Store)

// WithEmitter wires the datagram emitter mutators use to publish realtime
// frames. Emission is best-effort and never fails the primary mutation.
func WithEmitter(e bus.Emitter) Option {
	return func(s *Store) { s.emitter = e }
}

// WithRealtimeRing bounds the persisted realtime_events ring. Zero disables
// persistence.
func WithRealtimeRing(n int) Option {
	return func(s *Store) { s.ring = n }
}

// New opens (creating if needed) the database file and applies the schema.
func New(
	logger *slog.Logger,
	path string,
	opts ...Option,
) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &Store{
		logger: logger,
		db:     db,
		ring:   1000,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applySchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// emit publishes a realtime frame for a completed mutation: into the
// persisted ring and onto the datagram fabric. Failures are logged only.
func (s *Store) emit(frame bus.Frame) {
	if s.ring > 0 {
		if err := s.appendRealtime(frame); err != nil {
			s.logger.Warn(
				"failed to persist realtime frame",
				slog.String("type", frame.Type),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.emitter != nil {
		s.emitter.Emit(frame)
	}
}

func marshalJSON(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func unmarshalMap(data string) map[string]any {
	if data == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func unmarshalAny(data string) any {
	if data == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil
	}
	return v
}
