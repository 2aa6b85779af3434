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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/retr0h/fsmd/internal/bus"
)

// UpsertMachineState writes the live-state row for a machine and emits a
// state_change frame.
func (s *Store) UpsertMachineState(state MachineState) error {
	_, err := s.db.Exec(
		`INSERT INTO machine_state
			(machine_name, config_type, current_state, pid, last_activity, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(machine_name) DO UPDATE SET
			config_type = excluded.config_type,
			current_state = excluded.current_state,
			pid = excluded.pid,
			last_activity = excluded.last_activity,
			metadata = excluded.metadata`,
		state.MachineName,
		state.ConfigType,
		state.CurrentState,
		state.PID,
		time.Now().UnixNano(),
		marshalJSON(state.Metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert machine state: %w", err)
	}

	s.emit(bus.NewFrame(bus.FrameStateChange, state.MachineName, map[string]any{
		"config_type":   state.ConfigType,
		"current_state": state.CurrentState,
		"pid":           state.PID,
	}))

	return nil
}

// TouchMachineState refreshes last_activity without a state change.
func (s *Store) TouchMachineState(machineName string) error {
	_, err := s.db.Exec(
		`UPDATE machine_state SET last_activity = ? WHERE machine_name = ?`,
		time.Now().UnixNano(),
		machineName,
	)
	if err != nil {
		return fmt.Errorf("failed to touch machine state: %w", err)
	}

	return nil
}

// DeleteMachineState removes the live-state row on clean shutdown and emits
// a shutdown frame.
func (s *Store) DeleteMachineState(machineName string) error {
	_, err := s.db.Exec(
		`DELETE FROM machine_state WHERE machine_name = ?`,
		machineName,
	)
	if err != nil {
		return fmt.Errorf("failed to delete machine state: %w", err)
	}

	s.emit(bus.NewFrame(bus.FrameShutdown, machineName, nil))

	return nil
}

// GetMachineState looks up one machine's row; nil when not running.
func (s *Store) GetMachineState(machineName string) (*MachineState, error) {
	row := s.db.QueryRow(
		`SELECT machine_name, config_type, current_state, pid, last_activity, metadata
		 FROM machine_state WHERE machine_name = ?`,
		machineName,
	)

	state, err := scanMachineState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get machine state: %w", err)
	}

	return state, nil
}

// ListMachineStates returns every live machine row ordered by name.
func (s *Store) ListMachineStates() ([]MachineState, error) {
	rows, err := s.db.Query(
		`SELECT machine_name, config_type, current_state, pid, last_activity, metadata
		 FROM machine_state ORDER BY machine_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list machine states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []MachineState
	for rows.Next() {
		state, err := scanMachineState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}

	return states, rows.Err()
}

func scanMachineState(row rowScanner) (*MachineState, error) {
	var (
		state        MachineState
		metadata     string
		lastActivity int64
	)

	err := row.Scan(
		&state.MachineName,
		&state.ConfigType,
		&state.CurrentState,
		&state.PID,
		&lastActivity,
		&metadata,
	)
	if err != nil {
		return nil, err
	}

	state.LastActivity = time.Unix(0, lastActivity)
	state.Metadata = unmarshalMap(metadata)

	return &state, nil
}
