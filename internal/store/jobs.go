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

	"github.com/google/uuid"

	"github.com/retr0h/fsmd/internal/bus"
)

// CreateJobParams are the inputs to CreateJob. Zero values take the
// documented defaults.
type CreateJobParams struct {
	// ID is generated when empty.
	ID string
	// Type routes the job.
	Type string
	// Priority defaults to 100 when zero; lower dispatches first.
	Priority int
	// AssignedMachine optionally pins the job to a machine.
	AssignedMachine string
	// Data is the opaque payload.
	Data map[string]any
	// SourceJobID links a spawned job to its parent.
	SourceJobID string
}

// CreateJob inserts a pending job and returns its id.
func (s *Store) CreateJob(params CreateJobParams) (string, error) {
	if params.ID == "" {
		params.ID = uuid.New().String()
	}
	if params.Priority == 0 {
		params.Priority = 100
	}

	now := time.Now().UnixNano()
	_, err := s.db.Exec(
		`INSERT INTO jobs
			(id, type, status, priority, assigned_machine, data, source_job_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?)`,
		params.ID,
		params.Type,
		StatusPending,
		params.Priority,
		params.AssignedMachine,
		marshalJSON(params.Data),
		params.SourceJobID,
		now,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	s.emit(bus.NewFrame(bus.FrameLog, "", map[string]any{
		"message": "job created",
		"job_id":  params.ID,
		"type":    params.Type,
	}))

	return params.ID, nil
}

// GetNextJob atomically claims the lowest-priority oldest pending job. An
// empty jobType matches any type. An empty machineType drops the machine
// filter entirely (controller semantics); otherwise only jobs assigned to
// that machine match. Returns nil when the queue has nothing eligible.
func (s *Store) GetNextJob(jobType, machineType string) (*Job, error) {
	// Single UPDATE..RETURNING so concurrent claimers are serialized by the
	// database; a job id can be returned to at most one caller.
	row := s.db.QueryRow(
		`UPDATE jobs SET status = ?1, updated_at = ?2
		 WHERE id = (
			SELECT id FROM jobs
			WHERE status = ?3
			  AND (?4 = '' OR type = ?4)
			  AND (?5 = '' OR assigned_machine = ?5)
			ORDER BY priority ASC, created_at ASC, rowid ASC
			LIMIT 1
		 )
		 RETURNING id, type, status, priority,
			COALESCE(assigned_machine, ''), data,
			COALESCE(source_job_id, ''), created_at, updated_at`,
		StatusProcessing,
		time.Now().UnixNano(),
		StatusPending,
		jobType,
		machineType,
	)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim next job: %w", err)
	}

	return job, nil
}

// CompleteJob marks a job terminal and merges resultData into its payload.
func (s *Store) CompleteJob(
	id string,
	status Status,
	resultData map[string]any,
) error {
	if status != StatusCompleted && status != StatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	job, err := s.GetJob(id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", id)
	}

	data := job.Data
	if data == nil {
		data = map[string]any{}
	}
	for k, v := range resultData {
		data[k] = v
	}

	_, err = s.db.Exec(
		`UPDATE jobs SET status = ?, data = ?, updated_at = ? WHERE id = ?`,
		status,
		marshalJSON(data),
		time.Now().UnixNano(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	s.emit(bus.NewFrame(bus.FrameLog, "", map[string]any{
		"message": "job " + string(status),
		"job_id":  id,
		"status":  string(status),
	}))

	return nil
}

// UpdateJobStatus sets the status without touching the payload. CLI admin
// surface; engines use GetNextJob/CompleteJob.
func (s *Store) UpdateJobStatus(id string, status Status) error {
	res, err := s.db.Exec(
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UnixNano(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job not found: %s", id)
	}

	return nil
}

// DeleteJob removes a job. CLI admin surface only; the core never deletes.
func (s *Store) DeleteJob(id string) error {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job not found: %s", id)
	}

	return nil
}

// GetJob looks up one job by id; nil when absent.
func (s *Store) GetJob(id string) (*Job, error) {
	row := s.db.QueryRow(
		`SELECT id, type, status, priority,
			COALESCE(assigned_machine, ''), data,
			COALESCE(source_job_id, ''), created_at, updated_at
		 FROM jobs WHERE id = ?`,
		id,
	)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// ListJobs returns jobs in dispatch order, optionally filtered by status.
func (s *Store) ListJobs(status Status) ([]Job, error) {
	rows, err := s.db.Query(
		`SELECT id, type, status, priority,
			COALESCE(assigned_machine, ''), data,
			COALESCE(source_job_id, ''), created_at, updated_at
		 FROM jobs
		 WHERE (?1 = '' OR status = ?1)
		 ORDER BY priority ASC, created_at ASC, rowid ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job                  Job
		data                 string
		createdAt, updatedAt int64
	)

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&job.Priority,
		&job.AssignedMachine,
		&data,
		&job.SourceJobID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Data = unmarshalMap(data)
	job.CreatedAt = time.Unix(0, createdAt)
	job.UpdatedAt = time.Unix(0, updatedAt)

	return &job, nil
}
