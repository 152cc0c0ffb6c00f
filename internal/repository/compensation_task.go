package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/card-service/internal/domain"
)

const compensationTaskColumns = `id, reference, account_id, amount, description,
	status, attempts, last_error, last_attempt, claimed_at, created_at`

type CompensationTaskRepository struct {
	db *sql.DB
}

func NewCompensationTaskRepository(db *sql.DB) *CompensationTaskRepository {
	return &CompensationTaskRepository{db: db}
}

func (r *CompensationTaskRepository) Create(ctx context.Context, task *domain.CompensationTask) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO compensation_tasks (
			id, reference, account_id, amount, description, status, attempts, last_error, last_attempt, claimed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		task.ID, task.Reference, task.AccountID, task.Amount, task.Description,
		task.Status, task.Attempts, task.LastError, task.LastAttempt, task.ClaimedAt, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ClaimPending moves up to limit claimable tasks to in_progress, stamps
// claimed_at and bumps attempts, then returns them. A task is claimable when
// it is pending or when its in_progress lease is older than lease, which
// covers a retrier that died mid-task. The status change is what keeps other
// replicas away once this statement commits; SKIP LOCKED only covers the
// window while it runs.
func (r *CompensationTaskRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]domain.CompensationTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE compensation_tasks
		SET status = $1, claimed_at = now(), attempts = attempts + 1, last_attempt = now()
		WHERE id IN (
			SELECT id FROM compensation_tasks
			WHERE status = $2
				OR (status = $1 AND claimed_at <= now() - make_interval(secs => $3))
			ORDER BY created_at LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+compensationTaskColumns,
		domain.CompensationStatusInProgress, domain.CompensationStatusPending, lease.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: %w", err)
	}
	defer rows.Close()

	var tasks []domain.CompensationTask
	for rows.Next() {
		t, err := scanCompensationTask(rows)
		if err != nil {
			return nil, fmt.Errorf("ClaimPending: scan: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending: rows: %w", err)
	}
	return tasks, nil
}

// UpdateStatus settles a task and releases its lease.
func (r *CompensationTaskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CompensationStatus, lastError *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE compensation_tasks SET status = $1, last_error = $2, claimed_at = NULL WHERE id = $3`,
		status, lastError, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *CompensationTaskRepository) ListByReference(ctx context.Context, reference string) ([]domain.CompensationTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+compensationTaskColumns+` FROM compensation_tasks
		WHERE reference = $1 ORDER BY created_at`,
		reference,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByReference: %w", err)
	}
	defer rows.Close()

	var tasks []domain.CompensationTask
	for rows.Next() {
		t, err := scanCompensationTask(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByReference: scan: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByReference: rows: %w", err)
	}
	return tasks, nil
}

func scanCompensationTask(s scanner) (*domain.CompensationTask, error) {
	var t domain.CompensationTask
	err := s.Scan(
		&t.ID, &t.Reference, &t.AccountID, &t.Amount, &t.Description,
		&t.Status, &t.Attempts, &t.LastError, &t.LastAttempt, &t.ClaimedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
