package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/shared"
)

const enrollmentColumns = `id, sequence, track_path, outcome, tag_id, started_at, ended_at, created_at, updated_at, deleted_at`

// EnrollmentRepository implements models.Repository[*models.Enrollment].
type EnrollmentRepository struct {
	db *sql.DB
}

// NewEnrollmentRepository creates a new EnrollmentRepository with the given database connection
func NewEnrollmentRepository(db *sql.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create inserts e with a fresh sequence. An ID is generated when e has none.
func (r *EnrollmentRepository) Create(e *models.Enrollment) error {
	if e.ID() == "" {
		e.SetID(shared.GenerateID())
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "enrollments")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	e.SetSequence(sequence)

	query := `
		INSERT INTO enrollments (id, sequence, track_path, outcome, tag_id, started_at, ended_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		e.ID(),
		sequence,
		e.TrackPath(),
		string(e.Outcome()),
		e.TagID(),
		e.StartedAt(),
		e.EndedAt(),
		e.CreatedAt(),
		e.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}

	return nil
}

// Get retrieves an enrollment by ID, excluding soft-deleted records
func (r *EnrollmentRepository) Get(id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = ? AND deleted_at IS NULL`

	e, err := scanEnrollment(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("enrollment not found: %s", id)
	}
	return e, err
}

// Delete soft-deletes an enrollment by ID
func (r *EnrollmentRepository) Delete(id string) error {
	now := time.Now()

	result, err := r.db.Exec(`UPDATE enrollments SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("enrollment not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves enrollments newest first. Supported criteria: "path" (string), "outcome" (string or [models.Outcome]) and "limit" (int).
func (r *EnrollmentRepository) List(criteria map[string]any) ([]*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE deleted_at IS NULL`
	args := []any{}

	if path, ok := criteria["path"].(string); ok && path != "" {
		query += " AND track_path = ?"
		args = append(args, path)
	}

	switch outcome := criteria["outcome"].(type) {
	case string:
		if outcome != "" {
			query += " AND outcome = ?"
			args = append(args, outcome)
		}
	case models.Outcome:
		query += " AND outcome = ?"
		args = append(args, string(outcome))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return enrollments, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(s scanner) (*models.Enrollment, error) {
	var (
		id        string
		sequence  int
		trackPath string
		outcome   string
		tagID     string
		startedAt time.Time
		endedAt   time.Time
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := s.Scan(&id, &sequence, &trackPath, &outcome, &tagID, &startedAt, &endedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	e := models.NewEnrollment(trackPath, models.Outcome(outcome), tagID, startedAt, endedAt)
	e.SetID(id)
	e.SetSequence(sequence)
	e.SetCreatedAt(createdAt)
	e.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		e.SetDeletedAt(&deletedAt.Time)
	}

	return e, nil
}
