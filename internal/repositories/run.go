package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

const runColumns = `id, sequence, run_id, title, artist, outcome, filename, media_url, error, created_at`

// RunRepository implements models.Repository[*models.RunRecord] for the run ledger.
//
// Ledger rows are append-only and hard deleted.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new [models.RunRecord] with generated ID and sequence
func (r *RunRepository) Create(record *models.RunRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "run_results")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO run_results (id, sequence, run_id, title, artist, outcome, filename, media_url, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.RunID(),
		record.Title(),
		record.Artist(),
		record.Outcome(),
		record.Filename(),
		record.MediaURL(),
		record.ErrorText(),
		record.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run result: %w", err)
	}

	record.SetID(id)
	record.SetSequence(sequence)
	return nil
}

// RecordResult implements tasks.ResultRecorder.
func (r *RunRepository) RecordResult(runID string, res models.AcquisitionResult) error {
	return r.Create(models.NewRunRecord(runID, res))
}

// Get retrieves a record by ID
func (r *RunRepository) Get(id string) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM run_results WHERE id = ?`
	return scanRunRecord(r.db.QueryRow(query, id))
}

// Delete removes a record by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM run_results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run result: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run result %s", ErrNotFound, id)
	}
	return nil
}

// List retrieves records ordered by sequence.
//
// Supported criteria: "run_id" and "outcome" (strings).
func (r *RunRepository) List(criteria map[string]any) ([]*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM run_results WHERE 1 = 1`
	args := []any{}

	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	if outcome, ok := criteria["outcome"].(string); ok && outcome != "" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run results: %w", err)
	}
	defer rows.Close()

	var records []*models.RunRecord
	for rows.Next() {
		record, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

func scanRunRecord(row scanner) (*models.RunRecord, error) {
	var (
		id        string
		sequence  int
		runID     string
		title     string
		artist    string
		outcome   string
		filename  string
		mediaURL  string
		errText   string
		createdAt time.Time
	)

	err := row.Scan(&id, &sequence, &runID, &title, &artist, &outcome, &filename, &mediaURL, &errText, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run result", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run result: %w", err)
	}

	return models.RestoreRunRecord(id, sequence, runID, title, artist, outcome, filename, mediaURL, errText, createdAt), nil
}
