package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fiscalia/campo/internal/record"
)

// PutSubmission upserts a pending submission, replacing any existing record
// and photos for the same target in a single transaction. Last write wins;
// there is no merge.
func (s *Store) PutSubmission(ctx context.Context, sub record.Submission) error {
	checklistJSON, err := marshalChecklist(sub.Checklist)
	if err != nil {
		return fmt.Errorf("put submission: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &UnavailableError{Err: fmt.Errorf("put submission: begin tx: %w", err)}
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions
		(target_id, status, observation, user_id, checklist, captured_at, pending_sync)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(target_id) DO UPDATE SET
			status       = excluded.status,
			observation  = excluded.observation,
			user_id      = excluded.user_id,
			checklist    = excluded.checklist,
			captured_at  = excluded.captured_at,
			pending_sync = 1
	`,
		sub.TargetID,
		string(sub.Status),
		sub.Observation,
		sub.UserID,
		checklistJSON,
		sub.CapturedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &UnavailableError{Err: fmt.Errorf("put submission: %w", err)}
	}

	// Replace the photo set wholesale; a re-enqueue is a full overwrite.
	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE target_id = ?`, sub.TargetID); err != nil {
		return &UnavailableError{Err: fmt.Errorf("put submission: clear photos: %w", err)}
	}
	for i, photo := range sub.Photos {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO photos (target_id, position, name, mime_type, data)
			VALUES (?, ?, ?, ?, ?)
		`, sub.TargetID, i, photo.Name, photo.MIMEType, photo.Data)
		if err != nil {
			return &UnavailableError{Err: fmt.Errorf("put submission: write photo %d: %w", i, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &UnavailableError{Err: fmt.Errorf("put submission: commit: %w", err)}
	}

	return nil
}

// GetSubmission retrieves the pending submission for a target.
// The second return value is false when no record exists.
//
// The row and photo reads share one transaction; a concurrent replacement Put
// cannot interleave between them.
func (s *Store) GetSubmission(ctx context.Context, targetID int64) (record.Submission, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return record.Submission{}, false, &UnavailableError{Err: fmt.Errorf("get submission: begin tx: %w", err)}
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT target_id, status, observation, user_id, checklist, captured_at, pending_sync
		FROM submissions
		WHERE target_id = ?
	`, targetID)

	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return record.Submission{}, false, nil
	}
	if err != nil {
		return record.Submission{}, false, err
	}

	sub.Photos, err = readPhotos(ctx, tx, targetID)
	if err != nil {
		return record.Submission{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return record.Submission{}, false, &UnavailableError{Err: fmt.Errorf("get submission: commit: %w", err)}
	}
	return sub, true, nil
}

// ListSubmissions returns all pending submissions in key order (target_id
// ascending). Key order is stable and deterministic; it is deliberately NOT
// submission-time order.
//
// Returns an empty slice (not nil) when the queue is empty.
//
// Row and photo reads share one transaction, so a Put landing mid-listing
// cannot pair one write's row with another write's photo set.
func (s *Store) ListSubmissions(ctx context.Context) ([]record.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("list submissions: begin tx: %w", err)}
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT target_id, status, observation, user_id, checklist, captured_at, pending_sync
		FROM submissions
		ORDER BY target_id ASC
	`)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("query submissions: %w", err)}
	}
	defer rows.Close()

	subs := []record.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("iterate submissions: %w", err)}
	}
	rows.Close()

	for i := range subs {
		subs[i].Photos, err = readPhotos(ctx, tx, subs[i].TargetID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("list submissions: commit: %w", err)}
	}
	return subs, nil
}

// CountSubmissions returns the number of pending submissions, the source of
// the collaborator's badge count.
func (s *Store) CountSubmissions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&count)
	if err != nil {
		return 0, &UnavailableError{Err: fmt.Errorf("count submissions: %w", err)}
	}
	return count, nil
}

// DeleteSubmission removes the pending submission for a target. Photos cascade.
// Deleting an absent key is not an error.
func (s *Store) DeleteSubmission(ctx context.Context, targetID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE target_id = ?`, targetID)
	if err != nil {
		return &UnavailableError{Err: fmt.Errorf("delete submission: %w", err)}
	}
	return nil
}

// ClearSubmissions removes every pending submission. Exposed for explicit
// debugging/reset only; normal operation never drops records in bulk.
func (s *Store) ClearSubmissions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM submissions`)
	if err != nil {
		return &UnavailableError{Err: fmt.Errorf("clear submissions: %w", err)}
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// querier abstracts *sql.DB and *sql.Tx for shared read helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanSubmission(row rowScanner) (record.Submission, error) {
	var (
		sub           record.Submission
		status        string
		checklistJSON string
		capturedAt    string
		pendingSync   int
	)
	err := row.Scan(&sub.TargetID, &status, &sub.Observation, &sub.UserID, &checklistJSON, &capturedAt, &pendingSync)
	if err == sql.ErrNoRows {
		return record.Submission{}, err
	}
	if err != nil {
		return record.Submission{}, &UnavailableError{Err: fmt.Errorf("scan submission: %w", err)}
	}

	sub.Status = record.Status(status)
	sub.PendingSync = pendingSync != 0

	sub.Checklist, err = unmarshalChecklist(checklistJSON)
	if err != nil {
		return record.Submission{}, fmt.Errorf("scan submission: %w", err)
	}

	sub.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		return record.Submission{}, fmt.Errorf("scan submission: captured_at: %w", err)
	}

	return sub, nil
}

// readPhotos returns a submission's photos in capture order.
func readPhotos(ctx context.Context, q querier, targetID int64) ([]record.PhotoBlob, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, mime_type, data
		FROM photos
		WHERE target_id = ?
		ORDER BY position ASC
	`, targetID)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("query photos: %w", err)}
	}
	defer rows.Close()

	var photos []record.PhotoBlob
	for rows.Next() {
		var p record.PhotoBlob
		if err := rows.Scan(&p.Name, &p.MIMEType, &p.Data); err != nil {
			return nil, &UnavailableError{Err: fmt.Errorf("scan photo: %w", err)}
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("iterate photos: %w", err)}
	}
	return photos, nil
}
