package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Reference-data cache collections. The sync core consumes these for offline
// display but does not own them; they are refreshed wholesale while online.
const (
	CollectionTargets  = "targets"
	CollectionUsers    = "users"
	CollectionTeams    = "teams"
	CollectionServices = "servicos"
)

// CacheRecord is one reference-data entry: an opaque JSON value under a
// collection-scoped key.
type CacheRecord struct {
	Key   string
	Value []byte
}

// PutCacheRecords upserts a batch of records into a cache collection in one
// transaction. Existing records with the same key are replaced.
func (s *Store) PutCacheRecords(ctx context.Context, collection string, recs []CacheRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &UnavailableError{Err: fmt.Errorf("put cache %s: begin tx: %w", collection, err)}
	}
	defer tx.Rollback()

	for _, rec := range recs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cache_records (collection, key, value)
			VALUES (?, ?, ?)
			ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value
		`, collection, rec.Key, string(rec.Value))
		if err != nil {
			return &UnavailableError{Err: fmt.Errorf("put cache %s: %w", collection, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &UnavailableError{Err: fmt.Errorf("put cache %s: commit: %w", collection, err)}
	}
	return nil
}

// GetCacheRecord retrieves one cached value by key.
// The second return value is false when the key is absent.
func (s *Store) GetCacheRecord(ctx context.Context, collection, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM cache_records WHERE collection = ? AND key = ?
	`, collection, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &UnavailableError{Err: fmt.Errorf("get cache %s/%s: %w", collection, key, err)}
	}
	return []byte(value), true, nil
}

// ListCacheRecords returns every record in a collection in key order.
func (s *Store) ListCacheRecords(ctx context.Context, collection string) ([]CacheRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM cache_records
		WHERE collection = ?
		ORDER BY key ASC
	`, collection)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("list cache %s: %w", collection, err)}
	}
	defer rows.Close()

	recs := []CacheRecord{}
	for rows.Next() {
		var rec CacheRecord
		var value string
		if err := rows.Scan(&rec.Key, &value); err != nil {
			return nil, &UnavailableError{Err: fmt.Errorf("scan cache %s: %w", collection, err)}
		}
		rec.Value = []byte(value)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("iterate cache %s: %w", collection, err)}
	}
	return recs, nil
}

// ClearCache removes every record in a collection, typically right before a
// full refresh.
func (s *Store) ClearCache(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_records WHERE collection = ?`, collection)
	if err != nil {
		return &UnavailableError{Err: fmt.Errorf("clear cache %s: %w", collection, err)}
	}
	return nil
}
