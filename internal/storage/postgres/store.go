package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/dmfarley/labeld/internal/storage"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db        *sql.DB
	q         queryer
	tx        *sql.Tx
	hasVector bool // true when the pgvector extension is present
}

// New connects to PostgreSQL and creates the schema. dimension is the fixed
// embedding dimensionality used for the pgvector mirror columns; it is only
// needed when the pgvector extension is installed.
func New(dsn string, dimension int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to create schema: %w", err)
	}

	// Enable pgvector opportunistically. When the extension is missing the
	// store still works from the BYTEA columns.
	hasVector := false
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err == nil {
		if _, err := db.Exec(fmt.Sprintf(vectorSchema, dimension, dimension)); err == nil {
			hasVector = true
		} else {
			log.Printf("postgres: pgvector columns unavailable: %v", err)
		}
	} else {
		log.Printf("postgres: pgvector extension unavailable: %v", err)
	}

	return &Store{db: db, q: db, hasVector: hasVector}, nil
}

// GetDB exposes the underlying connection for health checks.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// RunInTx executes fn against a transactional view of the store.
func (s *Store) RunInTx(ctx context.Context, fn func(storage.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}

	txStore := &Store{db: s.db, q: tx, tx: tx, hasVector: s.hasVector}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

// CreateLabel inserts a new label.
func (s *Store) CreateLabel(ctx context.Context, label *storage.Label) error {
	if label == nil || label.ID == "" {
		return fmt.Errorf("%w: label ID is required", storage.ErrInvalidInput)
	}
	if label.Name == "" {
		return fmt.Errorf("%w: label name is required", storage.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if label.CreatedAt.IsZero() {
		label.CreatedAt = now
	}
	if label.UpdatedAt.IsZero() {
		label.UpdatedAt = now
	}

	var err error
	if s.hasVector {
		_, err = s.q.ExecContext(ctx, `
			INSERT INTO labels (id, name, definition, centroid, centroid_vec, usage_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, label.ID, label.Name, label.Definition, storage.EncodeVector(label.Centroid),
			toVector(label.Centroid), label.UsageCount, label.CreatedAt, label.UpdatedAt)
	} else {
		_, err = s.q.ExecContext(ctx, `
			INSERT INTO labels (id, name, definition, centroid, usage_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, label.ID, label.Name, label.Definition, storage.EncodeVector(label.Centroid),
			label.UsageCount, label.CreatedAt, label.UpdatedAt)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateName, label.Name)
		}
		return fmt.Errorf("postgres: failed to create label: %w", err)
	}
	return nil
}

// GetLabelByName retrieves a label by its normalized name.
func (s *Store) GetLabelByName(ctx context.Context, name string) (*storage.Label, error) {
	return s.getLabel(ctx, "name", name)
}

// GetLabelByID retrieves a label by ID.
func (s *Store) GetLabelByID(ctx context.Context, id string) (*storage.Label, error) {
	return s.getLabel(ctx, "id", id)
}

func (s *Store) getLabel(ctx context.Context, column, value string) (*storage.Label, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, definition, centroid, usage_count, created_at, updated_at
		FROM labels WHERE `+column+` = $1
	`, value)

	label, err := scanLabel(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get label: %w", err)
	}
	return label, nil
}

// ListLabels returns all labels ordered by usage_count descending, then name
// ascending.
func (s *Store) ListLabels(ctx context.Context) ([]*storage.Label, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, definition, centroid, usage_count, created_at, updated_at
		FROM labels
		ORDER BY usage_count DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list labels: %w", err)
	}
	defer rows.Close()

	var labels []*storage.Label
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate labels: %w", err)
	}
	return labels, nil
}

// UpdateLabelCentroid persists a recomputed centroid and usage count.
func (s *Store) UpdateLabelCentroid(ctx context.Context, id string, centroid []float64, usageCount int) error {
	var (
		result sql.Result
		err    error
	)
	if s.hasVector {
		result, err = s.q.ExecContext(ctx, `
			UPDATE labels SET centroid = $1, centroid_vec = $2, usage_count = $3, updated_at = $4
			WHERE id = $5
		`, storage.EncodeVector(centroid), toVector(centroid), usageCount, time.Now().UTC(), id)
	} else {
		result, err = s.q.ExecContext(ctx, `
			UPDATE labels SET centroid = $1, usage_count = $2, updated_at = $3
			WHERE id = $4
		`, storage.EncodeVector(centroid), usageCount, time.Now().UTC(), id)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to update label centroid: %w", err)
	}
	return requireRow(result)
}

// DeleteLabel removes a label by ID.
func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM labels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete label: %w", err)
	}
	return requireRow(result)
}

// CountLabels returns the total number of labels.
func (s *Store) CountLabels(ctx context.Context) (int, error) {
	var count int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count labels: %w", err)
	}
	return count, nil
}

// CreateEntry inserts a new entry.
func (s *Store) CreateEntry(ctx context.Context, entry *storage.TextEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}
	if entry.Text == "" {
		return fmt.Errorf("%w: entry text is required", storage.ErrInvalidInput)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var embedding []byte
	if entry.Embedding != nil {
		embedding = storage.EncodeVector(entry.Embedding)
	}

	var err error
	if s.hasVector {
		_, err = s.q.ExecContext(ctx, `
			INSERT INTO entries (id, text, label_id, similarity_score, confidence, embedding, embedding_vec, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, entry.ID, entry.Text, entry.LabelID, entry.SimilarityScore,
			nullString(entry.Confidence), embedding, toVectorOrNil(entry.Embedding), entry.CreatedAt)
	} else {
		_, err = s.q.ExecContext(ctx, `
			INSERT INTO entries (id, text, label_id, similarity_score, confidence, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, entry.ID, entry.Text, entry.LabelID, entry.SimilarityScore,
			nullString(entry.Confidence), embedding, entry.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to create entry: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (s *Store) GetEntry(ctx context.Context, id string) (*storage.TextEntry, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, text, label_id, similarity_score, confidence, embedding, created_at
		FROM entries WHERE id = $1
	`, id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get entry: %w", err)
	}
	return entry, nil
}

// ListEntriesByLabel returns all entries currently assigned to a label.
func (s *Store) ListEntriesByLabel(ctx context.Context, labelID string) ([]*storage.TextEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, text, label_id, similarity_score, confidence, embedding, created_at
		FROM entries WHERE label_id = $1
	`, labelID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*storage.TextEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate entries: %w", err)
	}
	return entries, nil
}

// UpdateEntryAssignment rewrites an entry's label reference, similarity score,
// and confidence marker. A nil labelID detaches the entry.
func (s *Store) UpdateEntryAssignment(ctx context.Context, id string, labelID *string, score *float64, confidence string) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE entries SET label_id = $1, similarity_score = $2, confidence = $3
		WHERE id = $4
	`, labelID, score, nullString(confidence), id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update entry assignment: %w", err)
	}
	return requireRow(result)
}

// UpdateEntryEmbedding caches the entry's embedding vector.
func (s *Store) UpdateEntryEmbedding(ctx context.Context, id string, embedding []float64) error {
	var (
		result sql.Result
		err    error
	)
	if s.hasVector {
		result, err = s.q.ExecContext(ctx, `
			UPDATE entries SET embedding = $1, embedding_vec = $2 WHERE id = $3
		`, storage.EncodeVector(embedding), toVector(embedding), id)
	} else {
		result, err = s.q.ExecContext(ctx, `
			UPDATE entries SET embedding = $1 WHERE id = $2
		`, storage.EncodeVector(embedding), id)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to update entry embedding: %w", err)
	}
	return requireRow(result)
}

// DeleteEntry removes an entry by ID.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete entry: %w", err)
	}
	return requireRow(result)
}

// DetachEntriesByLabel clears label_id on every entry referencing the label.
func (s *Store) DetachEntriesByLabel(ctx context.Context, labelID string) (int, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE entries SET label_id = NULL WHERE label_id = $1
	`, labelID)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to detach entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	return int(affected), nil
}

// CountEntriesByLabelPresence counts entries that have (or lack) a label.
func (s *Store) CountEntriesByLabelPresence(ctx context.Context, hasLabel bool) (int, error) {
	query := `SELECT COUNT(*) FROM entries WHERE label_id IS NOT NULL`
	if !hasLabel {
		query = `SELECT COUNT(*) FROM entries WHERE label_id IS NULL`
	}

	var count int
	if err := s.q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count entries: %w", err)
	}
	return count, nil
}

// RecentTextsByLabel returns up to limit entry texts for a label, newest first.
func (s *Store) RecentTextsByLabel(ctx context.Context, labelID string, limit int) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT text FROM entries
		WHERE label_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, labelID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list recent texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan text: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate texts: %w", err)
	}
	return texts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLabel(sc scanner) (*storage.Label, error) {
	var (
		label    storage.Label
		centroid []byte
	)
	if err := sc.Scan(&label.ID, &label.Name, &label.Definition, &centroid,
		&label.UsageCount, &label.CreatedAt, &label.UpdatedAt); err != nil {
		return nil, err
	}

	vec, err := storage.DecodeVector(centroid)
	if err != nil {
		return nil, err
	}
	label.Centroid = vec
	return &label, nil
}

func scanEntry(sc scanner) (*storage.TextEntry, error) {
	var (
		entry      storage.TextEntry
		labelID    sql.NullString
		score      sql.NullFloat64
		confidence sql.NullString
		embedding  []byte
	)
	if err := sc.Scan(&entry.ID, &entry.Text, &labelID, &score, &confidence,
		&embedding, &entry.CreatedAt); err != nil {
		return nil, err
	}

	if labelID.Valid {
		entry.LabelID = &labelID.String
	}
	if score.Valid {
		entry.SimilarityScore = &score.Float64
	}
	if confidence.Valid {
		entry.Confidence = confidence.String
	}

	vec, err := storage.DecodeVector(embedding)
	if err != nil {
		return nil, err
	}
	entry.Embedding = vec
	return &entry, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// toVector converts a float64 slice to a pgvector value (pgvector stores
// float32).
func toVector(vec []float64) pgvector.Vector {
	f32 := make([]float32, len(vec))
	for i, v := range vec {
		f32[i] = float32(v)
	}
	return pgvector.NewVector(f32)
}

// toVectorOrNil returns nil for an absent embedding so the mirror column
// stays NULL alongside the NULL BYTEA.
func toVectorOrNil(vec []float64) any {
	if vec == nil {
		return nil
	}
	return toVector(vec)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
