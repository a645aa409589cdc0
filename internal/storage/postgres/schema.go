// Package postgres provides the PostgreSQL implementation of the storage
// interfaces.
package postgres

// Schema contains the SQL statements to create the database schema.
//
// Vectors are always stored in BYTEA columns (little-endian float64) so the
// store works on a plain PostgreSQL install. When the pgvector extension is
// available, mirror vector columns are added by vectorSchema and kept in sync
// on every write for cosine-distance queries.
const Schema = `
CREATE TABLE IF NOT EXISTS labels (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    definition TEXT NOT NULL,
    centroid BYTEA NOT NULL,
    usage_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    label_id TEXT REFERENCES labels(id),
    similarity_score DOUBLE PRECISION,
    confidence TEXT,
    embedding BYTEA,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_labels_name ON labels(name);
CREATE INDEX IF NOT EXISTS idx_entries_label_id ON entries(label_id);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`

// vectorSchema adds pgvector mirror columns. The dimension placeholder is
// filled from configuration; pgvector requires it at DDL time.
const vectorSchema = `
ALTER TABLE labels ADD COLUMN IF NOT EXISTS centroid_vec vector(%d);
ALTER TABLE entries ADD COLUMN IF NOT EXISTS embedding_vec vector(%d);
`
