package sqlite

// Schema contains the SQL statements to create the database schema.
// Centroids and cached entry embeddings are stored as little-endian float64
// BLOBs; the label listing order (usage_count DESC, name ASC) is enforced by
// queries, not by the schema.
const Schema = `
CREATE TABLE IF NOT EXISTS labels (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    definition TEXT NOT NULL,
    centroid BLOB NOT NULL,
    usage_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    label_id TEXT REFERENCES labels(id),
    similarity_score REAL,
    confidence TEXT,
    embedding BLOB,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_labels_name ON labels(name);
CREATE INDEX IF NOT EXISTS idx_entries_label_id ON entries(label_id);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`
