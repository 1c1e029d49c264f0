package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/webrag/internal/models"
)

const busyTimeoutMillis = 5000

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", dbPath, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		collection_id INTEGER NOT NULL,
		id TEXT NOT NULL,
		url TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		batch_id TEXT,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection_id, id),
		FOREIGN KEY (collection_id) REFERENCES collections(id)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_collection_url ON chunks(collection_id, url);
	`
	_, err := db.Exec(schema)
	return err
}

// EnsureCollection returns the ID of the named collection, creating it if needed.
func (s *SQLiteStorage) EnsureCollection(ctx context.Context, name string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, created_at) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC(),
	); err != nil {
		return 0, fmt.Errorf("create collection %s: %w", name, err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM collections WHERE name = ?`, name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup collection %s: %w", name, err)
	}
	return id, nil
}

// ListCollections returns every collection with its chunk count, ordered by name.
func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*models.CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.name, c.created_at, COUNT(ch.id)
		 FROM collections c LEFT JOIN chunks ch ON ch.collection_id = c.id
		 GROUP BY c.id, c.name, c.created_at
		 ORDER BY c.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CollectionInfo
	for rows.Next() {
		var info models.CollectionInfo
		if err := rows.Scan(&info.Name, &info.CreatedAt, &info.Chunks); err != nil {
			return nil, err
		}
		out = append(out, &info)
	}
	return out, rows.Err()
}

// UpsertChunks inserts or replaces chunks by ID in a single transaction.
func (s *SQLiteStorage) UpsertChunks(ctx context.Context, collectionID int64, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (collection_id, id, url, chunk_index, content, embedding, batch_id, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(collection_id, id) DO UPDATE SET
			url = excluded.url,
			chunk_index = excluded.chunk_index,
			content = excluded.content,
			embedding = excluded.embedding,
			batch_id = excluded.batch_id,
			ingested_at = excluded.ingested_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, ch := range chunks {
		if ch.IngestedAt.IsZero() {
			ch.IngestedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			collectionID, ch.ID, ch.URL, ch.Index, ch.Text, encodeVector(ch.Embedding), ch.BatchID, ch.IngestedAt,
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// HasURL reports whether any chunk of url is stored in the collection.
func (s *SQLiteStorage) HasURL(ctx context.Context, collectionID int64, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM chunks WHERE collection_id = ? AND url = ? LIMIT 1`, collectionID, url,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LoadChunks returns every chunk of the collection, embeddings included, in insertion order.
func (s *SQLiteStorage) LoadChunks(ctx context.Context, collectionID int64) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, chunk_index, content, embedding, batch_id, ingested_at
		 FROM chunks WHERE collection_id = ? ORDER BY rowid`,
		collectionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var (
			ch      models.Chunk
			blob    []byte
			batchID sql.NullString
		)
		if err := rows.Scan(&ch.ID, &ch.URL, &ch.Index, &ch.Text, &blob, &batchID, &ch.IngestedAt); err != nil {
			return nil, err
		}
		ch.BatchID = batchID.String
		ch.Embedding = decodeVector(blob)
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeVector stores a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size:]))
	}
	return out
}
