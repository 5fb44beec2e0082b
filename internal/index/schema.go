package index

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

	"github.com/starford/vaultlens/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS embeddings (
	path      TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	embedding BLOB NOT NULL,
	mtime     REAL NOT NULL,
	preview   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS index_meta (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	saved_at DATETIME NOT NULL
);
`

// SQLiteStore keeps the index in a SQLite database.
type SQLiteStore struct {
	path string
	conn *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("index: mkdir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &SQLiteStore{path: path, conn: conn}, nil
}

func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Load implements Store. A database that was never saved to counts as missing.
func (s *SQLiteStore) Load(ctx context.Context) (Index, error) {
	var saved int
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM index_meta`).Scan(&saved); err != nil {
		return nil, fmt.Errorf("index: read meta: %w", err)
	}
	if saved == 0 {
		return nil, fmt.Errorf("index: %s: %w", s.path, apperr.ErrIndexMissing)
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT path, name, embedding, mtime, preview FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("index: load: %w", err)
	}
	defer rows.Close()

	idx := Index{}
	for rows.Next() {
		var (
			path string
			blob []byte
			e    Entry
		)
		if err := rows.Scan(&path, &e.Name, &blob, &e.MTime, &e.Preview); err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		e.Embedding = decodeVector(blob)
		idx[path] = e
	}
	return idx, rows.Err()
}

// Save implements Store. The whole table is replaced in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, idx Index) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return fmt.Errorf("index: clear: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (path, name, embedding, mtime, preview) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()
	for path, e := range idx {
		if _, err := stmt.ExecContext(ctx, path, e.Name, encodeVector(e.Embedding), e.MTime, e.Preview); err != nil {
			return fmt.Errorf("index: insert %s: %w", path, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, saved_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at
	`, time.Now().UTC()); err != nil {
		return fmt.Errorf("index: write meta: %w", err)
	}
	return tx.Commit()
}

// encodeVector stores v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
