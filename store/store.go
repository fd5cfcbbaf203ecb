// Package store keeps a corpus of captured and rewritten method bodies in
// SQLite.
package store

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/ilhook/body"
)

var log = commonlog.GetLogger("ilhook.store")

// ErrNotFound indicates the requested record doesn't exist
var ErrNotFound = errors.New("record not found")

// Record is one stored method body. Parent is set on rewritten bodies and
// names the record they were derived from.
type Record struct {
	ID      string
	Module  string
	Parent  string
	Created time.Time
	Method  *body.Method
}

// Store handles SQLite storage for method bodies
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

const schema = `CREATE TABLE IF NOT EXISTS methods (
	id TEXT PRIMARY KEY,
	token INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	module TEXT NOT NULL DEFAULT '',
	parent TEXT NOT NULL DEFAULT '',
	code_size INTEGER NOT NULL,
	body BLOB NOT NULL,
	created INTEGER NOT NULL
)`

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened corpus %s", path)
	return &Store{db: db, path: path}, nil
}

// DefaultPath returns $ILHOOK_DB, or ~/.ilhook/corpus.db.
func DefaultPath() (string, error) {
	if p := os.Getenv("ILHOOK_DB"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, ".ilhook", "corpus.db"), nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewID returns a fresh record identifier.
func NewID() string {
	return "m_" + uuid.New().String()
}

// Save persists rec, assigning an ID and creation time when missing.
func (s *Store) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(s.db, rec)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func save(db execer, rec *Record) error {
	if rec.Method == nil {
		return fmt.Errorf("saving record %q: no method", rec.ID)
	}
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.Created.IsZero() {
		rec.Created = time.Now()
	}

	m := rec.Method
	blob, err := layout(m)
	if err != nil {
		return fmt.Errorf("saving record %q: %w", rec.ID, err)
	}
	_, err = db.Exec(
		`INSERT OR REPLACE INTO methods (id, token, name, module, parent, code_size, body, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, int64(m.Token), m.Name, rec.Module, rec.Parent, len(m.IL), blob, rec.Created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// layout joins the method body and checks that it splits back into the
// same code and exception section, so every stored row can be loaded.
func layout(m *body.Method) ([]byte, error) {
	blob := m.Bytes()
	il, section, err := body.Split(blob, len(m.IL))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(il, m.IL) || !bytes.Equal(section, m.EH) {
		return nil, fmt.Errorf("%w: %d bytes follow the exception section", body.ErrLayout, len(m.EH)-len(section))
	}
	if blob == nil {
		blob = []byte{}
	}
	return blob, nil
}

// Import stores every method of a capture in one transaction and returns
// the new record IDs in capture order.
func (s *Store) Import(c *body.Capture) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning import: %w", err)
	}
	ids := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		rec := &Record{Module: c.Module, Method: m}
		if err := save(tx, rec); err != nil {
			tx.Rollback()
			return nil, err
		}
		ids = append(ids, rec.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	log.Infof("imported %d methods from %q", len(ids), c.Module)
	return ids, nil
}

const selectColumns = "SELECT id, token, name, module, parent, code_size, body, created FROM methods"

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec      Record
		token    int64
		name     string
		codeSize int
		raw      []byte
		created  int64
	)
	if err := row.Scan(&rec.ID, &token, &name, &rec.Module, &rec.Parent, &codeSize, &raw, &created); err != nil {
		return nil, err
	}
	m, err := body.FromBytes(uint32(token), raw, codeSize)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	m.Name = name
	rec.Method = m
	rec.Created = time.Unix(0, created)
	return &rec, nil
}

// Load retrieves a record by ID
func (s *Store) Load(id string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(selectColumns+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying record: %w", err)
	}
	return rec, nil
}

// List returns all records in insertion order.
func (s *Store) List() ([]*Record, error) {
	return s.query(selectColumns + " ORDER BY created, rowid")
}

// Originals returns the records that are not rewrites of another record.
func (s *Store) Originals() ([]*Record, error) {
	return s.query(selectColumns + " WHERE parent = '' ORDER BY created, rowid")
}

// Rewrites returns the records derived from parent.
func (s *Store) Rewrites(parent string) ([]*Record, error) {
	return s.query(selectColumns+" WHERE parent = ? ORDER BY created, rowid", parent)
}

func (s *Store) query(q string, args ...any) ([]*Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return recs, nil
}

// Delete removes a record.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM methods WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
