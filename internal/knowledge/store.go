// Package knowledge provides the app operating-knowledge store: per-app help
// documents ranked by embedding similarity, plus the package-name mapping that
// ties natural-language app references to Android package names.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Embedder generates embedding vectors for text. *embeddings.Client satisfies
// this; tests substitute a deterministic fake.
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// Store is a SQLite-backed knowledge store.
type Store struct {
	db       *sql.DB
	embedder Embedder
}

// Document is one help document for an app action.
type Document struct {
	ID          string
	PackageName string
	AppName     string
	Category    string
	Title       string
	Content     string
	Tags        []string
	CreatedAt   time.Time
}

// SearchResult pairs a document with its similarity to the query.
type SearchResult struct {
	Document
	Similarity float32
}

// AppInfo describes one entry of the package-name mapping.
type AppInfo struct {
	PackageName string
	AppName     string
	AppNameEN   string
	Description string
}

// NewStore opens (creating if needed) the knowledge database at dbPath.
// The embedder may be nil, in which case documents cannot be added or
// searched, but the package mapping still works.
func NewStore(dbPath string, embedder Embedder) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db, embedder: embedder}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Help documents, one per (package, title)
	CREATE TABLE IF NOT EXISTS help_documents (
		id TEXT PRIMARY KEY,
		package_name TEXT NOT NULL,
		app_name TEXT NOT NULL,
		category TEXT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		tags TEXT,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(package_name, title)
	);
	CREATE INDEX IF NOT EXISTS idx_help_documents_package ON help_documents(package_name);

	-- Package name mapping
	CREATE TABLE IF NOT EXISTS package_mapping (
		package_name TEXT PRIMARY KEY,
		app_name TEXT NOT NULL,
		app_name_en TEXT,
		description TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddPackageMapping records (or replaces) the app info for a package name.
func (s *Store) AddPackageMapping(ctx context.Context, info AppInfo) error {
	if info.PackageName == "" || info.AppName == "" {
		return fmt.Errorf("package name and app name are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO package_mapping (package_name, app_name, app_name_en, description)
		VALUES (?, ?, ?, ?)`,
		info.PackageName, info.AppName, info.AppNameEN, info.Description)
	if err != nil {
		return fmt.Errorf("add package mapping: %w", err)
	}
	return nil
}

// AddDocument stores a help document, embedding a composite of the app name,
// package, title, content, category, and tags so searches can match on any of
// them. An existing document with the same (package, title) is replaced.
func (s *Store) AddDocument(ctx context.Context, doc Document) error {
	if s.embedder == nil {
		return fmt.Errorf("no embedder configured")
	}
	if doc.PackageName == "" || doc.Title == "" || doc.Content == "" {
		return fmt.Errorf("package name, title, and content are required")
	}

	parts := []string{doc.AppName, doc.PackageName, doc.Title, doc.Content}
	if doc.Category != "" {
		parts = append(parts, doc.Category)
	}
	if len(doc.Tags) > 0 {
		parts = append(parts, strings.Join(doc.Tags, " "))
	}
	vec, err := s.embedder.Generate(ctx, strings.Join(parts, " "))
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}

	var tagsJSON any
	if len(doc.Tags) > 0 {
		b, err := json.Marshal(doc.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		tagsJSON = string(b)
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO help_documents
		(id, package_name, app_name, category, title, content, tags, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.PackageName, doc.AppName, nullable(doc.Category), doc.Title, doc.Content,
		tagsJSON, encodeVector(vec), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// AppByPackage looks up the app info for a package name. Returns nil when the
// package is unknown.
func (s *Store) AppByPackage(ctx context.Context, packageName string) (*AppInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT app_name, COALESCE(app_name_en, ''), COALESCE(description, '')
		FROM package_mapping WHERE package_name = ?`, packageName)

	info := AppInfo{PackageName: packageName}
	err := row.Scan(&info.AppName, &info.AppNameEN, &info.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup package: %w", err)
	}
	return &info, nil
}

// Packages returns all known package names.
func (s *Store) Packages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT package_name FROM package_mapping ORDER BY package_name`)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var packages []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		packages = append(packages, p)
	}
	return packages, rows.Err()
}

// DocumentTitles returns the titles of all help documents for a package.
func (s *Store) DocumentTitles(ctx context.Context, packageName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title FROM help_documents WHERE package_name = ? ORDER BY title`, packageName)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// DeleteDocument removes the help document for a (package, title) pair.
// Returns whether a document was actually deleted.
func (s *Store) DeleteDocument(ctx context.Context, packageName, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM help_documents WHERE package_name = ? AND title = ?`,
		packageName, title)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// encodeVector serializes a float32 vector as little-endian bytes, matching
// the layout of the existing database files.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
