// Package store persists documents and their marks in SQLite.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// Open hides the driver difference; use it instead of sql.Open.
//
// Marks are stand-off annotations: a document's text is stored once and the
// highlighted ranges live in their own table. Every mark mutation re-checks
// the combined range set against the document, so the store never holds a
// mark set that the highlighter would reject.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/core/highlight"
	"github.com/EliasDerHai/limelight/core/integrity"
	"github.com/EliasDerHai/limelight/internal/validation"
)

// Document is a stored piece of text that marks attach to.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	Format      string    `json:"format"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Mark is one highlighted range on a document.
type Mark struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	Range      highlight.Range `json:"range"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// DriverInfo describes the SQLite driver compiled into the binary.
type DriverInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	CGO  bool   `json:"cgo"`
}

// Driver returns information about the compiled SQLite driver.
func Driver() DriverInfo {
	return DriverInfo{
		Name: driverName,
		Type: driverType,
		CGO:  driverType == "cgo",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL UNIQUE,
	content      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	format       TEXT NOT NULL DEFAULT 'text',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS marks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	lower       INTEGER NOT NULL,
	upper       INTEGER NOT NULL,
	note        TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_marks_document ON marks(document_id, lower);
`

// Store wraps the SQLite database holding documents and marks.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the store at path and ensures the
// schema exists. SQLite allows a single writer, so the connection pool is
// capped at one connection.
func Open(path string) (*Store, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.Wrap(err, "invalid store path")
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CreateDocument stores a new document and returns it with generated ID,
// content hash, and timestamps. Titles are unique across the store.
func (s *Store) CreateDocument(ctx context.Context, title, content, format string) (*Document, error) {
	if title == "" {
		return nil, errors.NewValidation("title", "must not be empty")
	}
	if err := validation.ValidateDocumentSize(len(content)); err != nil {
		return nil, errors.NewValidation("content", err.Error())
	}
	if format == "" {
		format = "text"
	}
	if _, err := s.GetDocumentByTitle(ctx, title); err == nil {
		return nil, errors.NewValidation("title", "a document with this title already exists")
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &Document{
		ID:          uuid.NewString(),
		Title:       title,
		Content:     content,
		ContentHash: integrity.HashString(content),
		Format:      format,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, content_hash, format, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, doc.ContentHash, doc.Format,
		doc.CreatedAt.Format(time.RFC3339), doc.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert document")
	}
	return doc, nil
}

// GetDocument returns the document with the given ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, content_hash, format, created_at, updated_at
		 FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load document")
	}
	return doc, nil
}

// GetDocumentByTitle returns the document with the given title.
func (s *Store) GetDocumentByTitle(ctx context.Context, title string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, content_hash, format, created_at, updated_at
		 FROM documents WHERE title = ?`, title)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", title)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load document")
	}
	return doc, nil
}

// ResolveDocument looks a document up by ID first, then by title. CLI
// commands accept either.
func (s *Store) ResolveDocument(ctx context.Context, ref string) (*Document, error) {
	doc, err := s.GetDocument(ctx, ref)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	return s.GetDocumentByTitle(ctx, ref)
}

// ListDocuments returns all documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, content_hash, format, created_at, updated_at
		 FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// RenameDocument updates a document's title. Marks are unaffected.
func (s *Store) RenameDocument(ctx context.Context, id, title string) (*Document, error) {
	if title == "" {
		return nil, errors.NewValidation("title", "must not be empty")
	}
	if other, err := s.GetDocumentByTitle(ctx, title); err == nil && other.ID != id {
		return nil, errors.NewValidation("title", "a document with this title already exists")
	} else if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rename document")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NewNotFound("document", id)
	}
	return s.GetDocument(ctx, id)
}

// UpdateContent replaces a document's text. All existing marks are deleted:
// their byte offsets were made against the old content and cannot be
// trusted afterwards.
func (s *Store) UpdateContent(ctx context.Context, id, content string) (*Document, error) {
	if err := validation.ValidateDocumentSize(len(content)); err != nil {
		return nil, errors.NewValidation("content", err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET content = ?, content_hash = ?, updated_at = ? WHERE id = ?`,
		content, integrity.HashString(content), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update content")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NewNotFound("document", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM marks WHERE document_id = ?`, id); err != nil {
		return nil, errors.Wrap(err, "failed to clear marks")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit")
	}
	return s.GetDocument(ctx, id)
}

// DeleteDocument removes a document and all of its marks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM marks WHERE document_id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete marks")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("document", id)
	}

	return tx.Commit()
}

// AddMark stores a new mark on a document. The new range is validated
// together with every existing mark, so the stored set always passes
// highlight.Validate against the document's content.
func (s *Store) AddMark(ctx context.Context, documentID string, r highlight.Range, note string) (*Mark, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.ListMarks(ctx, documentID)
	if err != nil {
		return nil, err
	}

	ranges := make([]highlight.Range, 0, len(existing)+1)
	for _, m := range existing {
		ranges = append(ranges, m.Range)
	}
	ranges = append(ranges, r)
	if err := highlight.Validate(len(doc.Content), ranges); err != nil {
		return nil, err
	}

	mark := &Mark{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Range:      r,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO marks (id, document_id, lower, upper, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		mark.ID, mark.DocumentID, mark.Range.Lower, mark.Range.Upper,
		mark.Note, mark.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert mark")
	}
	return mark, nil
}

// GetMark returns the mark with the given ID.
func (s *Store) GetMark(ctx context.Context, id string) (*Mark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, lower, upper, note, created_at FROM marks WHERE id = ?`, id)
	m, err := scanMark(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("mark", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load mark")
	}
	return m, nil
}

// ListMarks returns a document's marks ordered by lower bound.
func (s *Store) ListMarks(ctx context.Context, documentID string) ([]*Mark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, lower, upper, note, created_at
		 FROM marks WHERE document_id = ? ORDER BY lower`, documentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list marks")
	}
	defer rows.Close()

	var marks []*Mark
	for rows.Next() {
		m, err := scanMark(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan mark")
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

// DeleteMark removes a single mark.
func (s *Store) DeleteMark(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM marks WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete mark")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("mark", id)
	}
	return nil
}

// ClearMarks removes every mark on a document and returns how many were
// deleted.
func (s *Store) ClearMarks(ctx context.Context, documentID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM marks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear marks")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MarkRanges extracts the byte ranges of marks, in slice order.
func MarkRanges(marks []*Mark) []highlight.Range {
	ranges := make([]highlight.Range, len(marks))
	for i, m := range marks {
		ranges[i] = m.Range
	}
	return ranges
}

// RenderDocument returns a document's content with its marks applied using
// opts. The content hash is re-checked first: mark offsets are only
// meaningful against the exact bytes they were made for. A document with no
// marks renders as its plain content.
func (s *Store) RenderDocument(ctx context.Context, id string, opts highlight.Options) (string, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if !integrity.Verify([]byte(doc.Content), doc.ContentHash) {
		return "", errors.NewIO("verify", id, fmt.Errorf("content hash mismatch"))
	}
	marks, err := s.ListMarks(ctx, id)
	if err != nil {
		return "", err
	}
	return highlight.Apply(doc.Content, MarkRanges(marks), opts)
}

// VerifyResult reports the integrity check of one document.
type VerifyResult struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Marks      int    `json:"marks"`
	Err        error  `json:"-"`
}

// VerifyAll re-checks every document in the store: the stored content hash
// must match the content, and the stored marks must still validate against
// it. Results come back in document list order, one per document, with Err
// set on failures.
func (s *Store) VerifyAll(ctx context.Context) ([]VerifyResult, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]VerifyResult, 0, len(docs))
	for _, doc := range docs {
		res := VerifyResult{DocumentID: doc.ID, Title: doc.Title}
		marks, err := s.ListMarks(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		res.Marks = len(marks)
		if !integrity.Verify([]byte(doc.Content), doc.ContentHash) {
			res.Err = fmt.Errorf("content hash mismatch")
		} else {
			res.Err = highlight.Validate(len(doc.Content), MarkRanges(marks))
		}
		results = append(results, res)
	}
	return results, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var doc Document
	var created, updated string
	if err := sc.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.ContentHash, &doc.Format, &created, &updated); err != nil {
		return nil, err
	}
	doc.CreatedAt, _ = time.Parse(time.RFC3339, created)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &doc, nil
}

func scanMark(sc scanner) (*Mark, error) {
	var m Mark
	var created string
	if err := sc.Scan(&m.ID, &m.DocumentID, &m.Range.Lower, &m.Range.Upper, &m.Note, &created); err != nil {
		return nil, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &m, nil
}
