package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/core/highlight"
	"github.com/EliasDerHai/limelight/core/integrity"
)

// newTestStore opens a store backed by a throwaway database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDriver(t *testing.T) {
	info := Driver()

	if info.Name == "" {
		t.Error("driver name should not be empty")
	}
	if info.Type != "purego" && info.Type != "cgo" {
		t.Errorf("unexpected driver type %q", info.Type)
	}
	if info.CGO != (info.Type == "cgo") {
		t.Errorf("CGO=%v does not match type %q", info.CGO, info.Type)
	}
}

func TestOpenRejectsUnsafePath(t *testing.T) {
	if _, err := Open("bad\x00path.db"); err == nil {
		t.Error("expected error for path with null byte")
	}
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestOpenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	doc, err := s.CreateDocument(context.Background(), "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	// Reopen and read back.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("failed to load document after reopen: %v", err)
	}
	if got.Content != "Hello world" {
		t.Errorf("content = %q, want %q", got.Content, "Hello world")
	}
}

func TestCreateDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	if doc.ID == "" {
		t.Error("ID should not be empty")
	}
	if doc.Format != "text" {
		t.Errorf("format = %q, want default %q", doc.Format, "text")
	}
	if doc.ContentHash != integrity.HashString("Hello world") {
		t.Errorf("content hash = %q does not match content", doc.ContentHash)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to load document: %v", err)
	}
	if got.Title != "Notes" || got.Content != "Hello world" {
		t.Errorf("loaded %q/%q, want %q/%q", got.Title, got.Content, "Notes", "Hello world")
	}
	if got.ContentHash != doc.ContentHash {
		t.Errorf("stored hash %q != returned hash %q", got.ContentHash, doc.ContentHash)
	}
}

func TestCreateDocumentEmptyTitle(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateDocument(context.Background(), "", "Hello", "")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateDocumentDuplicateTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateDocument(ctx, "Notes", "first", ""); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	_, err := s.CreateDocument(ctx, "Notes", "second", "")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for duplicate title, got %v", err)
	}
}

func TestGetDocumentByTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	got, err := s.GetDocumentByTitle(ctx, "Notes")
	if err != nil {
		t.Fatalf("failed to load document by title: %v", err)
	}
	if got.ID != doc.ID {
		t.Errorf("loaded document %q, want %q", got.ID, doc.ID)
	}

	if _, err := s.GetDocumentByTitle(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	// By ID and by title both resolve.
	for _, ref := range []string{doc.ID, "Notes"} {
		got, err := s.ResolveDocument(ctx, ref)
		if err != nil {
			t.Fatalf("failed to resolve %q: %v", ref, err)
		}
		if got.ID != doc.ID {
			t.Errorf("resolved %q to %q, want %q", ref, got.ID, doc.ID)
		}
	}

	if _, err := s.ResolveDocument(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetDocument(context.Background(), "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := make(map[string]bool)
	for _, title := range []string{"First", "Second", "Third"} {
		doc, err := s.CreateDocument(ctx, title, "content of "+title, "")
		if err != nil {
			t.Fatalf("failed to create %q: %v", title, err)
		}
		want[doc.ID] = true
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("failed to list documents: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("listed %d documents, want 3", len(docs))
	}
	for _, doc := range docs {
		if !want[doc.ID] {
			t.Errorf("unexpected document %q in listing", doc.ID)
		}
	}
}

func TestRenameDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Old title", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	if _, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 5), ""); err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}

	renamed, err := s.RenameDocument(ctx, doc.ID, "New title")
	if err != nil {
		t.Fatalf("failed to rename document: %v", err)
	}
	if renamed.Title != "New title" {
		t.Errorf("title = %q, want %q", renamed.Title, "New title")
	}
	if renamed.Content != doc.Content || renamed.ContentHash != doc.ContentHash {
		t.Error("rename should not touch content or hash")
	}

	// Marks survive a rename.
	marks, err := s.ListMarks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to list marks: %v", err)
	}
	if len(marks) != 1 {
		t.Errorf("listed %d marks after rename, want 1", len(marks))
	}

	if _, err := s.RenameDocument(ctx, "missing", "Title"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing document, got %v", err)
	}

	// Renaming to itself is allowed, to another document's title is not.
	if _, err := s.RenameDocument(ctx, doc.ID, "New title"); err != nil {
		t.Errorf("rename to own title should succeed, got %v", err)
	}
	other, err := s.CreateDocument(ctx, "Other", "text", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	if _, err := s.RenameDocument(ctx, other.ID, "New title"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for taken title, got %v", err)
	}
}

func TestUpdateContentClearsMarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	if _, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 5), ""); err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}

	updated, err := s.UpdateContent(ctx, doc.ID, "Shorter")
	if err != nil {
		t.Fatalf("failed to update content: %v", err)
	}
	if updated.Content != "Shorter" {
		t.Errorf("content = %q, want %q", updated.Content, "Shorter")
	}
	if updated.ContentHash == doc.ContentHash {
		t.Error("content hash should change with content")
	}
	if updated.ContentHash != integrity.HashString("Shorter") {
		t.Error("content hash does not match new content")
	}

	// Old marks pointed into the old content and must be gone.
	marks, err := s.ListMarks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to list marks: %v", err)
	}
	if len(marks) != 0 {
		t.Errorf("listed %d marks after content update, want 0", len(marks))
	}

	if _, err := s.UpdateContent(ctx, "missing", "x"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing document, got %v", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	mark, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 5), "")
	if err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("failed to delete document: %v", err)
	}

	if _, err := s.GetDocument(ctx, doc.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.GetMark(ctx, mark.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected mark to be deleted with document, got %v", err)
	}
	if err := s.DeleteDocument(ctx, doc.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAddMark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	mark, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 5), "greeting")
	if err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}
	if mark.ID == "" {
		t.Error("mark ID should not be empty")
	}
	if mark.DocumentID != doc.ID {
		t.Errorf("mark document = %q, want %q", mark.DocumentID, doc.ID)
	}
	if mark.Note != "greeting" {
		t.Errorf("mark note = %q, want %q", mark.Note, "greeting")
	}

	got, err := s.GetMark(ctx, mark.ID)
	if err != nil {
		t.Fatalf("failed to load mark: %v", err)
	}
	if got.Range != mark.Range {
		t.Errorf("loaded range %v, want %v", got.Range, mark.Range)
	}
}

func TestAddMarkValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// "Hello world" is 11 bytes.
	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	if _, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 5), ""); err != nil {
		t.Fatalf("failed to add first mark: %v", err)
	}

	tests := []struct {
		name    string
		r       highlight.Range
		wantErr error
	}{
		{"past end of content", highlight.NewRange(6, 12), highlight.ErrRangesOutOfBounds},
		{"zero width", highlight.NewRange(6, 6), highlight.ErrRangesOutOfBounds},
		{"overlaps existing mark", highlight.NewRange(3, 8), highlight.ErrOverlappingRanges},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddMark(ctx, doc.ID, tt.r, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddMark(%v) error = %v, want %v", tt.r, err, tt.wantErr)
			}
		})
	}

	// Rejected marks must not be stored.
	marks, err := s.ListMarks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to list marks: %v", err)
	}
	if len(marks) != 1 {
		t.Errorf("listed %d marks, want 1", len(marks))
	}

	// Touching the existing mark is fine.
	if _, err := s.AddMark(ctx, doc.ID, highlight.NewRange(5, 11), ""); err != nil {
		t.Errorf("touching mark should be accepted, got %v", err)
	}
}

func TestAddMarkUnknownDocument(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddMark(context.Background(), "missing", highlight.NewRange(0, 1), "")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListMarksOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world, how are you?", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	// Insert out of position order.
	for _, r := range []highlight.Range{
		highlight.NewRange(13, 16),
		highlight.NewRange(0, 5),
		highlight.NewRange(6, 11),
	} {
		if _, err := s.AddMark(ctx, doc.ID, r, ""); err != nil {
			t.Fatalf("failed to add mark %v: %v", r, err)
		}
	}

	marks, err := s.ListMarks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to list marks: %v", err)
	}
	if len(marks) != 3 {
		t.Fatalf("listed %d marks, want 3", len(marks))
	}
	for i := 1; i < len(marks); i++ {
		if marks[i].Range.Lower < marks[i-1].Range.Lower {
			t.Errorf("marks out of order: %v before %v", marks[i-1].Range, marks[i].Range)
		}
	}
}

func TestDeleteMark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	mark, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 5), "")
	if err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}

	if err := s.DeleteMark(ctx, mark.ID); err != nil {
		t.Fatalf("failed to delete mark: %v", err)
	}
	if _, err := s.GetMark(ctx, mark.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteMark(ctx, mark.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClearMarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	for _, r := range []highlight.Range{highlight.NewRange(0, 5), highlight.NewRange(6, 11)} {
		if _, err := s.AddMark(ctx, doc.ID, r, ""); err != nil {
			t.Fatalf("failed to add mark %v: %v", r, err)
		}
	}

	n, err := s.ClearMarks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to clear marks: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d marks, want 2", n)
	}

	marks, err := s.ListMarks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to list marks: %v", err)
	}
	if len(marks) != 0 {
		t.Errorf("listed %d marks after clear, want 0", len(marks))
	}

	// Clearing again is a no-op.
	n, err = s.ClearMarks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("failed to clear empty mark set: %v", err)
	}
	if n != 0 {
		t.Errorf("cleared %d marks from empty set, want 0", n)
	}
}

func TestMarkRanges(t *testing.T) {
	marks := []*Mark{
		{Range: highlight.NewRange(6, 11)},
		{Range: highlight.NewRange(0, 5)},
	}
	ranges := MarkRanges(marks)
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if ranges[0] != marks[0].Range || ranges[1] != marks[1].Range {
		t.Error("ranges should preserve slice order")
	}
}

func TestRenderDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	// No marks renders plain content.
	out, err := s.RenderDocument(ctx, doc.ID, highlight.Options{})
	if err != nil {
		t.Fatalf("failed to render document: %v", err)
	}
	if out != "Hello world" {
		t.Errorf("rendered %q, want plain content", out)
	}

	if _, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 5), ""); err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}
	out, err = s.RenderDocument(ctx, doc.ID, highlight.Options{})
	if err != nil {
		t.Fatalf("failed to render document: %v", err)
	}
	if out != "<em>Hello</em> world" {
		t.Errorf("rendered %q, want %q", out, "<em>Hello</em> world")
	}

	if _, err := s.RenderDocument(ctx, "missing", highlight.Options{}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing document, got %v", err)
	}
}

func TestRenderDocumentDetectsTampering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	// Rewrite the content behind the store's back. The stored hash no
	// longer matches, so rendering must refuse.
	if _, err := s.db.Exec(`UPDATE documents SET content = ? WHERE id = ?`, "tampered", doc.ID); err != nil {
		t.Fatalf("failed to tamper with content: %v", err)
	}

	_, err = s.RenderDocument(ctx, doc.ID, highlight.Options{})
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError for hash mismatch, got %v", err)
	}
	if ioErr.Operation != "verify" {
		t.Errorf("operation = %q, want %q", ioErr.Operation, "verify")
	}
}

func TestRenderDocumentTouchModes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	for _, r := range []highlight.Range{highlight.NewRange(0, 5), highlight.NewRange(5, 11)} {
		if _, err := s.AddMark(ctx, doc.ID, r, ""); err != nil {
			t.Fatalf("failed to add mark %v: %v", r, err)
		}
	}

	merged, err := s.RenderDocument(ctx, doc.ID, highlight.Options{Touch: highlight.TouchMerge})
	if err != nil {
		t.Fatalf("failed to render merged: %v", err)
	}
	if merged != "<em>Hello world</em>" {
		t.Errorf("merged render = %q, want %q", merged, "<em>Hello world</em>")
	}

	split, err := s.RenderDocument(ctx, doc.ID, highlight.Options{Touch: highlight.TouchSplit})
	if err != nil {
		t.Fatalf("failed to render split: %v", err)
	}
	if split != "<em>Hello</em><em> world</em>" {
		t.Errorf("split render = %q, want %q", split, "<em>Hello</em><em> world</em>")
	}
	if strings.Count(split, "<em>") != 2 {
		t.Errorf("split render should keep both markers, got %q", split)
	}
}

func TestVerifyAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateDocument(ctx, "First", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	if _, err := s.AddMark(ctx, first.ID, highlight.NewRange(0, 5), ""); err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}
	if _, err := s.CreateDocument(ctx, "Second", "More text", ""); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	results, err := s.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Both documents were created in the same second, so rely on titles
	// rather than result order.
	byTitle := make(map[string]VerifyResult, len(results))
	for _, res := range results {
		if res.Err != nil {
			t.Errorf("document %s failed verification: %v", res.Title, res.Err)
		}
		byTitle[res.Title] = res
	}
	if res, ok := byTitle["First"]; !ok || res.Marks != 1 {
		t.Errorf("result for First = %+v", res)
	}
}

func TestVerifyAllDetectsTampering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	if _, err := s.db.Exec(`UPDATE documents SET content = ? WHERE id = ?`, "tampered", doc.ID); err != nil {
		t.Fatalf("failed to tamper with content: %v", err)
	}

	results, err := s.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Fatal("expected hash mismatch to be reported")
	}
	if !strings.Contains(results[0].Err.Error(), "content hash mismatch") {
		t.Errorf("err = %v, want content hash mismatch", results[0].Err)
	}
}

func TestVerifyAllDetectsStaleMarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Notes", "Hello world", "")
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	if _, err := s.AddMark(ctx, doc.ID, highlight.NewRange(0, 11), ""); err != nil {
		t.Fatalf("failed to add mark: %v", err)
	}

	// Shrink the content and fix up the hash so only the mark is stale.
	short := "Hi"
	if _, err := s.db.Exec(`UPDATE documents SET content = ?, content_hash = ? WHERE id = ?`,
		short, integrity.HashString(short), doc.ID); err != nil {
		t.Fatalf("failed to rewrite content: %v", err)
	}

	results, err := s.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].Err, highlight.ErrRangesOutOfBounds) {
		t.Errorf("err = %v, want out-of-bounds", results[0].Err)
	}
}
