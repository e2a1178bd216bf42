package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/EliasDerHai/limelight/core/encoding"
	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/core/highlight"
	"github.com/EliasDerHai/limelight/core/rangespec"
	"github.com/EliasDerHai/limelight/internal/bundle"
	"github.com/EliasDerHai/limelight/internal/formats"
	"github.com/EliasDerHai/limelight/internal/logging"
	"github.com/EliasDerHai/limelight/internal/server"
	"github.com/EliasDerHai/limelight/internal/store"
	"github.com/EliasDerHai/limelight/internal/validation"
)

// Length caps for user-supplied metadata fields.
const (
	maxTitleLength = 256
	maxNoteLength  = 1024
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// DocumentSummary is the list form of a document: everything but the text.
type DocumentSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Format      string    `json:"format"`
	SizeBytes   int       `json:"size_bytes"`
	ContentHash string    `json:"content_hash"`
	MarkCount   int       `json:"mark_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentDetail is a document together with its marks.
type DocumentDetail struct {
	*store.Document
	Marks []*store.Mark `json:"marks"`
}

// CreateDocumentRequest is the JSON body for document creation.
type CreateDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Format  string `json:"format,omitempty"` // text, markdown, xml
	XPath   string `json:"xpath,omitempty"`  // node selection for xml
}

// UpdateDocumentRequest is the JSON body for document updates. Replacing
// the content voids all marks on the document.
type UpdateDocumentRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// CreateMarkRequest is the JSON body for adding marks. Lower and Upper
// are pointers so that offset zero survives decoding; Spec is the
// rangespec notation accepted as an alternative and may name several
// ranges, each of which becomes its own mark.
type CreateMarkRequest struct {
	Lower *int   `json:"lower"`
	Upper *int   `json:"upper"`
	Spec  string `json:"spec,omitempty"`
	Note  string `json:"note,omitempty"`
}

// HighlightRequest is the request body for stateless highlighting. Ranges
// are [lower, upper) byte offset pairs; Spec is the rangespec notation
// accepted as an alternative.
type HighlightRequest struct {
	Text        string   `json:"text"`
	Ranges      [][2]int `json:"ranges,omitempty"`
	Spec        string   `json:"spec,omitempty"`
	OpenMarker  string   `json:"open_marker,omitempty"`
	CloseMarker string   `json:"close_marker,omitempty"`
	Touch       string   `json:"touch,omitempty"` // merge (default) or split
	HTML        bool     `json:"html,omitempty"`  // escape text segments for HTML output
}

// HighlightResult is the highlighted output.
type HighlightResult struct {
	Output     string `json:"output"`
	RangeCount int    `json:"range_count"`
}

// RenderResult is a rendered stored document.
type RenderResult struct {
	DocumentID string `json:"document_id"`
	Output     string `json:"output"`
}

// FormatInfo describes a supported input format.
type FormatInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Extensions  []string `json:"extensions"`
	Description string   `json:"description"`
	UsesXPath   bool     `json:"uses_xpath,omitempty"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Documents int    `json:"documents"`
	Driver    string `json:"driver"`
}

var startTime = time.Now()

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Limelight API",
		"version": "0.1.0",
		"endpoints": []string{
			"GET /health",
			"POST /highlight",
			"GET /documents",
			"POST /documents",
			"POST /documents/import",
			"GET /documents/:id",
			"PATCH /documents/:id",
			"DELETE /documents/:id",
			"GET /documents/:id/render",
			"GET /documents/:id/export",
			"GET /documents/:id/marks",
			"POST /documents/:id/marks",
			"DELETE /documents/:id/marks",
			"DELETE /documents/:id/marks/:markID",
			"GET /formats",
			"WS /ws",
		},
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	docs, err := ServerStore.ListDocuments(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:    "healthy",
		Version:   "0.1.0",
		Uptime:    time.Since(startTime).String(),
		Documents: len(docs),
		Driver:    store.Driver().Name,
	})
}

// handleHighlight applies ranges to request-supplied text without touching
// the store. An empty range list is valid and returns the text unchanged.
func handleHighlight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	var req HighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		parseErr := errors.NewParse("JSON", "request body", err.Error())
		respondError(w, http.StatusBadRequest, "INVALID_JSON", parseErr.Error())
		return
	}

	if len(req.Ranges) > 0 && req.Spec != "" {
		validErr := errors.NewValidation("request", "provide either ranges or spec, not both")
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", validErr.Error())
		return
	}

	ranges := make([]highlight.Range, 0, len(req.Ranges))
	for _, pair := range req.Ranges {
		ranges = append(ranges, highlight.NewRange(pair[0], pair[1]))
	}
	if req.Spec != "" {
		resolved, err := rangespec.ParseAndResolve(req.Spec, req.Text)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_SPEC", err.Error())
			return
		}
		ranges = resolved
	}

	opts := highlight.Options{
		OpenMarker:  req.OpenMarker,
		CloseMarker: req.CloseMarker,
	}
	if req.HTML {
		opts.Escape = encoding.EscapeHTML
	}
	touch, err := parseTouchMode(req.Touch)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_TOUCH", err.Error())
		return
	}
	opts.Touch = touch

	output, err := highlight.Apply(req.Text, ranges, opts)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	respond(w, http.StatusOK, HighlightResult{Output: output, RangeCount: len(ranges)})
}

func handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listDocumentsHandler(w, r)
	case http.MethodPost:
		createDocumentHandler(w, r)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

func listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := ServerStore.ListDocuments(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}

	summaries := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		marks, err := ServerStore.ListMarks(r.Context(), doc.ID)
		if err != nil {
			respondOperationError(w, err)
			return
		}
		summaries = append(summaries, DocumentSummary{
			ID:          doc.ID,
			Title:       doc.Title,
			Format:      doc.Format,
			SizeBytes:   len(doc.Content),
			ContentHash: doc.ContentHash,
			MarkCount:   len(marks),
			CreatedAt:   doc.CreatedAt,
		})
	}

	response := APIResponse{
		Success: true,
		Data:    summaries,
		Meta: &APIMeta{
			Total:     len(summaries),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// createDocumentHandler accepts either a JSON body or the raw document
// bytes. A raw body takes its title and xpath from query parameters and
// its format from the Content-Type header.
func createDocumentHandler(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if !server.ValidateContentType(contentType, server.AllowedDocumentContentTypes) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			fmt.Sprintf("Content-Type %q not supported", contentType))
		return
	}

	var req CreateDocumentRequest
	if server.ValidateContentType(contentType, []string{"application/json"}) {
		if err := json.NewDecoder(io.LimitReader(r.Body, validation.MaxDocumentSize+4096)).Decode(&req); err != nil {
			parseErr := errors.NewParse("JSON", "request body", err.Error())
			respondError(w, http.StatusBadRequest, "INVALID_JSON", parseErr.Error())
			return
		}
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, validation.MaxDocumentSize+1))
		if err != nil {
			respondError(w, http.StatusBadRequest, "READ_FAILED", "Failed to read request body")
			return
		}
		req = CreateDocumentRequest{
			Title:   r.URL.Query().Get("title"),
			Content: string(body),
			Format:  formatForContentType(contentType),
			XPath:   r.URL.Query().Get("xpath"),
		}
	}

	req.Title = server.SanitizeUserInput(server.LimitStringLength(req.Title, maxTitleLength))

	doc, err := createDocument(r.Context(), req)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	BroadcastDocumentEvent(EventDocumentAdded, doc.ID, doc.Title)
	respond(w, http.StatusCreated, doc)
}

// createDocument extracts plain text per the requested format and stores
// it. Marks made later address the extracted text, so extraction happens
// exactly once, here.
func createDocument(ctx context.Context, req CreateDocumentRequest) (*store.Document, error) {
	if req.Format == "" {
		req.Format = "text"
	}
	kind, err := formats.ParseKind(req.Format)
	if err != nil {
		return nil, err
	}

	text, err := formats.Extract(kind, []byte(req.Content), formats.Options{XPath: req.XPath})
	if err != nil {
		return nil, err
	}

	return ServerStore.CreateDocument(ctx, req.Title, text, string(kind))
}

func handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/documents/"), "/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Document ID is required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			getDocumentHandler(w, r, id)
		case http.MethodPatch:
			updateDocumentHandler(w, r, id)
		case http.MethodDelete:
			deleteDocumentHandler(w, r, id)
		default:
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PATCH and DELETE are allowed")
		}
	case len(parts) == 2 && parts[1] == "render":
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
			return
		}
		renderDocumentHandler(w, r, id)
	case len(parts) == 2 && parts[1] == "export":
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
			return
		}
		exportDocumentHandler(w, r, id)
	case len(parts) == 2 && parts[1] == "marks":
		switch r.Method {
		case http.MethodGet:
			listMarksHandler(w, r, id)
		case http.MethodPost:
			createMarkHandler(w, r, id)
		case http.MethodDelete:
			clearMarksHandler(w, r, id)
		default:
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, POST and DELETE are allowed")
		}
	case len(parts) == 3 && parts[1] == "marks":
		if r.Method != http.MethodDelete {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only DELETE is allowed")
			return
		}
		deleteMarkHandler(w, r, id, parts[2])
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	}
}

func getDocumentHandler(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	marks, err := ServerStore.ListMarks(r.Context(), doc.ID)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	respond(w, http.StatusOK, DocumentDetail{Document: doc, Marks: marks})
}

func updateDocumentHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateDocumentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, validation.MaxDocumentSize+4096)).Decode(&req); err != nil {
		parseErr := errors.NewParse("JSON", "request body", err.Error())
		respondError(w, http.StatusBadRequest, "INVALID_JSON", parseErr.Error())
		return
	}
	if req.Title == nil && req.Content == nil {
		validErr := errors.NewValidation("request", "title or content is required")
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", validErr.Error())
		return
	}

	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	if req.Title != nil {
		title := server.SanitizeUserInput(server.LimitStringLength(*req.Title, maxTitleLength))
		doc, err = ServerStore.RenameDocument(r.Context(), doc.ID, title)
		if err != nil {
			respondOperationError(w, err)
			return
		}
	}
	if req.Content != nil {
		doc, err = ServerStore.UpdateContent(r.Context(), doc.ID, *req.Content)
		if err != nil {
			respondOperationError(w, err)
			return
		}
	}

	BroadcastDocumentEvent(EventDocumentUpdated, doc.ID, doc.Title)
	respond(w, http.StatusOK, doc)
}

func deleteDocumentHandler(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	if err := ServerStore.DeleteDocument(r.Context(), doc.ID); err != nil {
		respondOperationError(w, err)
		return
	}

	BroadcastDocumentEvent(EventDocumentDeleted, doc.ID, doc.Title)
	respond(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

func renderDocumentHandler(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	opts := highlight.Options{}
	switch format := r.URL.Query().Get("format"); format {
	case "", "plain":
	case "html":
		opts.Escape = encoding.EscapeHTML
	default:
		respondError(w, http.StatusBadRequest, "INVALID_FORMAT",
			fmt.Sprintf("unknown render format %q (want plain or html)", format))
		return
	}
	touch, err := parseTouchMode(r.URL.Query().Get("touch"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_TOUCH", err.Error())
		return
	}
	opts.Touch = touch

	marks, err := ServerStore.ListMarks(r.Context(), doc.ID)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	output, err := ServerStore.RenderDocument(r.Context(), doc.ID, opts)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	logging.HighlightEvent(doc.ID, len(marks), "source", "api")
	respond(w, http.StatusOK, RenderResult{DocumentID: doc.ID, Output: output})
}

func exportDocumentHandler(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	opts := bundle.DefaultOptions()
	ext := ".tar.xz"
	switch compression := r.URL.Query().Get("compression"); compression {
	case "", "xz":
	case "gzip":
		opts.Compression = bundle.CompressionGzip
		ext = ".tar.gz"
	default:
		respondError(w, http.StatusBadRequest, "INVALID_COMPRESSION",
			fmt.Sprintf("unknown compression %q (want xz or gzip)", compression))
		return
	}

	tmp, err := os.CreateTemp("", "limelight-export-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to create temporary file")
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := bundle.Export(r.Context(), ServerStore, doc.ID, tmpPath, opts); err != nil {
		respondOperationError(w, err)
		return
	}

	logging.BundleEvent("export", tmpPath, 1, "document_id", doc.ID)

	// Prefer a title-based download name; fall back to the id when the
	// title cannot be made filename-safe.
	filename := doc.ID + ext
	if safe, err := validation.SanitizeFilename(doc.Title); err == nil {
		filename = safe + ext
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, tmpPath)
}

// handleImport accepts a bundle as a multipart file upload and stores its
// document and marks.
func handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	if err := r.ParseMultipartForm(validation.MaxFileSize); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "MISSING_FILE", "No file uploaded")
		return
	}
	defer file.Close()

	if err := validation.ValidateFilename(header.Filename); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename provided")
		return
	}

	// Check the upload's magic bytes against its claimed type, then rewind.
	if _, err := validation.ValidateFileType(file, header.Filename); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", fmt.Sprintf("File validation failed: %v", err))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		respondError(w, http.StatusInternalServerError, "IMPORT_FAILED", "Failed to process file")
		return
	}

	tmp, err := os.CreateTemp("", "limelight-import-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "IMPORT_FAILED", "Failed to create temporary file")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.CopyN(tmp, file, validation.MaxFileSize)
	if err != nil && err != io.EOF {
		tmp.Close()
		respondError(w, http.StatusInternalServerError, "IMPORT_FAILED", "Failed to write file")
		return
	}
	if err := tmp.Close(); err != nil {
		respondError(w, http.StatusInternalServerError, "IMPORT_FAILED", "Failed to write file")
		return
	}

	// More data left means the upload exceeds the limit
	if _, err := file.Read(make([]byte, 1)); err != io.EOF {
		respondError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "File exceeds maximum size limit")
		return
	}

	doc, err := bundle.Import(r.Context(), ServerStore, tmpPath)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	logging.BundleEvent("import", header.Filename, 1, "document_id", doc.ID, "size", written)
	BroadcastDocumentEvent(EventDocumentAdded, doc.ID, doc.Title)
	respond(w, http.StatusCreated, doc)
}

func listMarksHandler(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	marks, err := ServerStore.ListMarks(r.Context(), doc.ID)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	response := APIResponse{
		Success: true,
		Data:    marks,
		Meta: &APIMeta{
			Total:     len(marks),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func createMarkHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req CreateMarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		parseErr := errors.NewParse("JSON", "request body", err.Error())
		respondError(w, http.StatusBadRequest, "INVALID_JSON", parseErr.Error())
		return
	}
	if req.Spec != "" && (req.Lower != nil || req.Upper != nil) {
		validErr := errors.NewValidation("request", "provide either lower/upper or spec, not both")
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", validErr.Error())
		return
	}
	if req.Spec == "" && (req.Lower == nil || req.Upper == nil) {
		validErr := errors.NewValidation("request", "lower and upper (or spec) are required")
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", validErr.Error())
		return
	}

	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	note := server.SanitizeUserInput(server.LimitStringLength(req.Note, maxNoteLength))

	if req.Spec == "" {
		mark, err := ServerStore.AddMark(r.Context(), doc.ID, highlight.NewRange(*req.Lower, *req.Upper), note)
		if err != nil {
			respondOperationError(w, err)
			return
		}
		BroadcastMarkEvent(EventMarkAdded, doc.ID, mark.ID)
		respond(w, http.StatusCreated, mark)
		return
	}

	// A spec may resolve to several ranges. Marks are added only after the
	// combined set validates, so the batch is all-or-nothing.
	ranges, err := rangespec.ParseAndResolve(req.Spec, doc.Content)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_SPEC", err.Error())
		return
	}
	existing, err := ServerStore.ListMarks(r.Context(), doc.ID)
	if err != nil {
		respondOperationError(w, err)
		return
	}
	combined := append(store.MarkRanges(existing), ranges...)
	if err := highlight.Validate(len(doc.Content), combined); err != nil {
		respondOperationError(w, err)
		return
	}

	marks := make([]*store.Mark, 0, len(ranges))
	for _, rng := range ranges {
		mark, err := ServerStore.AddMark(r.Context(), doc.ID, rng, note)
		if err != nil {
			respondOperationError(w, err)
			return
		}
		BroadcastMarkEvent(EventMarkAdded, doc.ID, mark.ID)
		marks = append(marks, mark)
	}
	respond(w, http.StatusCreated, marks)
}

func clearMarksHandler(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	cleared, err := ServerStore.ClearMarks(r.Context(), doc.ID)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	BroadcastMarkEvent(EventMarksCleared, doc.ID, "")
	respond(w, http.StatusOK, map[string]int{"cleared": cleared})
}

func deleteMarkHandler(w http.ResponseWriter, r *http.Request, id, markID string) {
	doc, err := ServerStore.ResolveDocument(r.Context(), id)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	mark, err := ServerStore.GetMark(r.Context(), markID)
	if err != nil {
		respondOperationError(w, err)
		return
	}
	if mark.DocumentID != doc.ID {
		respondError(w, http.StatusNotFound, "NOT_FOUND", errors.NewNotFound("mark", markID).Error())
		return
	}

	if err := ServerStore.DeleteMark(r.Context(), markID); err != nil {
		respondOperationError(w, err)
		return
	}

	BroadcastMarkEvent(EventMarkRemoved, doc.ID, markID)
	respond(w, http.StatusOK, map[string]string{"message": "Mark deleted"})
}

func handleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	kinds := []FormatInfo{
		{ID: "text", Name: "Plain Text", Extensions: []string{".txt"}, Description: "Stored byte for byte"},
		{ID: "markdown", Name: "Markdown", Extensions: []string{".md", ".markdown"}, Description: "Plain text extracted from the Markdown AST"},
		{ID: "xml", Name: "XML", Extensions: []string{".xml"}, Description: "Inner text of the document or of XPath-selected nodes", UsesXPath: true},
	}

	response := APIResponse{
		Success: true,
		Data:    kinds,
		Meta: &APIMeta{
			Total:     len(kinds),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Helper functions

// formatForContentType maps a raw-body Content-Type to a document format.
func formatForContentType(contentType string) string {
	switch {
	case server.ValidateContentType(contentType, []string{"text/markdown"}):
		return "markdown"
	case server.ValidateContentType(contentType, []string{"application/xml", "text/xml"}):
		return "xml"
	default:
		return "text"
	}
}

// parseTouchMode maps the wire names onto highlight.TouchMode. Empty
// selects the default merge behavior.
func parseTouchMode(s string) (highlight.TouchMode, error) {
	switch strings.ToLower(s) {
	case "", "merge":
		return highlight.TouchMerge, nil
	case "split":
		return highlight.TouchSplit, nil
	default:
		return 0, errors.NewValidation("touch", fmt.Sprintf("unknown touch mode %q (want merge or split)", s))
	}
}

// respondOperationError maps domain errors onto API status codes. Range
// validation failures get their own codes so clients can tell the two
// rejection reasons apart.
func respondOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, highlight.ErrRangesOutOfBounds):
		respondError(w, http.StatusUnprocessableEntity, "RANGES_OUT_OF_BOUNDS", err.Error())
	case errors.Is(err, highlight.ErrOverlappingRanges):
		respondError(w, http.StatusUnprocessableEntity, "OVERLAPPING_RANGES", err.Error())
	case errors.Is(err, errors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, errors.ErrUnsupported):
		respondError(w, http.StatusBadRequest, "UNSUPPORTED", err.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
