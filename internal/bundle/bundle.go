// Package bundle packs a document and its marks into a portable archive
// and restores them elsewhere. A bundle is a tar archive, XZ-compressed by
// default, with three members: manifest.json (format version, tool info,
// content hash), document.txt (the exact text bytes), and marks.json (the
// stand-off ranges). Import verifies the content hash and re-validates the
// mark set before storing anything, so a bundle that drifted from its text
// is rejected as a whole.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/core/highlight"
	"github.com/EliasDerHai/limelight/core/integrity"
	"github.com/EliasDerHai/limelight/internal/store"
	"github.com/EliasDerHai/limelight/internal/validation"
)

// Version is the current bundle format version.
const Version = "1.0.0"

const (
	manifestName = "manifest.json"
	documentName = "document.txt"
	marksName    = "marks.json"
)

// CompressionType specifies the compression algorithm for bundle archives.
type CompressionType string

const (
	// CompressionXZ uses XZ/LZMA2 compression (default, best ratio).
	CompressionXZ CompressionType = "xz"
	// CompressionGzip uses gzip compression (stdlib, faster).
	CompressionGzip CompressionType = "gzip"
)

// Options configures bundle packing behavior.
type Options struct {
	// Compression specifies the compression algorithm. Defaults to XZ.
	Compression CompressionType
}

// DefaultOptions returns the default packing options (XZ compression).
func DefaultOptions() *Options {
	return &Options{
		Compression: CompressionXZ,
	}
}

// Manifest is the bundle manifest (manifest.json).
type Manifest struct {
	BundleVersion string       `json:"bundle_version"`
	CreatedAt     string       `json:"created_at"`
	Tool          ToolInfo     `json:"tool"`
	Document      DocumentInfo `json:"document"`
	MarkCount     int          `json:"mark_count"`
}

// ToolInfo describes the tool that created the bundle.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// DocumentInfo describes the bundled document.
type DocumentInfo struct {
	Title       string `json:"title"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// markRecord is one mark as stored in marks.json.
type markRecord struct {
	Lower int    `json:"lower"`
	Upper int    `json:"upper"`
	Note  string `json:"note,omitempty"`
}

// Export writes the document and its marks as a compressed bundle at path.
func Export(ctx context.Context, st *store.Store, documentID, path string, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validation.ValidatePath(path); err != nil {
		return errors.Wrap(err, "invalid bundle path")
	}

	doc, err := st.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	marks, err := st.ListMarks(ctx, documentID)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	if err := writeBundle(file, doc, marks, opts); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	return nil
}

func writeBundle(file io.Writer, doc *store.Document, marks []*store.Mark, opts *Options) error {
	var compressWriter io.WriteCloser
	var err error
	switch opts.Compression {
	case CompressionGzip:
		compressWriter, err = gzip.NewWriterLevel(file, gzip.BestCompression)
		if err != nil {
			return errors.Wrap(err, "failed to create gzip writer")
		}
	case CompressionXZ:
		fallthrough
	default:
		compressWriter, err = xz.NewWriter(file)
		if err != nil {
			return errors.Wrap(err, "failed to create xz writer")
		}
	}

	manifest := Manifest{
		BundleVersion: Version,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Tool:          ToolInfo{Name: "limelight"},
		Document: DocumentInfo{
			Title:       doc.Title,
			Format:      doc.Format,
			ContentHash: doc.ContentHash,
			SizeBytes:   int64(len(doc.Content)),
			CreatedAt:   doc.CreatedAt.Format(time.RFC3339),
		},
		MarkCount: len(marks),
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize manifest")
	}

	records := make([]markRecord, len(marks))
	for i, m := range marks {
		records[i] = markRecord{Lower: m.Range.Lower, Upper: m.Range.Upper, Note: m.Note}
	}
	marksData, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize marks")
	}

	tarWriter := tar.NewWriter(compressWriter)

	// Manifest goes first so readers can inspect a bundle with a single
	// sequential pass.
	members := []struct {
		name string
		data []byte
	}{
		{manifestName, manifestData},
		{documentName, []byte(doc.Content)},
		{marksName, marksData},
	}
	for _, m := range members {
		if err := writeToTar(tarWriter, m.name, m.data); err != nil {
			return errors.Wrapf(err, "failed to write %s", m.name)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return errors.Wrap(err, "failed to finish tar archive")
	}
	if err := compressWriter.Close(); err != nil {
		return errors.Wrap(err, "failed to finish compression")
	}
	return nil
}

func writeToTar(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(data)),
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err := tw.Write(data)
	return err
}

// DetectCompression detects the compression type of a bundle archive.
func DetectCompression(path string) (CompressionType, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer file.Close()

	magic := make([]byte, 6)
	n, err := file.Read(magic)
	if err != nil {
		return "", errors.NewIO("read magic bytes", path, err)
	}
	if n < 2 {
		return "", errors.NewValidation("bundle", "file too small to detect compression")
	}

	// Gzip magic (1f 8b)
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return CompressionGzip, nil
	}

	// XZ magic (fd 37 7a 58 5a 00)
	if n >= 6 && magic[0] == 0xfd && magic[1] == 0x37 && magic[2] == 0x7a &&
		magic[3] == 0x58 && magic[4] == 0x5a && magic[5] == 0x00 {
		return CompressionXZ, nil
	}

	return "", errors.NewUnsupported("compression format", "unknown magic bytes")
}

// bundleContents is a fully read, not yet verified bundle.
type bundleContents struct {
	manifest *Manifest
	document []byte
	marks    []markRecord
}

// readBundle reads a bundle archive into memory. Unknown flat members are
// skipped for forward compatibility; nested member names are rejected.
func readBundle(path string) (*bundleContents, error) {
	compression, err := DetectCompression(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer file.Close()

	var reader io.Reader
	switch compression {
	case CompressionGzip:
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create gzip reader")
		}
		defer gzReader.Close()
		reader = gzReader
	case CompressionXZ:
		xzReader, err := xz.NewReader(file)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create xz reader")
		}
		reader = xzReader
	}

	contents := &bundleContents{}
	tarReader := tar.NewReader(reader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read tar header")
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if err := validation.ValidateFilename(header.Name); err != nil {
			return nil, errors.Wrapf(err, "bad bundle member %q", header.Name)
		}

		data, err := readMember(tarReader, header.Name)
		if err != nil {
			return nil, err
		}

		switch header.Name {
		case manifestName:
			manifest := &Manifest{}
			if err := json.Unmarshal(data, manifest); err != nil {
				return nil, errors.NewParse("JSON", manifestName, err.Error())
			}
			contents.manifest = manifest
		case documentName:
			contents.document = data
		case marksName:
			if err := json.Unmarshal(data, &contents.marks); err != nil {
				return nil, errors.NewParse("JSON", marksName, err.Error())
			}
		}
	}

	if contents.manifest == nil {
		return nil, errors.NewValidation("bundle", "archive does not contain manifest.json")
	}
	if contents.document == nil {
		return nil, errors.NewValidation("bundle", "archive does not contain document.txt")
	}
	return contents, nil
}

func readMember(r io.Reader, name string) ([]byte, error) {
	// Cap reads so a corrupt size field cannot exhaust memory.
	data, err := io.ReadAll(io.LimitReader(r, validation.MaxFileSize+1))
	if err != nil {
		return nil, errors.NewIO("read", name, err)
	}
	if int64(len(data)) > validation.MaxFileSize {
		return nil, errors.NewValidation("bundle", "member "+name+" exceeds maximum size")
	}
	return data, nil
}

// Inspect reads only the descriptive parts of a bundle: its manifest.
func Inspect(path string) (*Manifest, error) {
	contents, err := readBundle(path)
	if err != nil {
		return nil, err
	}
	return contents.manifest, nil
}

// Import reads a bundle and stores its document and marks. The document
// text must match the manifest's content hash and the mark set must
// validate against the text, otherwise nothing is stored.
func Import(ctx context.Context, st *store.Store, path string) (*store.Document, error) {
	contents, err := readBundle(path)
	if err != nil {
		return nil, err
	}

	manifest := contents.manifest
	if !integrity.IsValid(manifest.Document.ContentHash) {
		return nil, errors.NewValidation("bundle", "manifest content hash is not a BLAKE3 hex digest")
	}
	if !integrity.Verify(contents.document, manifest.Document.ContentHash) {
		return nil, errors.NewValidation("bundle", "document content does not match manifest hash")
	}

	ranges := make([]highlight.Range, len(contents.marks))
	for i, m := range contents.marks {
		ranges[i] = highlight.Range{Lower: m.Lower, Upper: m.Upper}
	}
	if err := highlight.Validate(len(contents.document), ranges); err != nil {
		return nil, errors.Wrap(err, "bundle marks are not applicable to its document")
	}

	doc, err := st.CreateDocument(ctx, manifest.Document.Title, string(contents.document), manifest.Document.Format)
	if err != nil {
		return nil, err
	}
	for _, m := range contents.marks {
		if _, err := st.AddMark(ctx, doc.ID, highlight.Range{Lower: m.Lower, Upper: m.Upper}, m.Note); err != nil {
			// Leave no partial import behind.
			st.DeleteDocument(ctx, doc.ID)
			return nil, errors.Wrap(err, "failed to restore marks")
		}
	}
	return doc, nil
}
