// Command limelight is the CLI tool for Limelight.
// It provides commands for highlighting text, managing documents and marks,
// moving annotation bundles, and serving the REST API.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/EliasDerHai/limelight/core/encoding"
	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/core/highlight"
	"github.com/EliasDerHai/limelight/core/rangespec"
	"github.com/EliasDerHai/limelight/core/token"
	"github.com/EliasDerHai/limelight/internal/api"
	"github.com/EliasDerHai/limelight/internal/bundle"
	"github.com/EliasDerHai/limelight/internal/formats"
	"github.com/EliasDerHai/limelight/internal/logging"
	"github.com/EliasDerHai/limelight/internal/store"
	"github.com/EliasDerHai/limelight/internal/validation"
)

const version = "0.1.0"

// ANSI SGR marker pair used by render --ansi.
const (
	ansiOpenMarker  = "\x1b[1;33m"
	ansiCloseMarker = "\x1b[0m"
)

// CLI defines the command-line interface for limelight.
var CLI struct {
	// Global flags
	DB        string `name:"db" help:"SQLite database path" default:"limelight.db" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level" default:"info" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format" default:"auto" enum:"auto,text,json"`

	// Command groups (noun-first organization)
	Apply   ApplyCmd    `cmd:"" help:"Highlight ranges in text from a file or stdin"`
	Doc     DocGroup    `cmd:"" help:"Document operations (add, list, show, tokens, rm)"`
	Mark    MarkGroup   `cmd:"" help:"Mark operations (add, list, rm, clear)"`
	Render  RenderCmd   `cmd:"" help:"Render a stored document with its marks"`
	Bundle  BundleGroup `cmd:"" help:"Annotation bundle operations (export, import, info)"`
	Serve   ServeCmd    `cmd:"" help:"Start REST API server"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// DocGroup contains document lifecycle operations.
type DocGroup struct {
	Add    DocAddCmd    `cmd:"" help:"Add a document to the store"`
	List   DocListCmd   `cmd:"" help:"List stored documents"`
	Show   DocShowCmd   `cmd:"" help:"Print a document's text"`
	Tokens DocTokensCmd `cmd:"" help:"List word tokens with byte spans"`
	Verify DocVerifyCmd `cmd:"" help:"Verify stored content hashes and marks"`
	Rm     DocRmCmd     `cmd:"" help:"Remove a document and its marks"`
}

// MarkGroup contains mark operations.
type MarkGroup struct {
	Add   MarkAddCmd   `cmd:"" help:"Add a mark to a document"`
	List  MarkListCmd  `cmd:"" help:"List marks on a document"`
	Rm    MarkRmCmd    `cmd:"" help:"Remove a mark"`
	Clear MarkClearCmd `cmd:"" help:"Remove all marks from a document"`
}

// BundleGroup contains bundle operations.
type BundleGroup struct {
	Export BundleExportCmd `cmd:"" help:"Export a document and its marks as a bundle"`
	Import BundleImportCmd `cmd:"" help:"Import a bundle into the store"`
	Info   BundleInfoCmd   `cmd:"" help:"Show bundle manifest"`
}

// ApplyCmd highlights ranges in text without touching the store.
type ApplyCmd struct {
	File   string `arg:"" optional:"" help:"Input file (default: stdin)" type:"existingfile"`
	Ranges string `required:"" short:"r" help:"Range spec, e.g. \"12-34,40+5\" or \"w2-w4\""`
	Open   string `help:"Open marker" default:"<em>"`
	Close  string `help:"Close marker" default:"</em>"`
	Touch  string `help:"Rendering of touching ranges" default:"merge" enum:"merge,split"`
	HTML   bool   `help:"Escape text segments for HTML output"`
	Format string `help:"Input format" default:"auto" enum:"auto,text,markdown,xml"`
	XPath  string `name:"xpath" help:"XPath selecting the XML nodes to extract"`
}

func (c *ApplyCmd) Run() error {
	data, err := readInput(c.File)
	if err != nil {
		return err
	}

	kind, err := resolveKind(c.Format, c.File, data)
	if err != nil {
		return err
	}
	text, err := formats.Extract(kind, data, formats.Options{XPath: c.XPath})
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	ranges, err := rangespec.ParseAndResolve(c.Ranges, text)
	if err != nil {
		return fmt.Errorf("invalid range spec: %w", err)
	}

	opts := highlight.Options{
		OpenMarker:  c.Open,
		CloseMarker: c.Close,
		Touch:       touchMode(c.Touch),
	}
	if c.HTML {
		opts.Escape = encoding.EscapeHTML
	}

	out, err := highlight.Apply(text, ranges, opts)
	if err != nil {
		return err
	}

	printText(out)
	return nil
}

// DocAddCmd adds a document to the store.
type DocAddCmd struct {
	Title  string `arg:"" help:"Document title"`
	File   string `arg:"" optional:"" help:"Input file (default: stdin)" type:"existingfile"`
	Format string `help:"Input format" default:"auto" enum:"auto,text,markdown,xml"`
	XPath  string `name:"xpath" help:"XPath selecting the XML nodes to extract"`
}

func (c *DocAddCmd) Run() error {
	data, err := readInput(c.File)
	if err != nil {
		return err
	}

	kind, err := resolveKind(c.Format, c.File, data)
	if err != nil {
		return err
	}
	text, err := formats.Extract(kind, data, formats.Options{XPath: c.XPath})
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.CreateDocument(context.Background(), c.Title, text, string(kind))
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	fmt.Printf("Added: %s\n", doc.Title)
	fmt.Printf("  ID: %s\n", doc.ID)
	fmt.Printf("  Format: %s\n", doc.Format)
	fmt.Printf("  Size: %s\n", humanize.Bytes(uint64(len(doc.Content))))
	fmt.Printf("  BLAKE3: %s\n", doc.ContentHash)
	return nil
}

// DocListCmd lists stored documents.
type DocListCmd struct{}

func (c *DocListCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No documents stored.")
		return nil
	}

	fmt.Printf("Documents in %s:\n\n", st.Path())
	for _, d := range docs {
		marks, err := st.ListMarks(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("failed to list marks: %w", err)
		}
		fmt.Printf("  %s\n", d.Title)
		fmt.Printf("    ID: %s\n", d.ID)
		fmt.Printf("    Format: %s\n", d.Format)
		fmt.Printf("    Size: %s\n", humanize.Bytes(uint64(len(d.Content))))
		fmt.Printf("    Marks: %d\n", len(marks))
		fmt.Printf("    Created: %s\n", humanize.Time(d.CreatedAt))
		fmt.Println()
	}

	fmt.Printf("Total: %d document(s)\n", len(docs))
	return nil
}

// DocShowCmd prints a document's text.
type DocShowCmd struct {
	Doc  string `arg:"" help:"Document ID or title"`
	Meta bool   `help:"Show metadata instead of content"`
}

func (c *DocShowCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}

	if c.Meta {
		marks, err := st.ListMarks(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to list marks: %w", err)
		}
		fmt.Printf("Document: %s\n", doc.Title)
		fmt.Printf("  ID: %s\n", doc.ID)
		fmt.Printf("  Format: %s\n", doc.Format)
		fmt.Printf("  Size: %s (%d bytes)\n", humanize.Bytes(uint64(len(doc.Content))), len(doc.Content))
		fmt.Printf("  BLAKE3: %s\n", doc.ContentHash)
		fmt.Printf("  Marks: %d\n", len(marks))
		fmt.Printf("  Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	}

	printText(doc.Content)
	return nil
}

// DocTokensCmd lists document tokens so word-addressed range specs can be
// written against their indexes.
type DocTokensCmd struct {
	Doc string `arg:"" help:"Document ID or title"`
	All bool   `help:"Include whitespace and punctuation tokens"`
}

func (c *DocTokensCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.ResolveDocument(context.Background(), c.Doc)
	if err != nil {
		return err
	}

	tokens := token.Tokenize(doc.Content)
	if c.All {
		if len(tokens) == 0 {
			fmt.Println("No tokens.")
			return nil
		}
		for _, t := range tokens {
			fmt.Printf("  %d\t%s\t%s\t%q\n", t.Index, t.Kind, t.Span, t.Text)
		}
		fmt.Printf("Total: %d token(s)\n", len(tokens))
		return nil
	}

	words := token.Words(tokens)
	if len(words) == 0 {
		fmt.Println("No words.")
		return nil
	}
	for _, t := range words {
		fmt.Printf("  w%d\t%s\t%s\n", t.Index, t.Span, t.Text)
	}
	fmt.Printf("Total: %d word(s)\n", len(words))
	return nil
}

// DocVerifyCmd re-checks every stored document's content hash and mark set.
type DocVerifyCmd struct{}

func (c *DocVerifyCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.VerifyAll(context.Background())
	if err != nil {
		return fmt.Errorf("failed to verify store: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No documents stored.")
		return nil
	}

	failures := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("  [FAIL] %s: %v\n", res.Title, res.Err)
			failures++
			continue
		}
		fmt.Printf("  [OK] %s (%d mark(s))\n", res.Title, res.Marks)
	}

	if failures > 0 {
		return fmt.Errorf("verification failed: %d error(s)", failures)
	}
	fmt.Println("Verification passed!")
	return nil
}

// DocRmCmd removes a document and its marks.
type DocRmCmd struct {
	Doc string `arg:"" help:"Document ID or title"`
}

func (c *DocRmCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}
	if err := st.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Removed: %s\n", doc.Title)
	return nil
}

// MarkAddCmd adds marks to a document. A spec with multiple items adds one
// mark per resolved range.
type MarkAddCmd struct {
	Doc  string `arg:"" help:"Document ID or title"`
	Spec string `arg:"" help:"Range spec, e.g. \"12-34\" or \"w2-w4\""`
	Note string `help:"Note attached to the mark"`
}

func (c *MarkAddCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}

	ranges, err := rangespec.ParseAndResolve(c.Spec, doc.Content)
	if err != nil {
		return fmt.Errorf("invalid range spec: %w", err)
	}

	for _, r := range ranges {
		mark, err := st.AddMark(ctx, doc.ID, r, c.Note)
		if err != nil {
			return err
		}
		fmt.Printf("Added mark: %s\n", mark.ID)
		fmt.Printf("  Range: %s\n", mark.Range)
		fmt.Printf("  Text: %q\n", snippet(doc.Content[mark.Range.Lower:mark.Range.Upper], 60))
	}
	return nil
}

// MarkListCmd lists the marks on a document.
type MarkListCmd struct {
	Doc string `arg:"" help:"Document ID or title"`
}

func (c *MarkListCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}
	marks, err := st.ListMarks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list marks: %w", err)
	}
	if len(marks) == 0 {
		fmt.Printf("No marks on %s.\n", doc.Title)
		return nil
	}

	fmt.Printf("Marks on %s:\n\n", doc.Title)
	for _, m := range marks {
		fmt.Printf("  %s\n", m.ID)
		fmt.Printf("    Range: %s\n", m.Range)
		fmt.Printf("    Text: %q\n", snippet(doc.Content[m.Range.Lower:m.Range.Upper], 60))
		if m.Note != "" {
			fmt.Printf("    Note: %s\n", m.Note)
		}
		fmt.Println()
	}

	fmt.Printf("Total: %d mark(s)\n", len(marks))
	return nil
}

// MarkRmCmd removes a single mark.
type MarkRmCmd struct {
	Doc string `arg:"" help:"Document ID or title"`
	ID  string `arg:"" help:"Mark ID"`
}

func (c *MarkRmCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}
	mark, err := st.GetMark(ctx, c.ID)
	if err != nil {
		return err
	}
	if mark.DocumentID != doc.ID {
		return errors.NewNotFound("mark", c.ID)
	}
	if err := st.DeleteMark(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete mark: %w", err)
	}

	fmt.Printf("Removed mark: %s\n", c.ID)
	return nil
}

// MarkClearCmd removes every mark from a document.
type MarkClearCmd struct {
	Doc string `arg:"" help:"Document ID or title"`
}

func (c *MarkClearCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}
	n, err := st.ClearMarks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to clear marks: %w", err)
	}

	fmt.Printf("Removed %d mark(s) from %s\n", n, doc.Title)
	return nil
}

// RenderCmd renders a stored document with its marks applied.
type RenderCmd struct {
	Doc   string `arg:"" help:"Document ID or title"`
	HTML  bool   `help:"Escape text segments for HTML output" xor:"mode"`
	ANSI  bool   `help:"Highlight with ANSI terminal colors" xor:"mode"`
	Touch string `help:"Rendering of touching ranges" default:"merge" enum:"merge,split"`
	Open  string `help:"Open marker (overrides --ansi)"`
	Close string `help:"Close marker (overrides --ansi)"`
}

func (c *RenderCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}

	opts := highlight.Options{Touch: touchMode(c.Touch)}
	if c.HTML {
		opts.Escape = encoding.EscapeHTML
	}
	if c.ANSI {
		opts.OpenMarker = ansiOpenMarker
		opts.CloseMarker = ansiCloseMarker
	}
	if c.Open != "" {
		opts.OpenMarker = c.Open
	}
	if c.Close != "" {
		opts.CloseMarker = c.Close
	}

	out, err := st.RenderDocument(ctx, doc.ID, opts)
	if err != nil {
		return err
	}

	printText(out)
	return nil
}

// BundleExportCmd exports a document and its marks as a compressed bundle.
type BundleExportCmd struct {
	Doc         string `arg:"" help:"Document ID or title"`
	Out         string `required:"" help:"Output bundle path" type:"path"`
	Compression string `help:"Bundle compression" default:"xz" enum:"xz,gzip"`
}

func (c *BundleExportCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := st.ResolveDocument(ctx, c.Doc)
	if err != nil {
		return err
	}
	marks, err := st.ListMarks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list marks: %w", err)
	}

	opts := &bundle.Options{Compression: bundle.CompressionType(c.Compression)}
	if err := bundle.Export(ctx, st, doc.ID, c.Out, opts); err != nil {
		return fmt.Errorf("failed to export bundle: %w", err)
	}

	fmt.Printf("Exported: %s\n", doc.Title)
	fmt.Printf("  Marks: %d\n", len(marks))
	fmt.Printf("  Output: %s\n", c.Out)
	return nil
}

// BundleImportCmd imports a bundle into the store.
type BundleImportCmd struct {
	Path string `arg:"" help:"Path to bundle" type:"existingfile"`
}

func (c *BundleImportCmd) Run() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	doc, err := bundle.Import(ctx, st, c.Path)
	if err != nil {
		return fmt.Errorf("failed to import bundle: %w", err)
	}
	marks, err := st.ListMarks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list marks: %w", err)
	}

	fmt.Printf("Imported: %s\n", doc.Title)
	fmt.Printf("  ID: %s\n", doc.ID)
	fmt.Printf("  Format: %s\n", doc.Format)
	fmt.Printf("  Marks: %d\n", len(marks))
	return nil
}

// BundleInfoCmd shows a bundle's manifest without importing it.
type BundleInfoCmd struct {
	Path string `arg:"" help:"Path to bundle" type:"existingfile"`
}

func (c *BundleInfoCmd) Run() error {
	m, err := bundle.Inspect(c.Path)
	if err != nil {
		return fmt.Errorf("failed to inspect bundle: %w", err)
	}

	tool := m.Tool.Name
	if m.Tool.Version != "" {
		tool += " v" + m.Tool.Version
	}

	fmt.Printf("Bundle: %s\n", c.Path)
	fmt.Printf("  Version: %s\n", m.BundleVersion)
	fmt.Printf("  Created: %s\n", m.CreatedAt)
	fmt.Printf("  Tool: %s\n", tool)
	fmt.Printf("  Document: %s (%s)\n", m.Document.Title, m.Document.Format)
	fmt.Printf("  Size: %s\n", humanize.Bytes(uint64(m.Document.SizeBytes)))
	fmt.Printf("  BLAKE3: %s\n", m.Document.ContentHash)
	fmt.Printf("  Marks: %d\n", m.MarkCount)
	return nil
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port              int      `help:"HTTP server port" default:"8080"`
	APIKey            string   `help:"API key for authentication (enables auth)" env:"LIMELIGHT_API_KEY"`
	Origins           []string `help:"Allowed CORS origins (default: allow all)"`
	RateLimitRequests int      `help:"Rate limit in requests per minute (0 = disabled)"`
	RateLimitBurst    int      `help:"Rate limit burst size"`
	TLSCert           string   `help:"TLS certificate file" type:"path"`
	TLSKey            string   `help:"TLS private key file" type:"path"`
}

func (c *ServeCmd) Run() error {
	cfg := api.Config{
		Port:              c.Port,
		DBPath:            CLI.DB,
		RateLimitRequests: c.RateLimitRequests,
		RateLimitBurst:    c.RateLimitBurst,
		Auth: api.AuthConfig{
			Enabled: c.APIKey != "",
			APIKey:  c.APIKey,
		},
		TLS: api.TLSConfig{
			Enabled:  c.TLSCert != "" || c.TLSKey != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
		AllowedOrigins: c.Origins,
	}
	return api.Start(cfg)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	drv := store.Driver()
	fmt.Printf("limelight version %s\n", version)
	fmt.Printf("  sqlite driver: %s (%s)\n", drv.Name, drv.Type)
	return nil
}

// Helper functions

// openStore opens the document store at the configured path.
func openStore() (*store.Store, error) {
	st, err := store.Open(CLI.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// readInput reads the named file, or stdin when path is empty.
func readInput(path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	if err := validation.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// resolveKind picks the input format: an explicit flag wins, a filename is
// inspected, and stdin defaults to plain text.
func resolveKind(format, path string, data []byte) (formats.Kind, error) {
	if format != "" && format != "auto" {
		return formats.ParseKind(format)
	}
	if path != "" {
		return formats.DetectKind(bytes.NewReader(data), path)
	}
	return formats.KindText, nil
}

// touchMode maps the CLI flag value to a highlight.TouchMode.
func touchMode(s string) highlight.TouchMode {
	if s == "split" {
		return highlight.TouchSplit
	}
	return highlight.TouchMerge
}

// printText writes s to stdout with a trailing newline.
func printText(s string) {
	fmt.Print(s)
	if !strings.HasSuffix(s, "\n") {
		fmt.Println()
	}
}

// snippet truncates s for display.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("limelight"),
		kong.Description("Limelight - Stand-off text highlighting"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.ParseFormat(CLI.LogFormat))
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
