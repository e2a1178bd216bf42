// Package formats extracts plain text from the document formats Limelight
// accepts. Ranges always address the extracted text, never the source
// markup, so extraction runs once at ingest and the extracted text is what
// gets stored and highlighted.
package formats

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/internal/validation"
)

// Kind identifies a supported input format.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindXML      Kind = "xml"
)

// Options controls extraction.
type Options struct {
	// XPath selects the XML nodes whose text becomes the document text.
	// Empty selects the whole document.
	XPath string
}

// ParseKind maps a format name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "text", "txt", "plain":
		return KindText, nil
	case "markdown", "md":
		return KindMarkdown, nil
	case "xml":
		return KindXML, nil
	default:
		return "", errors.NewUnsupported(fmt.Sprintf("format %q", s), "expected text, markdown, or xml")
	}
}

// DetectKind determines the format of a named file from its content and
// extension. The reader is consumed up to the detection header.
func DetectKind(r io.Reader, filename string) (Kind, error) {
	ft, err := validation.ValidateFileType(r, filename)
	if err != nil {
		return "", errors.Wrap(err, "failed to detect format")
	}
	switch ft {
	case validation.FileTypeMarkdown:
		return KindMarkdown, nil
	case validation.FileTypeXML:
		return KindXML, nil
	case validation.FileTypeText, validation.FileTypeJSON:
		return KindText, nil
	default:
		return "", errors.NewUnsupported(fmt.Sprintf("file type %s", ft), "documents must be text, markdown, or xml")
	}
}

// Extract returns the plain text of data in the given format.
func Extract(kind Kind, data []byte, opts Options) (string, error) {
	switch kind {
	case KindText, "":
		return string(data), nil
	case KindMarkdown:
		return FromMarkdown(data)
	case KindXML:
		return FromXML(data, opts.XPath)
	default:
		return "", errors.NewUnsupported(fmt.Sprintf("format %q", kind), "expected text, markdown, or xml")
	}
}

// FromMarkdown extracts the plain text of a Markdown document. Inline
// markup is flattened to its text, block boundaries become blank lines,
// and code blocks keep their content verbatim.
func FromMarkdown(source []byte) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	pendingSep := false
	writeText := func(s []byte) {
		if len(s) == 0 {
			return
		}
		if pendingSep && b.Len() > 0 {
			b.WriteString("\n\n")
		}
		pendingSep = false
		b.Write(s)
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			pendingSep = true
		}

		switch node := n.(type) {
		case *ast.Text:
			writeText(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			writeText(node.Value)
		case *ast.AutoLink:
			writeText(node.URL(source))
		case *ast.CodeBlock:
			writeRawLines(writeText, node.Lines(), source)
		case *ast.FencedCodeBlock:
			writeRawLines(writeText, node.Lines(), source)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to walk markdown")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeRawLines(writeText func([]byte), lines *text.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		writeText(seg.Value(source))
	}
}

// FromXML extracts text from an XML document. With an XPath expression,
// each matching node contributes its whitespace-normalized text, joined by
// blank lines; without one the whole document's text is used. Select
// fine-grained nodes (such as "//p") to keep paragraph structure.
func FromXML(data []byte, xpathExpr string) (string, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return "", errors.NewParse("XML", "", err.Error())
	}

	if xpathExpr == "" {
		return normalizeSpace(root.InnerText()), nil
	}

	// Compile the expression to check for errors
	if _, err := xpath.Compile(xpathExpr); err != nil {
		return "", errors.NewParse("XPath", "", fmt.Sprintf("invalid expression %q: %v", xpathExpr, err))
	}

	nodes, err := xmlquery.QueryAll(root, xpathExpr)
	if err != nil {
		return "", errors.Wrapf(err, "xpath query %q failed", xpathExpr)
	}
	if len(nodes) == 0 {
		return "", errors.NewNotFound("xpath match", xpathExpr)
	}

	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if t := normalizeSpace(n.InnerText()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// normalizeSpace collapses runs of whitespace to single spaces and trims
// the ends, the XPath normalize-space() treatment.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
