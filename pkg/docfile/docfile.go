// Package docfile turns generated-document payloads into files on disk.
// Pure data transformation: decode the base64 envelope, pick a filename,
// write the bytes. No state.
package docfile

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/regdesk/regdesk/internal/domain"
)

// DefaultFilename is used when the backend omits one.
const DefaultFilename = "compliance_report.docx"

// Filename returns the document's filename, defaulting when absent.
func Filename(doc *domain.GeneratedDocument) string {
	if doc != nil && doc.Filename != "" {
		return doc.Filename
	}
	return DefaultFilename
}

// Decode returns the binary payload of a generated document.
func Decode(doc *domain.GeneratedDocument) ([]byte, error) {
	if doc == nil || doc.ContentBase64 == "" {
		return nil, fmt.Errorf("document has no binary payload")
	}
	raw, err := base64.StdEncoding.DecodeString(doc.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("decode document payload: %w", err)
	}
	return raw, nil
}

// Save decodes the document and writes it under dir, returning the path.
func Save(doc *domain.GeneratedDocument, dir string) (string, error) {
	raw, err := Decode(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(doc))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return path, nil
}

// Preview returns the text shown in the document viewer. Binary documents
// get a ready-for-download note; inline text is shown as is.
func Preview(doc *domain.GeneratedDocument) string {
	switch {
	case doc == nil:
		return "No document content available."
	case doc.ContentBase64 != "":
		return fmt.Sprintf("Document %q has been generated and is ready for download.", Filename(doc))
	case doc.Content != "":
		return doc.Content
	default:
		return "No document content available."
	}
}
