// Package loader reads supported document files (.pdf, .txt, .docx, .doc)
// into Documents ready for chunking.
package loader

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"docseek/apps/backend/internal/document"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// supportedExtensions mirrors the upload whitelist; the folder monitor and
// the multipart handler both consult it before any I/O happens.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".docx": true,
	".doc":  true,
}

// SupportedExt reports whether files with the given extension can be loaded.
func SupportedExt(ext string) bool {
	return supportedExtensions[strings.ToLower(ext)]
}

// Extensions returns the supported extensions, for directory scans.
func Extensions() []string {
	return []string{".pdf", ".txt", ".docx", ".doc"}
}

type Loader struct{}

func New() *Loader {
	return &Loader{}
}

// LoadFile reads a document file into one or more Documents. PDFs produce
// one Document per page with page metadata; everything else produces one.
// The source metadata is the base filename.
func (l *Loader) LoadFile(path string) ([]document.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExt(ext) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	name := filepath.Base(path)
	slog.Debug("loading file", "path", path, "type", ext)

	switch ext {
	case ".pdf":
		return loadPDF(path, name)
	case ".txt":
		return loadText(path, name)
	default: // .docx, .doc
		return loadDocx(path, name)
	}
}

func loadText(path, name string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return []document.Document{document.New(string(data), document.Metadata{
		Source: name,
		Type:   document.TypeFile,
	})}, nil
}

func loadPDF(path, name string) ([]document.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", name, err)
	}
	defer f.Close()

	var docs []document.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("failed to extract pdf page", "file", name, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, document.New(text, document.Metadata{
			Source: name,
			Page:   i,
			Type:   document.TypeFile,
		}))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in pdf %s", name)
	}
	return docs, nil
}

// loadDocx extracts the text runs from word/document.xml inside the OOXML
// zip container. Paragraph boundaries become newlines. Legacy .doc files
// that are not actually zip containers fail here and are skipped by the
// caller's per-file error handling.
func loadDocx(path, name string) ([]document.Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer zr.Close()

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return nil, fmt.Errorf("reading document.xml in %s: %w", name, err)
			}
			break
		}
	}
	if docXML == nil {
		return nil, fmt.Errorf("%s: no word/document.xml entry", name)
	}
	defer docXML.Close()

	text, err := extractDocxText(docXML)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no extractable text in %s", name)
	}

	return []document.Document{document.New(text, document.Metadata{
		Source: name,
		Type:   document.TypeFile,
	})}, nil
}

func extractDocxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
