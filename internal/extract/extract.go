package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resume-tailor-backend/internal/shared/storage/object"
)

// ErrUnsupportedFormat is returned for file types the loaders cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyDocument is returned when a document parses but yields no text.
var ErrEmptyDocument = errors.New("no text content found in document")

// LoadText reads a stored resume document and returns its plain text.
// The format is chosen by file extension: .pdf, .docx and .doc are supported.
func LoadText(ctx context.Context, store object.ObjectStore, storageKey string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("load text key=%s: %w", storageKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("load text key=%s: read: %w", storageKey, err)
	}

	text, err := LoadTextFromBytes(ctx, raw, fileName)
	if err != nil {
		return "", fmt.Errorf("load text key=%s: %w", storageKey, err)
	}
	return text, nil
}

// LoadTextFromBytes extracts plain text from an in-memory document payload.
func LoadTextFromBytes(ctx context.Context, data []byte, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx", ".doc":
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	return stripDocxXML(doc.Editable().GetContent()), nil
}

// stripDocxXML flattens WordprocessingML to plain text, keeping paragraph
// and line breaks as newlines.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
