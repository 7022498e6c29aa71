package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"word/document.xml":            body.String(),
		"word/_rels/document.xml.rels": relsXML,
	} {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestLoadTextFromBytesDocx(t *testing.T) {
	data := buildDocx(t, "Jane Doe", "Senior Backend Engineer", "Go, Postgres, AWS")
	text, err := LoadTextFromBytes(context.Background(), data, "resume.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Jane Doe\nSenior Backend Engineer\nGo, Postgres, AWS"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestLoadTextFromBytesPDF(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "resume.pdf"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	text, err := LoadTextFromBytes(context.Background(), data, "resume.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Jane Doe", "Senior Backend Engineer", "Go, Postgres, AWS"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text %q missing %q", text, want)
		}
	}
}

func TestLoadTextFromBytesDocExtension(t *testing.T) {
	data := buildDocx(t, "legacy extension, modern payload")
	if _, err := LoadTextFromBytes(context.Background(), data, "resume.doc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadTextFromBytesUnsupported(t *testing.T) {
	_, err := LoadTextFromBytes(context.Background(), []byte("hello"), "resume.txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadTextFromBytesEmptyDocument(t *testing.T) {
	data := buildDocx(t)
	_, err := LoadTextFromBytes(context.Background(), data, "resume.docx")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestLoadTextFromBytesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadTextFromBytes(ctx, buildDocx(t, "x"), "resume.docx"); err == nil {
		t.Fatal("expected context error")
	}
}
