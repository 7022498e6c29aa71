package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

// Docx renders extracted or tailored resume data as a minimal Word document.
func Docx(data map[string]any) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no resume data to render")
	}

	var body strings.Builder
	writeContact(&body, data["contact_info"])
	if summary := asString(data["summary"]); summary != "" {
		writeHeading(&body, "Summary")
		writeParagraph(&body, summary, false)
	}
	writeExperience(&body, data["work_experience"])
	writeEducation(&body, data["education"])
	writeSkills(&body, data["skills"])
	writeStringSection(&body, "Projects", projectLines(data["projects"]))
	writeStringSection(&body, "Certifications", asStringSlice(data["certifications"]))
	writeStringSection(&body, "Awards and Honors", asStringSlice(data["awards_and_honors"]))
	writeStringSection(&body, "Languages", asStringSlice(data["languages"]))

	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() +
		`</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/document.xml", doc},
		{"word/_rels/document.xml.rels", documentRelsXML},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeContact(body *strings.Builder, raw any) {
	contact, ok := raw.(map[string]any)
	if !ok {
		return
	}
	if name := asString(contact["name"]); name != "" {
		writeParagraph(body, name, true)
	}
	var line []string
	for _, key := range []string{"email", "phone", "linkedin", "github", "portfolio"} {
		if v := asString(contact[key]); v != "" {
			line = append(line, v)
		}
	}
	if len(line) > 0 {
		writeParagraph(body, strings.Join(line, " | "), false)
	}
}

func writeExperience(body *strings.Builder, raw any) {
	entries, ok := raw.([]any)
	if !ok || len(entries) == 0 {
		return
	}
	writeHeading(body, "Work Experience")
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		header := joinNonEmpty(" - ", asString(entry["title"]), asString(entry["company"]))
		dates := joinNonEmpty(" to ", asString(entry["start_date"]), asString(entry["end_date"]))
		if dates != "" {
			if header != "" {
				header += " (" + dates + ")"
			} else {
				header = dates
			}
		}
		if header != "" {
			writeParagraph(body, header, true)
		}
		for _, line := range asStringSlice(entry["description"]) {
			writeParagraph(body, "- "+line, false)
		}
	}
}

func writeEducation(body *strings.Builder, raw any) {
	entries, ok := raw.([]any)
	if !ok || len(entries) == 0 {
		return
	}
	writeHeading(body, "Education")
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		line := joinNonEmpty(", ",
			asString(entry["institution"]),
			joinNonEmpty(" in ", asString(entry["degree"]), asString(entry["major"])),
			asString(entry["graduation_date"]),
		)
		if line != "" {
			writeParagraph(body, line, false)
		}
	}
}

func writeSkills(body *strings.Builder, raw any) {
	skills, ok := raw.(map[string]any)
	if !ok || len(skills) == 0 {
		return
	}
	writeHeading(body, "Skills")
	categories := make([]string, 0, len(skills))
	for category := range skills {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		values := asStringSlice(skills[category])
		if len(values) == 0 {
			continue
		}
		writeParagraph(body, category+": "+strings.Join(values, ", "), false)
	}
}

func writeStringSection(body *strings.Builder, heading string, lines []string) {
	if len(lines) == 0 {
		return
	}
	writeHeading(body, heading)
	for _, line := range lines {
		writeParagraph(body, line, false)
	}
}

func projectLines(raw any) []string {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	var lines []string
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if title := asString(entry["title"]); title != "" {
			lines = append(lines, title)
		}
		for _, d := range asStringSlice(entry["description"]) {
			lines = append(lines, "- "+d)
		}
	}
	return lines
}

func writeHeading(body *strings.Builder, text string) {
	fmt.Fprintf(body, `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeXML(text))
}

func writeParagraph(body *strings.Builder, text string, bold bool) {
	props := ""
	if bold {
		props = `<w:rPr><w:b/></w:rPr>`
	}
	fmt.Fprintf(body, `<w:p><w:r>%s<w:t xml:space="preserve">%s</w:t></w:r></w:p>`, props, escapeXML(text))
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
