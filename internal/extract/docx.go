package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultPart  = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	overrideRe  = regexp.MustCompile(`<Override\b[^>]*>`)
	partNameRe  = regexp.MustCompile(`PartName="([^"]+)"`)
	paragraphRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	textRunRe   = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
)

// extractDOCX reads the main document part of an OOXML word file and returns one
// line per paragraph. Text runs are matched directly so paragraph attributes do not matter,
// and their XML entities are decoded.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}
	part := docxDefaultPart
	if types, err := readZipPart(zr, contentTypesPart); err == nil {
		if name := mainPartName(types); name != "" {
			part = name
		}
	}
	body, err := readZipPart(zr, part)
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}

	var lines []string
	for _, para := range paragraphRe.FindAllString(body, -1) {
		var runs []string
		for _, m := range textRunRe.FindAllStringSubmatch(para, -1) {
			runs = append(runs, html.UnescapeString(m[1]))
		}
		if line := strings.TrimSpace(strings.Join(runs, "")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// mainPartName finds the main document part declared in [Content_Types].xml,
// regardless of attribute order.
func mainPartName(types string) string {
	for _, override := range overrideRe.FindAllString(types, -1) {
		if !strings.Contains(override, `ContentType="`+docxMainType+`"`) {
			continue
		}
		if m := partNameRe.FindStringSubmatch(override); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

func readZipPart(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%s not found", name)
}
