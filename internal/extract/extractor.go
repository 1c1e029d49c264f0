// Package extract turns downloaded documents into plain text.
package extract

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/hyperjump/webrag/internal/fetch"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
)

// Strategy is one way of pulling prose out of an HTML page.
type Strategy struct {
	Name    string
	Attempt func(raw, sourceURL string) (string, error)
}

// Extractor runs an ordered list of HTML strategies and dispatches binary formats.
type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithStrategies replaces the HTML strategy list. The regex stripper always runs last.
func WithStrategies(s ...Strategy) Option {
	return func(e *Extractor) { e.strategies = s }
}

// NewExtractor returns an Extractor using readability, then markdown conversion,
// then the regex stripper.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		strategies: []Strategy{
			{Name: "readability", Attempt: extractReadability},
			{Name: "markdown", Attempt: extractMarkdown},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.LoggerOrNop(e.logger)
	return e
}

// Extract returns the main text of an HTML page. It never fails: each strategy that
// errors, panics or yields only whitespace hands over to the next, and the regex
// stripper is the final fallback.
func (e *Extractor) Extract(raw, sourceURL string) string {
	for _, s := range e.strategies {
		text, err := attempt(s, raw, sourceURL)
		if err != nil {
			e.logger.Debug("extraction strategy failed",
				zap.String("strategy", s.Name), zap.String("url", sourceURL), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) != "" {
			e.logger.Debug("extraction strategy succeeded",
				zap.String("strategy", s.Name), zap.String("url", sourceURL), zap.Int("chars", len(text)))
			return text
		}
	}
	return StripTags(raw)
}

func attempt(s Strategy, raw, sourceURL string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", s.Name, r)
		}
	}()
	return s.Attempt(raw, sourceURL)
}

// ExtractContent extracts text from a downloaded document. body is the raw payload and
// decoded its UTF-8 rendering. PDF, DOCX and XLSX payloads are parsed from body; plain
// text is returned as-is; everything else goes through Extract. A failed binary parse
// falls back to Extract over decoded.
func (e *Extractor) ExtractContent(contentType string, body []byte, decoded, sourceURL string) string {
	switch kind := detectKind(contentType, sourceURL); kind {
	case kindPDF, kindDOCX, kindXLSX:
		text, err := e.extractBinary(kind, body)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		e.logger.Debug("binary extraction failed, falling back to html",
			zap.String("kind", string(kind)), zap.String("url", sourceURL), zap.Error(err))
		return e.Extract(decoded, sourceURL)
	case kindPlain:
		return extractPlain([]byte(decoded))
	default:
		return e.Extract(decoded, sourceURL)
	}
}

// ExtractPage is ExtractContent over a fetched page.
func (e *Extractor) ExtractPage(page *fetch.Page) string {
	return e.ExtractContent(page.ContentType, page.Body, page.Text, page.URL)
}

func (e *Extractor) extractBinary(kind docKind, body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic parsing %s: %v", kind, r)
		}
	}()
	switch kind {
	case kindPDF:
		return extractPDF(body)
	case kindDOCX:
		return extractDOCX(body)
	case kindXLSX:
		return extractExcel(body)
	}
	return "", fmt.Errorf("unsupported kind %s", kind)
}

type docKind string

const (
	kindHTML  docKind = "html"
	kindPlain docKind = "plain"
	kindPDF   docKind = "pdf"
	kindDOCX  docKind = "docx"
	kindXLSX  docKind = "xlsx"
)

const (
	docxMediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	xlsxMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var mediaKinds = map[string]docKind{
	"application/pdf":       kindPDF,
	docxMediaType:           kindDOCX,
	xlsxMediaType:           kindXLSX,
	"text/plain":            kindPlain,
	"text/markdown":         kindPlain,
	"text/x-rst":            kindPlain,
	"text/html":             kindHTML,
	"application/xhtml+xml": kindHTML,
}

var extKinds = map[string]docKind{
	".pdf":  kindPDF,
	".docx": kindDOCX,
	".xlsx": kindXLSX,
	".txt":  kindPlain,
	".md":   kindPlain,
	".rst":  kindPlain,
}

// detectKind prefers the declared media type and falls back to the URL extension
// when the server sends none or a generic binary type.
func detectKind(contentType, sourceURL string) docKind {
	if k, ok := mediaKinds[strings.ToLower(contentType)]; ok {
		return k
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if u, err := url.Parse(sourceURL); err == nil {
			if k, ok := extKinds[strings.ToLower(path.Ext(u.Path))]; ok {
				return k
			}
		}
	}
	return kindHTML
}
