package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Widgets</title><style>body { color: red; }</style>
<script>var tracking = "should not appear";</script></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<main><article>
<h1>All about widgets</h1>
<p>Widgets are small mechanical devices that perform a single, well defined task. They have been
used in workshops for generations and continue to be a staple of every well equipped bench.</p>
<p>Modern widgets are made of aluminium and steel, and most of them can be serviced with ordinary
hand tools. This guide explains how to pick, maintain and repair the widget that fits your needs.</p>
</article></main>
<footer>Copyright widgets inc</footer>
</body></html>`

func TestExtract_defaultStrategies(t *testing.T) {
	e := NewExtractor()
	got := e.Extract(articleHTML, "https://example.com/widgets")
	if !strings.Contains(got, "Widgets are small mechanical devices") {
		t.Errorf("missing article text: %q", got)
	}
	if strings.Contains(got, "should not appear") {
		t.Errorf("script content leaked: %q", got)
	}
}

func TestExtract_fallsThroughStrategies(t *testing.T) {
	calls := []string{}
	failing := Strategy{Name: "failing", Attempt: func(raw, _ string) (string, error) {
		calls = append(calls, "failing")
		return "", errors.New("boom")
	}}
	blank := Strategy{Name: "blank", Attempt: func(raw, _ string) (string, error) {
		calls = append(calls, "blank")
		return "  \n\t ", nil
	}}
	good := Strategy{Name: "good", Attempt: func(raw, _ string) (string, error) {
		calls = append(calls, "good")
		return "found it", nil
	}}
	e := NewExtractor(WithStrategies(failing, blank, good))
	if got := e.Extract("<p>x</p>", ""); got != "found it" {
		t.Errorf("got %q", got)
	}
	if strings.Join(calls, ",") != "failing,blank,good" {
		t.Errorf("calls = %v", calls)
	}
}

func TestExtract_panicRecovered(t *testing.T) {
	panicky := Strategy{Name: "panicky", Attempt: func(string, string) (string, error) {
		panic("bad parser")
	}}
	e := NewExtractor(WithStrategies(panicky))
	got := e.Extract("<p>Hello <b>there</b></p>", "https://example.com")
	if got != "Hello there" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_allStrategiesFail(t *testing.T) {
	e := NewExtractor(WithStrategies())
	got := e.Extract("<html><script>x()</script><body><p>plain   words</p></body></html>", "")
	if got != "plain words" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_emptyInput(t *testing.T) {
	e := NewExtractor()
	if got := e.Extract("", ""); strings.TrimSpace(got) != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<SCRIPT type=\"x\">alert(1)</SCRIPT>text", "text"},
		{"<style>\n.a{}\n</style><div>a\n\n  b</div>", "a b"},
		{"no tags", "no tags"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractMarkdown_prefersMain(t *testing.T) {
	raw := `<html><body><nav>Menu</nav><main><h2>Title</h2><p>Body text</p></main><aside>Ads</aside></body></html>`
	got, err := extractMarkdown(raw, "https://example.com/page")
	if err != nil {
		t.Fatalf("extractMarkdown: %v", err)
	}
	if !strings.Contains(got, "## Title") || !strings.Contains(got, "Body text") {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, "Menu") || strings.Contains(got, "Ads") {
		t.Errorf("boilerplate leaked: %q", got)
	}
}

func TestExtractContent_plain(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractContent("text/plain", []byte("<b>not html</b>"), "<b>not html</b>", "https://example.com/a.txt")
	if got != "<b>not html</b>" {
		t.Errorf("got %q", got)
	}
}

func TestExtractPlain_invalidUTF8(t *testing.T) {
	if got := extractPlain([]byte("hello\x80world")); got != "hello\uFFFDworld" {
		t.Errorf("got %q", got)
	}
}

func TestExtractContent_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got := e.ExtractContent(xlsxMediaType, buf.Bytes(), "", "https://example.com/data")
	if got != "Sheet1\nTitle\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractContent_docx(t *testing.T) {
	e := NewExtractor()
	got := e.ExtractContent("", buildDOCX(t, "word/document.xml", true), "", "https://example.com/files/report.docx")
	if got != "First paragraph\nSecond paragraph\nQ&A <v2> \"draft\"" {
		t.Errorf("got %q", got)
	}
}

func TestExtractDOCX_customMainPart(t *testing.T) {
	got, err := extractDOCX(buildDOCX(t, "word/document2.xml", true))
	if err != nil {
		t.Fatalf("extractDOCX: %v", err)
	}
	if got != "First paragraph\nSecond paragraph\nQ&A <v2> \"draft\"" {
		t.Errorf("got %q", got)
	}
}

func TestExtractDOCX_missingPart(t *testing.T) {
	if _, err := extractDOCX(buildDOCX(t, "word/other.xml", false)); err == nil {
		t.Error("expected error for missing document part")
	}
}

func TestExtractContent_brokenBinaryFallsBack(t *testing.T) {
	e := NewExtractor(WithStrategies())
	got := e.ExtractContent("application/pdf", []byte("not a pdf"), "<p>fallback text</p>", "https://example.com/x.pdf")
	if got != "fallback text" {
		t.Errorf("got %q", got)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		contentType, url string
		want             docKind
	}{
		{"text/html", "https://example.com/a.pdf", kindHTML},
		{"application/pdf", "https://example.com/a", kindPDF},
		{"APPLICATION/PDF", "https://example.com/a", kindPDF},
		{"", "https://example.com/a.PDF", kindPDF},
		{"application/octet-stream", "https://example.com/a.xlsx", kindXLSX},
		{"", "https://example.com/readme.md", kindPlain},
		{"text/markdown", "https://example.com/readme", kindPlain},
		{"", "https://example.com/", kindHTML},
		{"image/png", "https://example.com/a.txt", kindHTML},
	}
	for _, tt := range tests {
		if got := detectKind(tt.contentType, tt.url); got != tt.want {
			t.Errorf("detectKind(%q, %q) = %q, want %q", tt.contentType, tt.url, got, tt.want)
		}
	}
}

func buildDOCX(t *testing.T, part string, declare bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, body string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if declare {
		write(contentTypesPart, `<?xml version="1.0"?><Types><Override ContentType="`+docxMainType+`" PartName="/`+part+`"/></Types>`)
	}
	write(part, `<?xml version="1.0"?><w:document><w:body>`+
		`<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t xml:space="preserve">paragraph</w:t></w:r></w:p>`+
		`<w:p w:rsidR="00AB"><w:r><w:t>Second paragraph</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Q&amp;A &lt;v2&gt; &quot;draft&quot;</w:t></w:r></w:p>`+
		`<w:p></w:p>`+
		`</w:body></w:document>`)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
