package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
)

var (
	scriptRe         = regexp.MustCompile(`(?i)<script[\s\S]*?</script>`)
	styleRe          = regexp.MustCompile(`(?i)<style[\s\S]*?</style>`)
	tagRe            = regexp.MustCompile(`<[^>]+>`)
	spaceRe          = regexp.MustCompile(`\s+`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// boilerplate is removed before markdown conversion when no main element exists.
var boilerplate = strings.Join([]string{
	"script", "style", "noscript", "iframe", "object", "embed", "svg",
	"nav", "header", "footer", "aside", "form", "button",
	".sidebar", ".navbar", ".toc", ".comments", ".breadcrumb", "[role=navigation]",
}, ", ")

func extractReadability(raw, sourceURL string) (string, error) {
	pageURL, err := url.Parse(sourceURL)
	if err != nil || pageURL == nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(raw), pageURL)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(article.TextContent), nil
}

func extractMarkdown(raw, sourceURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find(boilerplate).Remove()

	sel := doc.Find("main, article, [role=main]").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}

	domain := ""
	if u, err := url.Parse(sourceURL); err == nil {
		domain = u.Host
	}
	conv := md.NewConverter(domain, true, nil)
	conv.Use(plugin.GitHubFlavored())
	return cleanMarkdown(conv.Convert(sel)), nil
}

func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = excessiveLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(content)
}

// StripTags is the last-resort extractor: it drops script and style blocks, removes
// every remaining tag, and collapses whitespace.
func StripTags(raw string) string {
	text := scriptRe.ReplaceAllString(raw, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
