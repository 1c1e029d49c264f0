package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DuckDuckGo scrapes the keyless DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewDuckDuckGo returns a DuckDuckGo provider for endpoint (the /html/ page).
func NewDuckDuckGo(endpoint, userAgent string, client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{endpoint: endpoint, userAgent: userAgent, client: clientOrDefault(client)}
}

func (d *DuckDuckGo) Name() string     { return "duckduckgo" }
func (d *DuckDuckGo) Configured() bool { return d.endpoint != "" }

// Search posts the query form and reads result links from the page.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	urls, err := parseDuckDuckGo(io.LimitReader(resp.Body, maxSearchResponseBytes))
	if err != nil {
		return nil, err
	}
	if maxResults > 0 && len(urls) > maxResults {
		urls = urls[:maxResults]
	}
	return urls, nil
}

// parseDuckDuckGo extracts organic result links, unwrapping /l/?uddg= redirects and
// dropping ads and duplicates.
func parseDuckDuckGo(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	var urls []string
	doc.Find("a.result__a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if u := resolveResultLink(href); u != "" {
			urls = append(urls, u)
		}
	})
	return dedupe(urls), nil
}

func resolveResultLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") || u.Host == "" {
		if u.Path == "/y.js" {
			return ""
		}
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		if u, err = url.Parse(target); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
