package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	readabilityBodyByteLimit = 2 * 1024 * 1024

	readabilityUserAgent = "SourceDesk-Crawler/1.0 (+https://github.com/innovatopia-jp/sourcedesk)"
)

// ReadabilityProvider extracts article content locally. It is the
// fallback when no Firecrawl API key is configured.
type ReadabilityProvider struct {
	client *http.Client
}

func NewReadabilityProvider() *ReadabilityProvider {
	return &ReadabilityProvider{
		client: &http.Client{
			Timeout: firecrawlTotalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: firecrawlConnectTimeout,
				}).DialContext,
			},
		},
	}
}

func (p *ReadabilityProvider) Name() string {
	return "readability"
}

func (p *ReadabilityProvider) Scrape(ctx context.Context, pageURL string) (*Result, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return nil, fmt.Errorf("page URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", readabilityUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, readabilityBodyByteLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsedURL, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return nil, fmt.Errorf("render readability text: %w", err)
	}

	markdown := cleanText(renderedText.String())
	description := cleanText(article.Excerpt())

	var title string
	if markdown != "" {
		title = firstHeading(markdown)
	}
	if description == "" && markdown != "" {
		description = firstParagraph(markdown)
	}

	return &Result{
		Markdown:    markdown,
		Title:       title,
		Description: description,
	}, nil
}

// cleanText normalizes line endings and collapses extra in-line whitespace.
func cleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
