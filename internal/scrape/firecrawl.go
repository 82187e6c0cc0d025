package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	firecrawlEndpoint = "https://api.firecrawl.dev/v2/scrape"

	firecrawlConnectTimeout = 15 * time.Second
	firecrawlTotalTimeout   = 40 * time.Second
)

// FirecrawlProvider scrapes through the Firecrawl API.
type FirecrawlProvider struct {
	endpointURL string
	apiKey      string
	client      *http.Client
}

func NewFirecrawlProvider(apiKey string) *FirecrawlProvider {
	return &FirecrawlProvider{
		endpointURL: firecrawlEndpoint,
		apiKey:      apiKey,
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

func (p *FirecrawlProvider) Name() string {
	return "firecrawl"
}

func (p *FirecrawlProvider) Scrape(ctx context.Context, pageURL string) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("firecrawl provider is nil")
	}

	body, err := json.Marshal(firecrawlRequest{
		URL:             pageURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		ExcludeTags:     []string{"img"},
		Proxy:           "auto",
		BlockAds:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send scrape request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read scrape response: %w", err)
	}

	var decoded firecrawlResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode scrape response: %w", err)
	}
	if decoded.Success == nil {
		return nil, fmt.Errorf("scrape response missing success flag")
	}
	if !*decoded.Success {
		return nil, fmt.Errorf("scrape request was rejected (status %d)", resp.StatusCode)
	}
	if decoded.Data == nil {
		return nil, fmt.Errorf("scrape response missing data")
	}
	if decoded.Data.Markdown == nil {
		return nil, fmt.Errorf("scrape response missing markdown result")
	}
	if decoded.Data.Metadata == nil {
		return nil, fmt.Errorf("scrape response missing metadata result")
	}

	markdown := *decoded.Data.Markdown
	metadata := decoded.Data.Metadata

	title := firstMetaString(metadata, "og:title", "ogTitle", "twitter:title", "title")
	description := firstMetaString(metadata, "og:description", "ogDescription", "twitter:description", "description")

	hasContent := strings.TrimSpace(markdown) != ""
	if title == "" && hasContent {
		title = firstHeading(markdown)
	}
	if description == "" && hasContent {
		description = firstParagraph(markdown)
	}

	return &Result{
		Markdown:    markdown,
		Title:       title,
		Description: description,
	}, nil
}

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	ExcludeTags     []string `json:"excludeTags"`
	Proxy           string   `json:"proxy"`
	BlockAds        bool     `json:"blockAds"`
}

type firecrawlResponse struct {
	Success *bool          `json:"success"`
	Data    *firecrawlData `json:"data"`
}

type firecrawlData struct {
	Markdown *string        `json:"markdown"`
	Metadata map[string]any `json:"metadata"`
}

// firstMetaString returns the first present metadata key coerced to a
// trimmed string. Providers deliver strings, string arrays, or numbers
// depending on the page.
func firstMetaString(metadata map[string]any, keys ...string) string {
	for _, key := range keys {
		value, exists := metadata[key]
		if !exists {
			continue
		}
		if coerced := strings.TrimSpace(coerceMetaString(value)); coerced != "" {
			return coerced
		}
	}
	return ""
}

func coerceMetaString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := coerceMetaString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
