package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/innovatopia-jp/sourcedesk/internal/normalize"
)

type crawlRequest struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// handleCrawl pre-fills the submission form from a scraped page. The
// response carries the canonical URL and whether query parameters were
// stripped, so the client can offer the original URL as an override.
func (s *Server) handleCrawl(c echo.Context) error {
	var req crawlRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	canonical := normalize.URL(req.URL)
	if canonical.Value == "" {
		return failValidation(c, map[string]string{"url": "must be an absolute http(s) URL"})
	}

	provider, err := s.scrapes.Provider(req.Provider)
	if err != nil {
		return failValidation(c, map[string]string{"provider": err.Error()})
	}

	result, err := provider.Scrape(c.Request().Context(), canonical.Value)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("url", canonical.Value).
			Str("provider", provider.Name()).
			Msg("scrape failed")
		return fail(c, http.StatusBadGateway, "Failed to scrape the page", nil)
	}

	return success(c, map[string]any{
		"url":         canonical.Value,
		"had_query":   canonical.HadQuery,
		"title":       strings.TrimSpace(result.Title),
		"description": strings.TrimSpace(result.Description),
		"md_content":  result.Markdown,
		"provider":    provider.Name(),
	})
}
