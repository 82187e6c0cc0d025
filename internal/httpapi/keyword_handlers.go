package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/innovatopia-jp/sourcedesk/internal/normalize"
)

type detectKeywordsRequest struct {
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

func (s *Server) handleListKeywords(c echo.Context) error {
	items, err := s.keywords.ListKeywordCounts(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list keywords failed")
		return internalError(c, "Failed to load keywords")
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleKeywordStateCounts(c echo.Context) error {
	keyword := strings.TrimSpace(c.QueryParam("keyword"))
	if keyword == "" {
		return failValidation(c, map[string]string{"keyword": "is required"})
	}

	counts, err := s.manager.StateCountsByKeyword(c.Request().Context(), keyword)
	if err != nil {
		s.logger.Error().Err(err).Str("keyword", keyword).Msg("keyword state counts failed")
		return internalError(c, "Failed to load state counts")
	}

	return success(c, map[string]any{
		"keyword": normalize.Keyword(keyword),
		"counts":  counts,
	})
}

func (s *Server) handleSearchKeywords(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return failValidation(c, map[string]string{"q": "is required"})
	}

	keywords, err := s.suggester.ExpandQuery(c.Request().Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("query expansion failed")
		return internalError(c, "Failed to expand search query")
	}

	return success(c, map[string]any{"keywords": keywords})
}

func (s *Server) handleDetectKeywords(c echo.Context) error {
	var req detectKeywordsRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	suggestion, err := s.suggester.Keywords(c.Request().Context(), strings.TrimSpace(req.Title), strings.TrimSpace(req.Comment))
	if err != nil {
		s.logger.Error().Err(err).Msg("keyword detection failed")
		return internalError(c, "Failed to detect keywords")
	}

	return success(c, suggestion)
}
