package httpapi

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/normalize"
	"github.com/innovatopia-jp/sourcedesk/internal/source"
)

type createSourceRequest struct {
	AuthorID  int64    `json:"author_id"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Comment   string   `json:"comment"`
	ContentMD string   `json:"content_md"`
	Keywords  []string `json:"keywords"`
}

// handleListSources serves two read paths behind one route, matching how
// submission forms use it: with a url or keywords present it is a duplicate
// check against sources in the given state, otherwise it lists an author's
// sources.
func (s *Server) handleListSources(c echo.Context) error {
	rawURL := strings.TrimSpace(c.QueryParam("url"))
	keywords := parseKeywordList(c.QueryParams()["keywords"])

	state, err := parseState(c.QueryParam("state"), source.StateWorking)
	if err != nil {
		return failValidation(c, map[string]string{"state": err.Error()})
	}

	if rawURL != "" || len(keywords) > 0 {
		return s.duplicateCheck(c, rawURL, keywords, state)
	}

	authorID, err := parseID(c.QueryParam("author_id"))
	if err != nil {
		return failValidation(c, map[string]string{"author_id": err.Error()})
	}

	items, err := s.manager.ListByAuthor(c.Request().Context(), authorID, state)
	if err != nil {
		s.logger.Error().Err(err).Int64("author_id", authorID).Msg("list sources failed")
		return internalError(c, "Failed to load sources")
	}

	return success(c, map[string]any{
		"items": items,
		"state": state.String(),
	})
}

func (s *Server) duplicateCheck(c echo.Context, rawURL string, keywords []string, state source.State) error {
	canonicalURL := ""
	if rawURL != "" {
		canonical := normalize.URL(rawURL)
		if canonical.Value == "" {
			return failValidation(c, map[string]string{"url": "must be an absolute http(s) URL"})
		}
		canonicalURL = canonical.Value
	}

	matches, err := s.detector.Check(c.Request().Context(), canonicalURL, keywords, state)
	if err != nil {
		s.logger.Error().Err(err).Msg("duplicate check failed")
		return internalError(c, "Failed to check for duplicates")
	}

	return success(c, matches)
}

func (s *Server) handleCreateSource(c echo.Context) error {
	var req createSourceRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	sourceID, err := s.manager.Create(c.Request().Context(), source.CreateRequest{
		AuthorID:  req.AuthorID,
		URL:       req.URL,
		Title:     req.Title,
		Comment:   req.Comment,
		ContentMD: req.ContentMD,
		Keywords:  req.Keywords,
	})
	if err != nil {
		var validationErr *source.ValidationError
		if errors.As(err, &validationErr) {
			return failValidation(c, map[string]string{validationErr.Field: validationErr.Reason})
		}
		if db.IsForeignKeyViolation(err) {
			return failValidation(c, map[string]string{"author_id": "is not a registered user"})
		}
		s.logger.Error().Err(err).Int64("author_id", req.AuthorID).Msg("create source failed")
		return internalError(c, "Failed to create source")
	}

	return successWithStatus(c, 201, map[string]any{"id": sourceID})
}

func (s *Server) handleGetSource(c echo.Context) error {
	sourceID, err := parseID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	record, err := s.manager.GetByID(c.Request().Context(), sourceID)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return failNotFound(c, "Source not found")
		}
		s.logger.Error().Err(err).Int64("source_id", sourceID).Msg("get source failed")
		return internalError(c, "Failed to load source")
	}

	return success(c, map[string]any{"source": record})
}

func (s *Server) handleUpdateSourceContent(c echo.Context) error {
	sourceID, err := parseID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	var payload map[string]json.RawMessage
	if err := decodeJSONBody(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if len(payload) == 0 {
		return failValidation(c, map[string]string{"body": "at least one of title, comment, content_md is required"})
	}

	var update source.ContentUpdate
	for key, raw := range payload {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return failValidation(c, map[string]string{key: "must be a string"})
		}
		switch key {
		case "title":
			update.Title = &value
		case "comment":
			update.Comment = &value
		case "content_md":
			update.ContentMD = &value
		default:
			return failValidation(c, map[string]string{key: "is not an updatable field"})
		}
	}

	if err := s.manager.UpdateContent(c.Request().Context(), sourceID, update); err != nil {
		return s.sourceWriteError(c, sourceID, err, "update source content failed", "Failed to update source")
	}

	return success(c, map[string]any{"id": sourceID})
}

func (s *Server) handleUpdateSourceState(c echo.Context) error {
	sourceID, err := parseID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	var payload struct {
		State json.RawMessage `json:"state"`
	}
	if err := decodeJSONBody(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if len(payload.State) == 0 {
		return failValidation(c, map[string]string{"state": "is required"})
	}

	state, err := parseStateValue(payload.State, source.StateWorking)
	if err != nil {
		return failValidation(c, map[string]string{"state": err.Error()})
	}

	if err := s.manager.ChangeState(c.Request().Context(), sourceID, state); err != nil {
		return s.sourceWriteError(c, sourceID, err, "update source state failed", "Failed to update source state")
	}

	return success(c, map[string]any{
		"id":    sourceID,
		"state": state.String(),
	})
}

// handleSearchSources ranks sources in one state by shared keywords. Clients
// send either explicit keywords or a free-text q that is expanded through the
// language model first.
func (s *Server) handleSearchSources(c echo.Context) error {
	state, err := parseState(c.QueryParam("state"), source.StateWorking)
	if err != nil {
		return failValidation(c, map[string]string{"state": err.Error()})
	}

	keywords := parseKeywordList(c.QueryParams()["keywords"])
	query := strings.TrimSpace(c.QueryParam("q"))
	if len(keywords) == 0 && query == "" {
		return failValidation(c, map[string]string{"keywords": "keywords or q is required"})
	}

	if len(keywords) == 0 {
		expanded, err := s.suggester.ExpandQuery(c.Request().Context(), query)
		if err != nil {
			s.logger.Error().Err(err).Str("query", query).Msg("query expansion failed")
			return internalError(c, "Failed to expand search query")
		}
		keywords = expanded
	}

	hits, err := s.manager.SearchByKeywords(c.Request().Context(), keywords, state)
	if err != nil {
		s.logger.Error().Err(err).Msg("search sources failed")
		return internalError(c, "Failed to search sources")
	}
	if hits == nil {
		hits = []db.SourceSearchHit{}
	}

	return success(c, map[string]any{
		"items":    hits,
		"keywords": normalizedOrEmpty(keywords),
		"state":    state.String(),
	})
}

func (s *Server) sourceWriteError(c echo.Context, sourceID int64, err error, logMsg, userMsg string) error {
	if errors.Is(err, source.ErrNotFound) {
		return failNotFound(c, "Source not found")
	}
	var validationErr *source.ValidationError
	if errors.As(err, &validationErr) {
		return failValidation(c, map[string]string{validationErr.Field: validationErr.Reason})
	}
	s.logger.Error().Err(err).Int64("source_id", sourceID).Msg(logMsg)
	return internalError(c, userMsg)
}

func normalizedOrEmpty(keywords []string) []string {
	tokens := normalize.Keywords(keywords)
	if tokens == nil {
		return []string{}
	}
	return tokens
}
