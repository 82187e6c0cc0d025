package httpapi

import (
	"github.com/labstack/echo/v4"

	"github.com/innovatopia-jp/sourcedesk/internal/jobs"
)

type cronRequest struct {
	Jobs []string `json:"jobs"`
}

type cronJobResult struct {
	Name       string `json:"name"`
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// handleCron runs the registered maintenance jobs. An empty body or job list
// runs everything; failures are reported per job, never as a whole-request
// error.
func (s *Server) handleCron(c echo.Context) error {
	var req cronRequest
	if c.Request().ContentLength > 0 {
		if err := decodeJSONBody(c, &req); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
	}

	var results []jobs.Result
	if len(req.Jobs) == 0 {
		results = s.runner.RunAll(c.Request().Context())
	} else {
		results = s.runner.Run(c.Request().Context(), req.Jobs)
	}

	items := make([]cronJobResult, 0, len(results))
	failed := 0
	for _, result := range results {
		item := cronJobResult{
			Name:       result.Name,
			RunID:      result.RunID,
			Status:     result.Status(),
			DurationMS: result.Duration.Milliseconds(),
		}
		if result.Err != nil {
			item.Error = result.Err.Error()
			failed++
		}
		items = append(items, item)
	}

	return success(c, map[string]any{
		"items":  items,
		"failed": failed,
	})
}
