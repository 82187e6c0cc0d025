package httpapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/innovatopia-jp/sourcedesk/internal/source"
)

// parseState accepts the loose state spellings clients send: the labels
// "working", "done" and "aborted", the numeric states -1/0/1, and numeric
// strings. Empty input falls back to the default.
func parseState(raw string, defaultState source.State) (source.State, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return defaultState, nil
	}

	switch trimmed {
	case "working":
		return source.StateWorking, nil
	case "done":
		return source.StateDone, nil
	case "aborted":
		return source.StateAborted, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be working, done, aborted, or one of -1, 0, 1")
	}
	state := source.State(value)
	if !state.Valid() {
		return 0, fmt.Errorf("must be working, done, aborted, or one of -1, 0, 1")
	}
	return state, nil
}

// parseStateValue is parseState for JSON bodies, where the state may arrive
// as a JSON number or a JSON string.
func parseStateValue(raw json.RawMessage, defaultState source.State) (source.State, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return defaultState, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return parseState(asString, defaultState)
	}

	var asNumber int
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return parseState(strconv.Itoa(asNumber), defaultState)
	}

	return 0, fmt.Errorf("must be working, done, aborted, or one of -1, 0, 1")
}

// parseKeywordList accepts keywords as repeated query values, a JSON array,
// or a comma-separated string. Values are returned raw; normalization is the
// core's job.
func parseKeywordList(values []string) []string {
	keywords := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				keywords = append(keywords, decoded...)
				continue
			}
		}

		keywords = append(keywords, strings.Split(trimmed, ",")...)
	}
	return keywords
}

func parseID(raw string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("must be a positive id")
	}
	return value, nil
}

func decodeJSONBody(c echo.Context, dst any) error {
	if c == nil || c.Request() == nil || c.Request().Body == nil {
		return fmt.Errorf("request body is required")
	}
	if err := json.NewDecoder(c.Request().Body).Decode(dst); err != nil {
		return fmt.Errorf("must be a valid JSON body")
	}
	return nil
}
