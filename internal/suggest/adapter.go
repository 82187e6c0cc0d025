// Package suggest turns free-form editorial text into canonical keyword
// candidates via a language-model call. The model proposes bilingual keyword
// lists and a summarized title; everything it returns passes through
// normalize before anything else sees it.
package suggest

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/innovatopia-jp/sourcedesk/internal/langdetect"
	"github.com/innovatopia-jp/sourcedesk/internal/llm"
	"github.com/innovatopia-jp/sourcedesk/internal/normalize"
)

//go:embed keyword_response.schema.json
var keywordResponseSchemaJSON string

//go:embed query_expansion.schema.json
var queryExpansionSchemaJSON string

const detectSystemPrompt = `Extract the most important short keywords (single semantic words) that describe who is involved and what happened. Prefer the most common normalized form of each term. Include broader terms where they apply (for example a continent name alongside a union name). Exclude overly generic terms. Fill "keywords" with the terms in the source language of the text and "keywords_translated" with their %s forms. Fill "title_translation" with a short %s translation or summary of the title. Return only the JSON object matching the schema.`

const expandSystemPrompt = `Expand the search query into the keywords an editorial source about it would be tagged with: short single semantic words naming who is involved and what happened, in their most common normalized forms, including broader terms where they apply and excluding overly generic terms. Fill "keywords" with terms in the query's language and "keywords_translated" with their %s forms. Return only the JSON object matching the schema.`

var (
	schemaOnce           sync.Once
	keywordSchema        *jsonschema.Schema
	queryExpansionSchema *jsonschema.Schema
	schemaErr            error
)

// Suggestion is the normalized result of one keyword detection call.
type Suggestion struct {
	Keywords         []string `json:"keywords"`
	TitleTranslation string   `json:"title_translation"`
}

// Adapter drives the language-model collaborator.
type Adapter struct {
	completer llm.Completer
}

func NewAdapter(completer llm.Completer) *Adapter {
	return &Adapter{completer: completer}
}

// Keywords suggests canonical keywords and a translated title for a
// submission. Empty title and comment short-circuit without an external call.
// Collaborator failures surface as errors, never as an empty keyword set.
func (a *Adapter) Keywords(ctx context.Context, title, comment string) (*Suggestion, error) {
	if title == "" && comment == "" {
		return &Suggestion{Keywords: []string{}}, nil
	}

	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	target := "English"
	if !langdetect.IsJapanese(title + "\n" + comment) {
		target = "Japanese"
	}

	raw, err := a.completer.CompleteStructured(ctx, llm.StructuredRequest{
		SystemPrompt: fmt.Sprintf(detectSystemPrompt, target, target),
		UserPrompt:   fmt.Sprintf("Title:\n%s\n\nComment:\n%s", title, comment),
		SchemaName:   "keyword_response",
		SchemaJSON:   json.RawMessage(keywordResponseSchemaJSON),
		Schema:       schemas.keyword,
	})
	if err != nil {
		return nil, fmt.Errorf("detect keywords: %w", err)
	}

	var decoded struct {
		TitleTranslation   any      `json:"title_translation"`
		Keywords           []string `json:"keywords"`
		KeywordsTranslated []string `json:"keywords_translated"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrUndecodable, err)
	}

	translation := ""
	if s, ok := decoded.TitleTranslation.(string); ok {
		translation = strings.TrimSpace(s)
	}

	return &Suggestion{
		Keywords:         normalize.Keywords(append(decoded.Keywords, decoded.KeywordsTranslated...)),
		TitleTranslation: translation,
	}, nil
}

// ExpandQuery expands a free-text search query into canonical keyword
// candidates. An empty query yields an empty result without an external call.
func (a *Adapter) ExpandQuery(ctx context.Context, query string) ([]string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []string{}, nil
	}

	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	target := "English"
	if !langdetect.IsJapanese(trimmed) {
		target = "Japanese"
	}

	raw, err := a.completer.CompleteStructured(ctx, llm.StructuredRequest{
		SystemPrompt: fmt.Sprintf(expandSystemPrompt, target),
		UserPrompt:   fmt.Sprintf("Query:\n%s", trimmed),
		SchemaName:   "query_expansion",
		SchemaJSON:   json.RawMessage(queryExpansionSchemaJSON),
		Schema:       schemas.queryExpansion,
	})
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}

	var decoded struct {
		Keywords           []string `json:"keywords"`
		KeywordsTranslated []string `json:"keywords_translated"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrUndecodable, err)
	}

	return normalize.Keywords(append(decoded.Keywords, decoded.KeywordsTranslated...)), nil
}

type compiledSchemas struct {
	keyword        *jsonschema.Schema
	queryExpansion *jsonschema.Schema
}

func loadSchemas() (compiledSchemas, error) {
	schemaOnce.Do(func() {
		keywordSchema, schemaErr = compileSchema("keyword_response.schema.json", keywordResponseSchemaJSON)
		if schemaErr != nil {
			return
		}
		queryExpansionSchema, schemaErr = compileSchema("query_expansion.schema.json", queryExpansionSchemaJSON)
	})
	if schemaErr != nil {
		return compiledSchemas{}, fmt.Errorf("load response schemas: %w", schemaErr)
	}
	return compiledSchemas{keyword: keywordSchema, queryExpansion: queryExpansionSchema}, nil
}

func compileSchema(name, schemaJSON string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}
