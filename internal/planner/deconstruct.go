package planner

import (
	"context"
	"fmt"

	"github.com/DeafMist/trip-planner/internal/genai"
	"github.com/DeafMist/trip-planner/internal/processing"
	"github.com/DeafMist/trip-planner/internal/prompts"
)

const (
	maxKeywords     = 5
	maxRequestRunes = 2000
)

type deconstruction struct {
	SearchKeywords []string `json:"search_keywords"`
}

// Deconstruct turns a free-form travel request into places search keywords
// with one generative call. A missing keyword field yields an empty list.
func Deconstruct(ctx context.Context, gen genai.Generator, tpl *prompts.Set, city, request string) ([]string, error) {
	prompt, err := tpl.Render(prompts.Deconstruct, map[string]string{
		"City":    city,
		"Request": processing.CleanText(request, maxRequestRunes),
	})
	if err != nil {
		return nil, fmt.Errorf("render deconstruct prompt: %w", err)
	}

	var out deconstruction
	if err := genai.GenerateJSON(ctx, gen, prompt, &out); err != nil {
		return nil, err
	}
	return processing.NormalizeKeywords(out.SearchKeywords, maxKeywords), nil
}
