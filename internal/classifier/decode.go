package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/xaenox/secondbrain/internal/models"
)

type analysisField struct {
	name     string
	dst      interface{}
	required bool
}

// decodeAnalysis decodes a model reply field by field. A type mismatch in a
// required field fails the whole reply; any other mismatched field is
// dropped and reported in the returned list.
func decodeAnalysis(data []byte) (models.AnalysisResult, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.AnalysisResult{}, nil, err
	}

	var (
		result     models.AnalysisResult
		tags       models.StringList
		detailed   models.FlexString
		takeaway   models.FlexString
		sourceType models.FlexString
		recipe     models.Recipe
	)

	fields := []analysisField{
		{name: "title", dst: &result.Title, required: true},
		{name: "summary", dst: &result.Summary, required: true},
		{name: "category", dst: &result.Category, required: true},
		{name: "tags", dst: &tags},
		{name: "detailed_summary", dst: &detailed},
		{name: "actionable_takeaway", dst: &takeaway},
		{name: "source_type", dst: &sourceType},
		{name: "confidence", dst: &result.Confidence},
		{name: "key_entities", dst: &result.KeyEntities},
		{name: "recipe", dst: &recipe},
	}

	var dropped []string
	for _, f := range fields {
		value, ok := raw[f.name]
		if !ok || string(value) == "null" {
			continue
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			if f.required {
				return models.AnalysisResult{}, nil, fmt.Errorf("field %q: %w", f.name, err)
			}
			dropped = append(dropped, f.name)
		}
	}

	result.Tags = tags
	result.DetailedSummary = string(detailed)
	result.ActionableTakeaway = string(takeaway)
	result.SourceType = string(sourceType)
	if _, ok := raw["recipe"]; ok && !contains(dropped, "recipe") && !recipeEmpty(recipe) {
		result.Recipe = &recipe
	}
	return result, dropped, nil
}

func recipeEmpty(r models.Recipe) bool {
	return r.Servings == "" && r.PrepTime == "" && r.CookTime == "" &&
		len(r.Ingredients) == 0 && len(r.Instructions) == 0
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
