package models

// AnalysisResult represents the knowledge-card produced for a link
type AnalysisResult struct {
	Title              string     `json:"title"`
	Summary            string     `json:"summary"`
	DetailedSummary    string     `json:"detailed_summary"`
	Category           string     `json:"category"`
	Tags               []string   `json:"tags"`
	ActionableTakeaway string     `json:"actionable_takeaway"`
	SourceType         string     `json:"source_type,omitempty"`
	Confidence         float64    `json:"confidence,omitempty"`
	KeyEntities        StringList `json:"key_entities,omitempty"`
	Recipe             *Recipe    `json:"recipe,omitempty"`
}

// Recipe is filled in only when the analyzed content is a recipe
type Recipe struct {
	Servings     FlexString `json:"servings,omitempty"`
	PrepTime     FlexString `json:"prep_time,omitempty"`
	CookTime     FlexString `json:"cook_time,omitempty"`
	Ingredients  StringList `json:"ingredients"`
	Instructions StringList `json:"instructions"`
}
