// Package recommend produces policy recommendations for a dataset: an
// LLM-backed generator with a deterministic rule-based engine layered
// underneath as its fallback.
package recommend

// Recommendation is one policy recommendation. Field names match both the
// API payload of the source system and the durable-store cache document.
type Recommendation struct {
	ID               string `json:"id" bson:"id"`
	Title            string `json:"title" bson:"title"`
	Description      string `json:"description" bson:"description"`
	Trigger          string `json:"trigger" bson:"trigger"`
	ExpectedImpact   string `json:"expectedImpact" bson:"expectedImpact"`
	Confidence       string `json:"confidence" bson:"confidence"`
	ConfidenceReason string `json:"confidenceReason" bson:"confidenceReason"`
	Category         string `json:"category" bson:"category"`
	AIGenerated      bool   `json:"isAiGenerated" bson:"isAiGenerated"`
}
