package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/insightlabs/compass/pkg/analytics"
	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/llm"
	"github.com/insightlabs/compass/pkg/schema"
)

const systemPrompt = `You are a highly experienced senior policy analyst for a government
decision-support platform. You write in simple, clear language that a
non-technical decision maker can understand immediately.`

type Config struct {
	Logger *slog.Logger
	// LLM is optional; when nil every request uses the rule engine.
	LLM llm.Client
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Engine generates recommendations, preferring the LLM and falling back to
// the rule engine on any failure. Fallbacks are silent: the caller always
// receives a usable recommendation list.
type Engine struct {
	log *slog.Logger
	llm llm.Client
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{log: cfg.Logger, llm: cfg.LLM}, nil
}

// Generate returns recommendations for the dataset. The second return value
// reports whether the result is AI-generated, which callers use to decide
// whether the result is worth caching.
func (e *Engine) Generate(ctx context.Context, ds *dataset.Dataset, sc *schema.Schema, stats []analytics.ColumnStats) ([]Recommendation, bool) {
	if e.llm == nil {
		return RuleBased(ds, sc), false
	}

	recs, err := e.generateAI(ctx, ds, sc, stats)
	if err != nil {
		e.log.Warn("AI recommendation generation failed, using rule engine", "dataset", ds.ID, "error", err)
		return RuleBased(ds, sc), false
	}
	return recs, true
}

func (e *Engine) generateAI(ctx context.Context, ds *dataset.Dataset, sc *schema.Schema, stats []analytics.ColumnStats) ([]Recommendation, error) {
	prompt, err := buildPrompt(ds, sc, stats)
	if err != nil {
		return nil, err
	}

	text, err := e.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	recs, err := parseRecommendations(text)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("model returned no recommendations")
	}

	for i := range recs {
		recs[i].AIGenerated = true
		if recs[i].ID == "" {
			recs[i].ID = uuid.NewString()
		}
	}
	return recs, nil
}

func buildPrompt(ds *dataset.Dataset, sc *schema.Schema, stats []analytics.ColumnStats) (string, error) {
	schemaJSON, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following dataset statistics and generate relevant policy recommendations (between 1 and 5 items depending on the data's criticality).\n\n")
	fmt.Fprintf(&b, "DATA CONTEXT:\n")
	fmt.Fprintf(&b, "- Dataset/Topic: %q (use this to infer the real-world domain)\n", ds.Name)
	fmt.Fprintf(&b, "- Columns: %s\n", strings.Join(ds.Columns, ", "))
	fmt.Fprintf(&b, "- Total Records: %d\n", len(ds.Rows))
	fmt.Fprintf(&b, "- Data Schema: %s\n", schemaJSON)
	fmt.Fprintf(&b, "- Key Statistics: %s\n\n", statsJSON)
	b.WriteString(`INSTRUCTIONS:
1. First infer the context: based on the dataset name and columns, understand what real-world government system this data represents.
2. In each "description", state the observed pattern first, then the concrete action, flowing naturally without labels.
3. Identify critical trends or insights (rapid decline, regional disparity, high volatility).
4. Estimate the expected impact clearly.
5. Assign a confidence level (high/medium/low) based on data quality.

OUTPUT FORMAT (strict JSON array, no surrounding prose):
[
  {
    "id": "unique-id-1",
    "title": "Short, punchy policy title",
    "description": "Observation first, then the concrete recommendation.",
    "trigger": "The specific data point that triggered this",
    "expectedImpact": "Quantifiable outcome",
    "confidence": "high",
    "confidenceReason": "Why you are confident",
    "category": "infrastructure/outreach/operations/financial"
  }
]
`)
	return b.String(), nil
}

// parseRecommendations decodes the model output, tolerating a markdown code
// fence around the JSON array.
func parseRecommendations(text string) ([]Recommendation, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var recs []Recommendation
	if err := json.Unmarshal([]byte(text), &recs); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	return recs, nil
}
