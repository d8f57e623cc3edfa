// Package chat answers natural-language questions about a dataset through
// the text-generation capability, with fixed fallback responses so a failing
// AI service never reaches the end user as an error.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insightlabs/compass/pkg/analytics"
	"github.com/insightlabs/compass/pkg/dataset"
	"github.com/insightlabs/compass/pkg/llm"
	"github.com/insightlabs/compass/pkg/schema"
)

const (
	// sampleRows is how many leading rows are shown to the model.
	sampleRows = 5

	unconfiguredReply = "I'm sorry, but I cannot process your request because the AI service is not configured."
	errorReply        = "I encountered an error while analyzing your question. Please try again."
)

const systemPrompt = `You are an intelligent data assistant for a government analytics
platform. Answer questions about the provided dataset accurately and
concisely, in a professional yet accessible tone. Use only the provided
statistics and data context; if the data cannot answer the question, say so
politely and explain what is missing. Do not invent values.`

type Config struct {
	Logger *slog.Logger
	// LLM is optional; when nil every question gets the unconfigured reply.
	LLM llm.Client
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

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

// Respond answers a question about the dataset. It never returns an error:
// AI failures collapse to a fixed apology string.
func (e *Engine) Respond(ctx context.Context, ds *dataset.Dataset, sc *schema.Schema, stats []analytics.ColumnStats, question string) string {
	if e.llm == nil {
		return unconfiguredReply
	}

	prompt, err := buildPrompt(ds, sc, stats, question)
	if err != nil {
		e.log.Warn("chat prompt construction failed", "dataset", ds.ID, "error", err)
		return errorReply
	}

	reply, err := e.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		e.log.Warn("chat completion failed", "dataset", ds.ID, "error", err)
		return errorReply
	}
	return strings.TrimSpace(reply)
}

func buildPrompt(ds *dataset.Dataset, sc *schema.Schema, stats []analytics.ColumnStats, question string) (string, error) {
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DATA CONTEXT:\n")
	fmt.Fprintf(&b, "- Dataset/Topic: %q\n", ds.Name)
	fmt.Fprintf(&b, "- Columns: %s\n", strings.Join(ds.Columns, ", "))
	fmt.Fprintf(&b, "- Total Records: %d\n", len(ds.Rows))
	fmt.Fprintf(&b, "- Data Type: %s\n", sc.DataType)
	fmt.Fprintf(&b, "- Key Statistics: %s\n", statsJSON)
	fmt.Fprintf(&b, "- Sample Data (first %d rows):\n%s\n", sampleRows, sampleTable(ds))
	fmt.Fprintf(&b, "\nUSER QUESTION: %q\n", question)
	return b.String(), nil
}

// sampleTable renders the leading rows as a compact pipe-separated table.
func sampleTable(ds *dataset.Dataset) string {
	var b strings.Builder
	b.WriteString(strings.Join(ds.Columns, " | "))
	b.WriteString("\n")
	for i, row := range ds.Rows {
		if i == sampleRows {
			break
		}
		cells := make([]string, len(ds.Columns))
		for j, col := range ds.Columns {
			cells[j] = row[col].Label()
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return b.String()
}
