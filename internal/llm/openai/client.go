package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/john-shalamon/exam-hall-system/internal/llm"
)

// ErrNoAPIKey is returned before any request when no key is configured.
var ErrNoAPIKey = errors.New("openai: no API key configured")

// ExtractRows implements llm.RowExtractor using text-only chat/completions.
func (c *Client) ExtractRows(ctx context.Context, req llm.ExtractRequest) ([]llm.AllocationFields, []byte, error) {
	if c.cfg.APIKey == "" {
		return nil, nil, ErrNoAPIKey
	}
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.OCRText),
	)

	schema := llm.BuildAllocationJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.PostJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, raw, fmt.Errorf("no choices in openai response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	// Validate strictly first; fall back to a sanitized copy.
	if err := c.ValidateAllocations(content); err != nil {
		cleaned, dropped, sErr := llm.SanitizeDocument(content)
		if sErr != nil {
			c.logger.Error("llm.extract.sanitize_failed", "req_id", rid, "error", sErr)
			return nil, content, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := c.ValidateAllocations(cleaned); vErr != nil {
			c.logger.Error("llm.extract.schema_validation_failed", "req_id", rid, "error", vErr)
			return nil, cleaned, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.logger.Warn("llm.extract.sanitize_applied", "req_id", rid, "dropped", dropped)
		content = cleaned
	}

	var doc llm.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, content, fmt.Errorf("unmarshal allocations: %w", err)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"rows", len(doc.Allocations),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc.Allocations, content, nil
}

// ValidateAllocations checks a reply against the schema sent with the prompt.
func (c *Client) ValidateAllocations(data []byte) error {
	return llm.ValidateAllocations(data)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
