package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SubmissionText is the slice of a submission handed to the generator.
type SubmissionText struct {
	UserName string
	Content  string
}

// SummaryGenerator is the external text-generation capability. It may fail or
// time out; retries belong to the orchestrator, not the implementation.
type SummaryGenerator interface {
	Generate(ctx context.Context, teamName string, subs []SubmissionText) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat-completions endpoint.
type OpenAIGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIGenerator(baseURL, apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{baseURL: baseURL, apiKey: apiKey, model: model, client: &http.Client{}}
}

const summarySystemPrompt = `You are a professional team manager summarizing weekly updates.
Write a business-casual summary at a high school reading level.
Format the summary with:
1. A one-paragraph overview of key themes and progress
2. A bulleted list of specific highlights or important points
Keep the tone positive and forward-looking.`

func (g *OpenAIGenerator) Generate(ctx context.Context, teamName string, subs []SubmissionText) (string, error) {
	var b strings.Builder
	for _, sub := range subs {
		fmt.Fprintf(&b, "Team Member: %s\nUpdate: %s\n\n", sub.UserName, sub.Content)
	}
	user := fmt.Sprintf("Here are the weekly updates for team %s:\n\n%sPlease provide a summary of the team's progress and upcoming work.", teamName, b.String())

	body := map[string]interface{}{
		"model":       g.model,
		"temperature": 0.7,
		"messages": []map[string]string{
			{"role": "system", "content": summarySystemPrompt},
			{"role": "user", "content": user},
		},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, data)
	}

	data, _ := io.ReadAll(resp.Body)
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return result.Choices[0].Message.Content, nil
}
