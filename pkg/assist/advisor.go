package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tradeops/cot-mapping-service/pkg/analytics"
)

// ErrNotConfigured is returned when no LLM API key has been provided.
var ErrNotConfigured = fmt.Errorf("data chat is not configured")

// SummarySource provides the statistics that ground every answer.
type SummarySource interface {
	Summary(ctx context.Context) (*analytics.Summary, error)
}

// Advisor answers natural-language questions about the mapping data by
// calling an OpenAI-compatible chat completions endpoint with the current
// summary statistics as context.
type Advisor struct {
	summaries SummarySource
	apiKey    string
	baseURL   string
	modelName string
	client    *http.Client
}

func NewAdvisor(summaries SummarySource, apiKey, baseURL, modelName string) *Advisor {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &Advisor{
		summaries: summaries,
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelName: modelName,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (a *Advisor) Configured() bool {
	return a.apiKey != ""
}

var systemPrompt = template.Must(template.New("system").Parse(`You are an assistant for a Class of Trade mapping system. Answer questions using only the statistics below. If the answer is not derivable from them, say so.

Current statistics (generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}):
- Total mappings: {{.TotalMappings}}
- Mappings flagged with a new channel: {{.FlaggedNewChannels}}
- Mappings flagged with a new trade class: {{.FlaggedNewTradeClasses}}
- Distinct new channel values: {{.DistinctChannels}}
- Distinct new trade class values: {{.DistinctTradeClasses}}
- Successful batches: {{.SuccessfulBatches}}
- Failed batches: {{.FailedBatches}}
{{- if .ChannelDistribution}}
Channel distribution:
{{- range $channel, $count := .ChannelDistribution}}
- {{$channel}}: {{$count}}
{{- end}}
{{- end}}
{{- if .RecentBatches}}
Recent batches:
{{- range .RecentBatches}}
- {{.BatchName}} ({{.Origin}}, {{.Status}}): {{.TotalRows}} rows, {{.NewItems}} new items
{{- end}}
{{- end}}`))

// Ask builds the grounding prompt from the live summary and forwards the
// question to the model.
func (a *Advisor) Ask(ctx context.Context, question string) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}

	summary, err := a.summaries.Summary(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load summary: %w", err)
	}

	var prompt bytes.Buffer
	if err := systemPrompt.Execute(&prompt, summary); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	return a.complete(ctx, prompt.String(), question)
}

// SuggestedQuestions returns starter questions for the chat UI.
func (a *Advisor) SuggestedQuestions() []string {
	return []string{
		"How many mappings have a new channel that needs review?",
		"Which channels have the most mappings?",
		"How many batches failed recently, and why might that be?",
		"What new trade class values arrived this week?",
	}
}

func (a *Advisor) complete(ctx context.Context, system, question string) (string, error) {
	payload := map[string]interface{}{
		"model": a.modelName,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": question},
		},
		"temperature": 0.3,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion failed with status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return result.Choices[0].Message.Content, nil
}
