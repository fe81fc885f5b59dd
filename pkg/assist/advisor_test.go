package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tradeops/cot-mapping-service/pkg/analytics"
)

type fakeSummaries struct {
	summary *analytics.Summary
	err     error
}

func (f *fakeSummaries) Summary(ctx context.Context) (*analytics.Summary, error) {
	return f.summary, f.err
}

func sampleSummary() *analytics.Summary {
	return &analytics.Summary{
		TotalMappings:          120,
		FlaggedNewChannels:     4,
		FlaggedNewTradeClasses: 2,
		DistinctChannels:       3,
		DistinctTradeClasses:   2,
		SuccessfulBatches:      15,
		FailedBatches:          1,
		ChannelDistribution:    map[string]int64{"Retail": 80, "Hospital": 40},
		RecentBatches: []analytics.BatchDigest{
			{BatchName: "week1.xlsx", Origin: "manual", Status: "SUCCESS", TotalRows: 20, NewItems: 3},
		},
		GeneratedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
}

func TestSystemPromptRendersStatistics(t *testing.T) {
	var prompt bytes.Buffer
	if err := systemPrompt.Execute(&prompt, sampleSummary()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	rendered := prompt.String()
	for _, want := range []string{
		"Total mappings: 120",
		"new channel: 4",
		"Successful batches: 15",
		"Retail: 80",
		"week1.xlsx (manual, SUCCESS): 20 rows, 3 new items",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAskReturnsNotConfiguredWithoutKey(t *testing.T) {
	advisor := NewAdvisor(&fakeSummaries{summary: sampleSummary()}, "", "", "")
	if advisor.Configured() {
		t.Error("advisor without a key should not report configured")
	}
	_, err := advisor.Ask(context.Background(), "how many mappings?")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAskForwardsQuestionAndGrounding(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"120 mappings in total."}}]}`))
	}))
	defer server.Close()

	advisor := NewAdvisor(&fakeSummaries{summary: sampleSummary()}, "test-key", server.URL, "test-model")

	answer, err := advisor.Ask(context.Background(), "How many mappings are there?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "120 mappings in total." {
		t.Errorf("answer = %q", answer)
	}

	if captured.Model != "test-model" {
		t.Errorf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
	if !strings.Contains(captured.Messages[0].Content, "Total mappings: 120") {
		t.Error("system message should carry the summary statistics")
	}
	if captured.Messages[1].Content != "How many mappings are there?" {
		t.Errorf("user message = %q", captured.Messages[1].Content)
	}
}

func TestAskSurfacesUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	advisor := NewAdvisor(&fakeSummaries{summary: sampleSummary()}, "test-key", server.URL, "")
	if _, err := advisor.Ask(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from upstream failure")
	}
}
