package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestSuccessTemplateListsNoveltySections(t *testing.T) {
	var body bytes.Buffer
	err := successTemplate.Execute(&body, successContext{
		FileName:        "week1.xlsx",
		ProcessedAt:     "2026-08-29 10:00:00",
		TotalRows:       10,
		RowsInserted:    7,
		RowsUpdated:     2,
		RowsSkipped:     1,
		NewChannels:     []string{"Community Retail"},
		NewTradeClasses: []string{"Acute Care", "Independent"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	html := body.String()
	for _, want := range []string{
		"week1.xlsx",
		"Total rows: 10",
		"Rows inserted: 7",
		"Newly seen channels",
		"Community Retail",
		"Newly seen trade classes",
		"Acute Care",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered body missing %q", want)
		}
	}
}

func TestSuccessTemplateOmitsEmptyNoveltySections(t *testing.T) {
	var body bytes.Buffer
	err := successTemplate.Execute(&body, successContext{
		FileName:  "routine.csv",
		TotalRows: 3,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(body.String(), "Newly seen") {
		t.Error("novelty headings should not render without novel values")
	}
}

func TestFailureTemplateEscapesErrorDetail(t *testing.T) {
	var body bytes.Buffer
	err := failureTemplate.Execute(&body, failureContext{
		FileName:    "broken.csv",
		AttemptedAt: "2026-08-29 10:00:00",
		ErrorDetail: `missing required columns: <new_channel>`,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	html := body.String()
	if !strings.Contains(html, "broken.csv") {
		t.Error("body should name the file")
	}
	if strings.Contains(html, "<new_channel>") {
		t.Error("error detail must be HTML-escaped")
	}
	if !strings.Contains(html, "&lt;new_channel&gt;") {
		t.Error("escaped error detail missing from body")
	}
}
