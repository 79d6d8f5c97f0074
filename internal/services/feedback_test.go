package services

import (
	"strings"
	"testing"
	"time"

	"maflab-backend/internal/models"
)

func TestValidateDraft_TooShort(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
		{"49 chars", strings.Repeat("a", 49)},
		{"49 chars padded with spaces", "  " + strings.Repeat("a", 49) + "  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDraft(tc.text)
			if err == nil {
				t.Fatal("Expected validation error for short draft")
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
			if _, ok := ve.Fields["draft_text"]; !ok {
				t.Error("Expected a draft_text field error")
			}
		})
	}
}

func TestValidateDraft_LongEnough(t *testing.T) {
	if err := ValidateDraft(strings.Repeat("a", 50)); err != nil {
		t.Errorf("50 chars should pass, got %v", err)
	}
	if err := ValidateDraft(strings.Repeat("ã", 50)); err != nil {
		t.Errorf("50 multibyte runes should pass, got %v", err)
	}
}

func TestBuildFeedbackPrompt_IncludesDraftAndContext(t *testing.T) {
	cycle := "master"
	user := &models.User{StudyCycle: &cycle}
	req := models.FeedbackRequest{
		DraftText:  "The argument rests on an unstated premise about method.",
		QuickNotes: "check premise",
		Reflection: "struggled with the counterargument",
	}
	requestedAt := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	prompt := buildFeedbackPrompt(user, req, nil, requestedAt)

	for _, want := range []string{req.DraftText, req.QuickNotes, req.Reflection, "master"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, "JSON") {
		t.Error("Prompt should demand JSON output")
	}
	if !strings.Contains(prompt, "2026-08-30T14:00:00Z") {
		t.Error("Prompt missing the request timestamp")
	}
}

func TestBuildFeedbackPrompt_IncludesHistory(t *testing.T) {
	history := []models.Interaction{
		{Actor: models.ActorStudent, Message: "first attempt", Timestamp: time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC)},
		{Actor: models.ActorAssistant, Message: "clarify your thesis", Timestamp: time.Date(2026, 8, 30, 13, 1, 0, 0, time.UTC)},
	}

	prompt := buildFeedbackPrompt(nil, models.FeedbackRequest{DraftText: "second attempt"}, history, time.Now().UTC())

	for _, want := range []string{"first attempt", "clarify your thesis", models.ActorAssistant} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing history fragment %q", want)
		}
	}
	// The earlier exchange must come before the new draft.
	if strings.Index(prompt, "clarify your thesis") > strings.Index(prompt, "second attempt") {
		t.Error("History should precede the current draft")
	}
}

func TestBuildFeedbackPrompt_NilUser(t *testing.T) {
	prompt := buildFeedbackPrompt(nil, models.FeedbackRequest{DraftText: "some draft"}, nil, time.Now().UTC())
	if !strings.Contains(prompt, "some draft") {
		t.Error("Prompt missing draft text")
	}
}
