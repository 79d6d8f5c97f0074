package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"maflab-backend/internal/models"
)

// MinDraftLength is the minimum number of characters (after trimming) a
// draft must have before AI feedback can be requested.
const MinDraftLength = 50

type FeedbackService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	redis    *redis.Client
	rateChan chan struct{} // Token bucket
}

func NewFeedbackService(apiKey string, concurrentReqs int, redisClient *redis.Client) (*FeedbackService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.4)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &FeedbackService{
		client:   client,
		model:    model,
		redis:    redisClient,
		rateChan: rateChan,
	}, nil
}

func (s *FeedbackService) Close() {
	s.client.Close()
}

// ValidateDraft enforces the minimum draft length. It runs before any
// model call so short drafts never consume a rate slot.
func ValidateDraft(text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinDraftLength {
		return &ValidationError{Fields: map[string]string{
			"draft_text": fmt.Sprintf("Write at least %d characters before requesting feedback", MinDraftLength),
		}}
	}
	return nil
}

// acquireRate blocks until a rate slot is available
func (s *FeedbackService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *FeedbackService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *FeedbackService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// Generate produces structured writing feedback for the draft. The session's
// interaction log rides along so follow-up requests keep their conversation
// context. The caller persists the resulting interaction on the session.
func (s *FeedbackService) Generate(ctx context.Context, user *models.User, req models.FeedbackRequest, history []models.Interaction) (*models.FeedbackResponse, error) {
	if err := ValidateDraft(req.DraftText); err != nil {
		return nil, err
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildFeedbackPrompt(user, req, history, time.Now().UTC())

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := extractText(resp)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	var parsed struct {
		Feedback    string   `json:"feedback"`
		Questions   []string `json:"guiding_questions"`
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(rawText), &parsed); err != nil {
		// Try to extract the JSON object
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(rawText[start:end+1]), &parsed)
		}
	}

	if parsed.Feedback == "" {
		// Model ignored the schema; treat the whole response as prose feedback.
		parsed.Feedback = rawText
	}
	if parsed.Feedback == "" {
		return nil, fmt.Errorf("Gemini returned empty feedback")
	}
	if parsed.Questions == nil {
		parsed.Questions = []string{}
	}
	if parsed.Suggestions == nil {
		parsed.Suggestions = []string{}
	}

	return &models.FeedbackResponse{
		FeedbackText: parsed.Feedback,
		Questions:    parsed.Questions,
		Suggestions:  parsed.Suggestions,
		Interaction: models.Interaction{
			Actor:       models.ActorAssistant,
			Message:     parsed.Feedback,
			Questions:   parsed.Questions,
			Suggestions: parsed.Suggestions,
			Timestamp:   time.Now().UTC(),
		},
	}, nil
}

func buildFeedbackPrompt(user *models.User, req models.FeedbackRequest, history []models.Interaction, requestedAt time.Time) string {
	var b strings.Builder

	b.WriteString("You are an experienced academic writing tutor. Review the student's draft of a critical text and respond with formative feedback.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Request time: %s\n\n", requestedAt.Format(time.RFC3339)))

	if user != nil && user.StudyCycle != nil && *user.StudyCycle != "" {
		b.WriteString(fmt.Sprintf("The student is at the %s study cycle. Calibrate depth and vocabulary accordingly.\n\n", *user.StudyCycle))
	}

	if len(history) > 0 {
		b.WriteString("Earlier exchanges in this session, oldest first. Do not repeat advice already given; build on it:\n")
		for _, it := range history {
			b.WriteString(fmt.Sprintf("[%s, %s] %s\n", it.Actor, it.Timestamp.Format(time.RFC3339), it.Message))
		}
		b.WriteString("\n")
	}

	b.WriteString(`JSON schema:
{"feedback": "2-4 paragraphs of formative feedback on argument structure, clarity, and criticality", "guiding_questions": ["3 to 5 questions that push the student to deepen the analysis"], "suggestions": ["2 to 4 concrete revision suggestions"]}

Rules:
- Never rewrite the draft for the student; point at what to rework and why
- Ground every remark in the draft itself, quoting short fragments where useful
- Questions must be open, not yes/no
`)

	b.WriteString("\n---DRAFT START---\n")
	b.WriteString(req.DraftText)
	b.WriteString("\n---DRAFT END---\n")

	if strings.TrimSpace(req.QuickNotes) != "" {
		b.WriteString("\nStudent's quick notes while writing:\n")
		b.WriteString(req.QuickNotes)
		b.WriteString("\n")
	}
	if strings.TrimSpace(req.Reflection) != "" {
		b.WriteString("\nStudent's reflection on the process so far:\n")
		b.WriteString(req.Reflection)
		b.WriteString("\n")
	}

	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
