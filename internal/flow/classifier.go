// Mode classification for one conversation turn.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/genai"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// classifierSystemPrompt constrains the model to a single JSON object.
const classifierSystemPrompt = `You classify one message from a therapeutic journaling conversation into a conversation mode.

Modes:
- "crisis-support": the user expresses acute distress, hopelessness, self-harm, or danger.
- "daily-check-in": the user is sharing how their day or week is going.
- "insight-generation": the user is reflecting and looking for patterns or meaning.
- "free-form": anything else.

Respond with a JSON object only: {"mode": "...", "confidence": 0.0-1.0, "reason": "..."}.
Judge only the message you are given, not an imagined history.`

// ModeClassification is the parsed classifier verdict.
type ModeClassification struct {
	Mode       models.ConversationMode `json:"mode"`
	Confidence float64                 `json:"confidence"`
	Reason     string                  `json:"reason"`
}

// ModeClassifier selects the conversation mode for a turn with a
// JSON-constrained model call.
type ModeClassifier struct {
	client genai.ClientInterface
}

// NewModeClassifier creates a classifier over the given client.
func NewModeClassifier(client genai.ClientInterface) *ModeClassifier {
	return &ModeClassifier{client: client}
}

// Classify returns the mode verdict for the current message, or nil when
// classification fails for any reason. Callers fall back to free-form on
// nil; a failed classification never fails the turn. Only the current
// message and coarse context hints are considered, never prior turns.
func (c *ModeClassifier) Classify(ctx context.Context, message string, current models.CurrentContext, profile *models.ProfileSummary) *ModeClassification {
	var hints []string
	if current.Crisis {
		hints = append(hints, "the client flagged possible crisis")
	}
	if current.FirstSession {
		hints = append(hints, "this is the user's first session")
	}
	if profile != nil && profile.RiskLevel == models.RiskLevelHigh {
		hints = append(hints, "the user's assessed risk level is high")
	}
	userPrompt := message
	if len(hints) > 0 {
		userPrompt = fmt.Sprintf("Context hints: %s.\n\nMessage: %s", strings.Join(hints, "; "), message)
	}

	raw, err := c.client.GenerateStructured(ctx, classifierSystemPrompt, userPrompt)
	if err != nil {
		slog.Warn("ModeClassifier.Classify: model call failed", "error", err)
		return nil
	}

	extracted := extractJSONObject(raw)
	if extracted == "" {
		slog.Warn("ModeClassifier.Classify: no JSON object in reply", "reply_length", len(raw))
		return nil
	}

	var verdict struct {
		Mode       string  `json:"mode"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(extracted), &verdict); err != nil {
		slog.Warn("ModeClassifier.Classify: unparseable verdict", "error", err)
		return nil
	}

	mode := normalizeMode(verdict.Mode)
	confidence := clampConfidence(verdict.Confidence)
	slog.Debug("ModeClassifier.Classify: classified", "mode", mode, "confidence", confidence, "raw_mode", verdict.Mode)
	return &ModeClassification{
		Mode:       mode,
		Confidence: confidence,
		Reason:     verdict.Reason,
	}
}

// clampConfidence bounds a model-reported confidence into [0, 1]. Models
// occasionally report percentages or negative values.
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// extractJSONObject returns the substring from the first '{' to the last
// '}'. Models wrap JSON in prose or code fences often enough that strict
// parsing of the full reply is not viable.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// normalizeMode maps classifier spellings onto the known modes. Unknown
// values default to free-form.
func normalizeMode(raw string) models.ConversationMode {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")

	if m := models.ConversationMode(normalized); m.IsValid() {
		return m
	}
	switch normalized {
	case "crisis", "crisis-mode", "safety":
		return models.ModeCrisisSupport
	case "check-in", "checkin", "daily", "daily-checkin":
		return models.ModeDailyCheckIn
	case "insight", "insights", "reflection", "pattern-recognition":
		return models.ModeInsightGeneration
	case "freeform", "general", "default", "conversation":
		return models.ModeFreeForm
	}
	slog.Debug("normalizeMode: unknown mode, defaulting", "raw", raw)
	return models.ModeFreeForm
}
