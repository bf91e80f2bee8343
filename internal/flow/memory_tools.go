// Memory write tools offered to the model. Each tool has a definition in
// OpenAI function format and a store-backed handler. Handlers invalidate the
// user's cached context so the next turn sees the write.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/memory"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/store"
)

// MemoryTools owns the store-backed tool handlers.
type MemoryTools struct {
	store   store.MemoryStore
	builder *memory.Builder
}

// NewMemoryTools creates the handler set over the given store. The builder
// is used only for cache invalidation after writes.
func NewMemoryTools(st store.MemoryStore, builder *memory.Builder) *MemoryTools {
	return &MemoryTools{store: st, builder: builder}
}

func (t *MemoryTools) invalidate(ctx context.Context, userID string) {
	if t.builder != nil {
		t.builder.Invalidate(ctx, userID)
	}
}

// userIDProperty is shared by every tool schema. The model frequently emits
// placeholder ids here; the executor overwrites them with the effective id.
func userIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "The user's id. Leave empty if unknown.",
	}
}

func saveGoalDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolSaveGoal),
			Description: openai.String("Save a goal the user has stated for themselves, such as a habit they want to build or a change they want to make."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Short statement of the goal in the user's own words",
					},
					"status": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"active", "paused", "achieved"},
						"description": "Current status of the goal",
					},
				},
				"required": []string{"title"},
			},
		},
	}
}

func (t *MemoryTools) executeSaveGoal(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.SaveGoalParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid save_goal arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid save_goal arguments: %w", err)
	}
	status := p.Status
	if status == "" {
		status = "active"
	}
	g := models.Goal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     p.Title,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.AddGoal(ctx, g); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)
	return fmt.Sprintf("Saved goal: %s", p.Title), nil
}

func saveInsightDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolSaveInsight),
			Description: openai.String("Record a meaningful insight or realization that surfaced during the conversation, so it can be reflected back in future sessions."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"text": map[string]interface{}{
						"type":        "string",
						"description": "The insight, phrased as a single clear sentence",
					},
					"importance": map[string]interface{}{
						"type":        "integer",
						"description": "How significant this insight is, 1-5",
					},
				},
				"required": []string{"text"},
			},
		},
	}
}

func (t *MemoryTools) executeSaveInsight(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.SaveInsightParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid save_insight arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid save_insight arguments: %w", err)
	}
	i := models.Insight{
		ID:         uuid.NewString(),
		UserID:     userID,
		Text:       p.Text,
		Importance: p.Importance,
		CreatedAt:  time.Now().UTC(),
	}
	if err := t.store.AddInsight(ctx, i); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)
	return "Saved insight", nil
}

func saveCopingToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolSaveCopingTool),
			Description: openai.String("Save a coping strategy the user has found helpful, such as a breathing exercise, journaling practice, or grounding technique."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the coping tool",
					},
					"effectiveness": map[string]interface{}{
						"type":        "integer",
						"description": "How well it works for the user, 1-5",
					},
					"context": map[string]interface{}{
						"type":        "string",
						"description": "When the user tends to reach for it",
					},
				},
				"required": []string{"name"},
			},
		},
	}
}

func (t *MemoryTools) executeSaveCopingTool(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.SaveCopingToolParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid save_coping_tool arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid save_coping_tool arguments: %w", err)
	}
	c := models.CopingTool{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          p.Name,
		Effectiveness: p.Effectiveness,
		Context:       p.Context,
		CreatedAt:     time.Now().UTC(),
	}
	if err := t.store.AddCopingTool(ctx, c); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)
	return fmt.Sprintf("Saved coping tool: %s", p.Name), nil
}

func recordEmotionalTrendDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolRecordEmotionalTrend),
			Description: openai.String("Record the user's current emotional state on their mood timeline. Use when the user clearly expresses how they are feeling."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"mood": map[string]interface{}{
						"type":        "string",
						"description": "One-word or short mood label, e.g. anxious, hopeful",
					},
					"intensity": map[string]interface{}{
						"type":        "integer",
						"description": "Intensity of the mood, 1-10",
					},
					"note": map[string]interface{}{
						"type":        "string",
						"description": "Brief context for the mood",
					},
				},
				"required": []string{"mood"},
			},
		},
	}
}

func (t *MemoryTools) executeRecordEmotionalTrend(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.RecordEmotionalTrendParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid record_emotional_trend arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid record_emotional_trend arguments: %w", err)
	}
	e := models.EmotionalTrend{
		ID:         uuid.NewString(),
		UserID:     userID,
		Mood:       p.Mood,
		Intensity:  p.Intensity,
		Note:       p.Note,
		RecordedAt: time.Now().UTC(),
	}
	if err := t.store.AddEmotionalTrend(ctx, e); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)
	return fmt.Sprintf("Recorded mood: %s", p.Mood), nil
}

func saveMantraDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolSaveMantra),
			Description: openai.String("Save a phrase or affirmation the user finds grounding and returns to."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"text": map[string]interface{}{
						"type":        "string",
						"description": "The mantra itself",
					},
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Where it came from, if mentioned",
					},
				},
				"required": []string{"text"},
			},
		},
	}
}

func (t *MemoryTools) executeSaveMantra(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.SaveMantraParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid save_mantra arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid save_mantra arguments: %w", err)
	}
	m := models.Mantra{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      p.Text,
		Source:    p.Source,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.AddMantra(ctx, m); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)
	return "Saved mantra", nil
}

func saveRelationshipDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolSaveRelationship),
			Description: openai.String("Save a significant person in the user's life when they are mentioned with meaningful context."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"name": map[string]interface{}{
						"type":        "string",
						"description": "The person's name as the user refers to them",
					},
					"role": map[string]interface{}{
						"type":        "string",
						"description": "Relationship to the user, e.g. partner, mother, manager",
					},
					"notes": map[string]interface{}{
						"type":        "string",
						"description": "Relevant context about the relationship",
					},
				},
				"required": []string{"name"},
			},
		},
	}
}

func (t *MemoryTools) executeSaveRelationship(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.SaveRelationshipParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid save_relationship arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid save_relationship arguments: %w", err)
	}
	r := models.Relationship{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      p.Name,
		Role:      p.Role,
		Notes:     p.Notes,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.AddRelationship(ctx, r); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)
	return fmt.Sprintf("Saved relationship: %s", p.Name), nil
}

func recordMilestoneDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolRecordMilestone),
			Description: openai.String("Record a meaningful achievement or step forward the user shares, so progress can be celebrated later."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"title": map[string]interface{}{
						"type":        "string",
						"description": "What the user accomplished",
					},
					"significance": map[string]interface{}{
						"type":        "string",
						"description": "Why it matters to the user",
					},
				},
				"required": []string{"title"},
			},
		},
	}
}

func (t *MemoryTools) executeRecordMilestone(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.RecordMilestoneParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid record_milestone arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid record_milestone arguments: %w", err)
	}
	m := models.Milestone{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        p.Title,
		Significance: p.Significance,
		AchievedAt:   time.Now().UTC(),
	}
	if err := t.store.AddMilestone(ctx, m); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)
	return fmt.Sprintf("Recorded milestone: %s", p.Title), nil
}

func updateProfileSummaryDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        string(models.ToolUpdateProfileSummary),
			Description: openai.String("Update the user's profile summary when they share lasting information about their situation: risk indicators, sleep quality, ongoing challenges, or motivations."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty(),
					"risk_level": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"low", "moderate", "high"},
						"description": "Assessed risk level, only when clearly indicated",
					},
					"sleep_quality": map[string]interface{}{
						"type":        "string",
						"description": "Current sleep quality description",
					},
					"challenges": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Ongoing challenges the user faces",
					},
					"motivations": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "What motivates the user",
					},
				},
			},
		},
	}
}

func (t *MemoryTools) executeUpdateProfileSummary(ctx context.Context, userID string, args json.RawMessage) (string, error) {
	var p models.UpdateProfileSummaryParams
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("invalid update_profile_summary arguments: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid update_profile_summary arguments: %w", err)
	}
	summary := models.ProfileSummary{
		UserID:       userID,
		RiskLevel:    models.RiskLevel(p.RiskLevel),
		SleepQuality: p.SleepQuality,
		Challenges:   p.Challenges,
		Motivations:  p.Motivations,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := t.store.UpsertProfileSummary(ctx, summary); err != nil {
		return "", err
	}
	t.invalidate(ctx, userID)

	var updated []string
	if p.RiskLevel != "" {
		updated = append(updated, "risk level")
	}
	if p.SleepQuality != "" {
		updated = append(updated, "sleep quality")
	}
	if len(p.Challenges) > 0 {
		updated = append(updated, "challenges")
	}
	if len(p.Motivations) > 0 {
		updated = append(updated, "motivations")
	}
	slog.Debug("MemoryTools.executeUpdateProfileSummary: updated", "userID", userID, "fields", updated)
	return fmt.Sprintf("Updated profile: %s", strings.Join(updated, ", ")), nil
}
