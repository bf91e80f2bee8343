// Package models defines tool structures for LLM function calling.
package models

import (
	"encoding/json"
	"fmt"
)

// ToolName identifies a callable memory tool.
type ToolName string

const (
	ToolSaveGoal             ToolName = "save_goal"
	ToolSaveInsight          ToolName = "save_insight"
	ToolSaveCopingTool       ToolName = "save_coping_tool"
	ToolRecordEmotionalTrend ToolName = "record_emotional_trend"
	ToolSaveMantra           ToolName = "save_mantra"
	ToolSaveRelationship     ToolName = "save_relationship"
	ToolRecordMilestone      ToolName = "record_milestone"
	ToolUpdateProfileSummary ToolName = "update_profile_summary"
)

// SaveGoalParams are the arguments for the save_goal tool.
type SaveGoalParams struct {
	UserID string `json:"userId,omitempty"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

// Validate ensures the goal parameters are usable.
func (p *SaveGoalParams) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	switch p.Status {
	case "", "active", "paused", "achieved":
	default:
		return fmt.Errorf("invalid goal status: %s", p.Status)
	}
	return nil
}

// SaveInsightParams are the arguments for the save_insight tool.
type SaveInsightParams struct {
	UserID     string `json:"userId,omitempty"`
	Text       string `json:"text"`
	Importance int    `json:"importance,omitempty"`
}

func (p *SaveInsightParams) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("text is required")
	}
	if p.Importance < 0 || p.Importance > 5 {
		return fmt.Errorf("importance must be between 0 and 5, got %d", p.Importance)
	}
	return nil
}

// SaveCopingToolParams are the arguments for the save_coping_tool tool.
type SaveCopingToolParams struct {
	UserID        string `json:"userId,omitempty"`
	Name          string `json:"name"`
	Effectiveness int    `json:"effectiveness,omitempty"`
	Context       string `json:"context,omitempty"`
}

func (p *SaveCopingToolParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Effectiveness < 0 || p.Effectiveness > 5 {
		return fmt.Errorf("effectiveness must be between 0 and 5, got %d", p.Effectiveness)
	}
	return nil
}

// RecordEmotionalTrendParams are the arguments for the record_emotional_trend tool.
type RecordEmotionalTrendParams struct {
	UserID    string `json:"userId,omitempty"`
	Mood      string `json:"mood"`
	Intensity int    `json:"intensity,omitempty"`
	Note      string `json:"note,omitempty"`
}

func (p *RecordEmotionalTrendParams) Validate() error {
	if p.Mood == "" {
		return fmt.Errorf("mood is required")
	}
	if p.Intensity < 0 || p.Intensity > 10 {
		return fmt.Errorf("intensity must be between 0 and 10, got %d", p.Intensity)
	}
	return nil
}

// SaveMantraParams are the arguments for the save_mantra tool.
type SaveMantraParams struct {
	UserID string `json:"userId,omitempty"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

func (p *SaveMantraParams) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

// SaveRelationshipParams are the arguments for the save_relationship tool.
type SaveRelationshipParams struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

func (p *SaveRelationshipParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// RecordMilestoneParams are the arguments for the record_milestone tool.
type RecordMilestoneParams struct {
	UserID       string `json:"userId,omitempty"`
	Title        string `json:"title"`
	Significance string `json:"significance,omitempty"`
}

func (p *RecordMilestoneParams) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// UpdateProfileSummaryParams are the arguments for the update_profile_summary tool.
type UpdateProfileSummaryParams struct {
	UserID       string   `json:"userId,omitempty"`
	RiskLevel    string   `json:"risk_level,omitempty"`
	SleepQuality string   `json:"sleep_quality,omitempty"`
	Challenges   []string `json:"challenges,omitempty"`
	Motivations  []string `json:"motivations,omitempty"`
}

func (p *UpdateProfileSummaryParams) Validate() error {
	switch RiskLevel(p.RiskLevel) {
	case "", RiskLevelLow, RiskLevelModerate, RiskLevelHigh:
	default:
		return fmt.Errorf("invalid risk level: %s", p.RiskLevel)
	}
	if p.RiskLevel == "" && p.SleepQuality == "" && len(p.Challenges) == 0 && len(p.Motivations) == 0 {
		return fmt.Errorf("at least one profile field must be provided")
	}
	return nil
}

// ToolCall represents an LLM tool function call.
type ToolCall struct {
	ID       string       `json:"id"`       // Tool call ID from the model
	Type     string       `json:"type"`     // Always "function"
	Function FunctionCall `json:"function"` // Function details
}

// FunctionCall represents the function details within a tool call.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolExecutionResult records the outcome of one dispatched tool call. It is
// retained for the duration of the turn and discarded afterwards.
type ToolExecutionResult struct {
	CallID          string `json:"call_id"`
	ToolName        string `json:"tool_name"`
	Success         bool   `json:"success"`
	Result          string `json:"result,omitempty"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}
