// Package models defines core data structures shared across Aluuna components.
package models

import (
	"fmt"
	"time"
)

// Limits applied to MemoryContext list fields. The aggregator requests at
// most this many rows per domain and Validate rejects anything larger.
const (
	MaxInnerParts     = 10
	MaxInsights       = 15
	MaxEmotionalTrend = 30
	MaxRecentSessions = 5
	MaxSectionItems   = 20
)

// RiskLevel describes the user's current assessed risk.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelModerate RiskLevel = "moderate"
	RiskLevelHigh     RiskLevel = "high"
)

// ConversationMode is the behavioral stance selected for one turn.
type ConversationMode string

const (
	ModeCrisisSupport     ConversationMode = "crisis-support"
	ModeDailyCheckIn      ConversationMode = "daily-check-in"
	ModeInsightGeneration ConversationMode = "insight-generation"
	ModeFreeForm          ConversationMode = "free-form"
)

// IsValid reports whether m is one of the four known modes.
func (m ConversationMode) IsValid() bool {
	switch m {
	case ModeCrisisSupport, ModeDailyCheckIn, ModeInsightGeneration, ModeFreeForm:
		return true
	}
	return false
}

// ProfileSummary is the single per-user summary record.
type ProfileSummary struct {
	UserID       string    `json:"user_id"`
	RiskLevel    RiskLevel `json:"risk_level,omitempty"`
	SleepQuality string    `json:"sleep_quality,omitempty"`
	Challenges   []string  `json:"challenges,omitempty"`
	Motivations  []string  `json:"motivations,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InnerPart is a named inner voice or part surfaced in parts work.
type InnerPart struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Role        string    `json:"role,omitempty"`
	Tone        string    `json:"tone,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Insight is a reflection the companion or the user has recorded.
type Insight struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Importance int       `json:"importance,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmotionalTrend is one mood observation on a timeline.
type EmotionalTrend struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Mood       string    `json:"mood"`
	Intensity  int       `json:"intensity,omitempty"` // 1-10
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SessionSummary captures one completed conversation turn or session.
type SessionSummary struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Summary   string           `json:"summary"`
	Mode      ConversationMode `json:"mode,omitempty"`
	ToolCalls int              `json:"tool_calls,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Goal is a stated user goal.
type Goal struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status,omitempty"` // active, paused, achieved
	TargetDate time.Time `json:"target_date,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Theme is a recurring topic detected across entries.
type Theme struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Occurrences int       `json:"occurrences,omitempty"`
	LastSeen    time.Time `json:"last_seen,omitempty"`
}

// CopingTool is a strategy the user has found helpful.
type CopingTool struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Effectiveness int       `json:"effectiveness,omitempty"` // 1-5
	Context       string    `json:"context,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Mantra is a phrase the user returns to.
type Mantra struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValueCompass is the single record of stated values.
type ValueCompass struct {
	UserID     string    `json:"user_id"`
	CoreValues []string  `json:"core_values,omitempty"`
	AntiValues []string  `json:"anti_values,omitempty"`
	Narrative  string    `json:"narrative,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AIPreferences is the single record of how the user wants the companion to respond.
type AIPreferences struct {
	UserID         string    `json:"user_id"`
	Tone           string    `json:"tone,omitempty"`
	ResponseLength string    `json:"response_length,omitempty"`
	AvoidTopics    []string  `json:"avoid_topics,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Relationship is a significant person in the user's life.
type Relationship struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Milestone is a meaningful achievement.
type Milestone struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Significance string    `json:"significance,omitempty"`
	AchievedAt   time.Time `json:"achieved_at"`
}

// JournalEntry is a short excerpt of a free-written entry.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Excerpt   string    `json:"excerpt"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ShadowTheme is a pattern the user tends to avoid looking at.
type ShadowTheme struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Evidence  string    `json:"evidence,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PatternLoop is a recurring trigger-response cycle.
type PatternLoop struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Trigger   string    `json:"trigger"`
	Cycle     string    `json:"cycle,omitempty"`
	Impact    string    `json:"impact,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RegulationStrategy is a nervous-system regulation practice.
type RegulationStrategy struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	WhenToUse string    `json:"when_to_use,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DysregulatingFactor is a known destabilizer.
type DysregulatingFactor struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Severity  string    `json:"severity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Strength is a personal strength worth reflecting back.
type Strength struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Evidence  string    `json:"evidence,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportContact is part of the user's support system.
type SupportContact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Relation  string    `json:"relation,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyPractice is a recurring practice the user maintains.
type DailyPractice struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HabitStreak tracks continuity of a habit.
type HabitStreak struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Habit         string    `json:"habit"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak,omitempty"`
	LastCheckIn   time.Time `json:"last_check_in,omitempty"`
}

// CurrentContext is the caller-supplied flag bag for one turn. It is never
// read from the store.
type CurrentContext struct {
	FirstSession bool   `json:"first_session,omitempty"`
	Crisis       bool   `json:"crisis,omitempty"`
	DeepWork     bool   `json:"deep_work,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

// MemoryContext is the bounded, validated snapshot of a user's therapeutic
// memory assembled for one model turn. Optional sections are serialized only
// when non-empty to keep cached payloads small.
type MemoryContext struct {
	UserID         string          `json:"user_id"`
	GeneratedAt    time.Time       `json:"generated_at"`
	ProfileSummary *ProfileSummary `json:"profile_summary,omitempty"`

	InnerParts      []InnerPart      `json:"inner_parts"`
	Insights        []Insight        `json:"insights"`
	EmotionalTrends []EmotionalTrend `json:"emotional_trends"`
	RecentSessions  []SessionSummary `json:"recent_sessions"`

	Goals                []Goal                `json:"goals,omitempty"`
	Themes               []Theme               `json:"themes,omitempty"`
	CopingTools          []CopingTool          `json:"coping_tools,omitempty"`
	Mantras              []Mantra              `json:"mantras,omitempty"`
	ValueCompass         *ValueCompass         `json:"value_compass,omitempty"`
	AIPreferences        *AIPreferences        `json:"ai_preferences,omitempty"`
	Relationships        []Relationship        `json:"relationships,omitempty"`
	Milestones           []Milestone           `json:"milestones,omitempty"`
	JournalEntries       []JournalEntry        `json:"journal_entries,omitempty"`
	ShadowThemes         []ShadowTheme         `json:"shadow_themes,omitempty"`
	PatternLoops         []PatternLoop         `json:"pattern_loops,omitempty"`
	RegulationStrategies []RegulationStrategy  `json:"regulation_strategies,omitempty"`
	DysregulatingFactors []DysregulatingFactor `json:"dysregulating_factors,omitempty"`
	Strengths            []Strength            `json:"strengths,omitempty"`
	SupportSystem        []SupportContact      `json:"support_system,omitempty"`
	DailyPractices       []DailyPractice       `json:"daily_practices,omitempty"`
	HabitStreaks         []HabitStreak         `json:"habit_streaks,omitempty"`

	CurrentContext CurrentContext `json:"current_context"`
}

// Normalize ensures the core list fields are never nil so consumers can
// range over them without nil checks.
func (mc *MemoryContext) Normalize() {
	if mc.InnerParts == nil {
		mc.InnerParts = []InnerPart{}
	}
	if mc.Insights == nil {
		mc.Insights = []Insight{}
	}
	if mc.EmotionalTrends == nil {
		mc.EmotionalTrends = []EmotionalTrend{}
	}
	if mc.RecentSessions == nil {
		mc.RecentSessions = []SessionSummary{}
	}
}

// Validate checks the assembled context against its structural invariants.
// A failure here indicates a mapping bug in the aggregator, not a transient
// data problem, and is fatal for the build.
func (mc *MemoryContext) Validate() error {
	if mc.UserID == "" {
		return fmt.Errorf("memory context missing user id")
	}
	if mc.GeneratedAt.IsZero() {
		return fmt.Errorf("memory context missing generated_at")
	}
	if mc.InnerParts == nil || mc.Insights == nil || mc.EmotionalTrends == nil || mc.RecentSessions == nil {
		return fmt.Errorf("memory context core lists must not be nil")
	}
	if len(mc.InnerParts) > MaxInnerParts {
		return fmt.Errorf("inner_parts exceeds cap: %d > %d", len(mc.InnerParts), MaxInnerParts)
	}
	if len(mc.Insights) > MaxInsights {
		return fmt.Errorf("insights exceeds cap: %d > %d", len(mc.Insights), MaxInsights)
	}
	if len(mc.EmotionalTrends) > MaxEmotionalTrend {
		return fmt.Errorf("emotional_trends exceeds cap: %d > %d", len(mc.EmotionalTrends), MaxEmotionalTrend)
	}
	if len(mc.RecentSessions) > MaxRecentSessions {
		return fmt.Errorf("recent_sessions exceeds cap: %d > %d", len(mc.RecentSessions), MaxRecentSessions)
	}
	if mc.ProfileSummary != nil && mc.ProfileSummary.UserID != mc.UserID {
		return fmt.Errorf("profile summary user id mismatch: %s != %s", mc.ProfileSummary.UserID, mc.UserID)
	}
	for _, check := range []struct {
		name string
		n    int
	}{
		{"goals", len(mc.Goals)},
		{"themes", len(mc.Themes)},
		{"coping_tools", len(mc.CopingTools)},
		{"mantras", len(mc.Mantras)},
		{"relationships", len(mc.Relationships)},
		{"milestones", len(mc.Milestones)},
		{"journal_entries", len(mc.JournalEntries)},
		{"shadow_themes", len(mc.ShadowThemes)},
		{"pattern_loops", len(mc.PatternLoops)},
		{"regulation_strategies", len(mc.RegulationStrategies)},
		{"dysregulating_factors", len(mc.DysregulatingFactors)},
		{"strengths", len(mc.Strengths)},
		{"support_system", len(mc.SupportSystem)},
		{"daily_practices", len(mc.DailyPractices)},
		{"habit_streaks", len(mc.HabitStreaks)},
	} {
		if check.n > MaxSectionItems {
			return fmt.Errorf("%s exceeds cap: %d > %d", check.name, check.n, MaxSectionItems)
		}
	}
	return nil
}

// RespondRequest is the caller-facing input for one turn.
type RespondRequest struct {
	UserInput string         `json:"user_input"`
	UserID    string         `json:"user_id"`
	Mode      string         `json:"mode,omitempty"` // optional override; classified when empty
	Context   CurrentContext `json:"context,omitempty"`
}

// Validate checks the turn request.
func (r *RespondRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.UserInput == "" {
		return fmt.Errorf("user_input is required")
	}
	if r.Mode != "" && !ConversationMode(r.Mode).IsValid() {
		return fmt.Errorf("invalid mode: %s", r.Mode)
	}
	return nil
}

// TurnMetadata describes how a turn was produced.
type TurnMetadata struct {
	TurnID         string           `json:"turn_id"`
	Mode           ConversationMode `json:"mode"`
	ModeConfidence float64          `json:"mode_confidence,omitempty"`
	CacheHit       bool             `json:"cache_hit"`
	Model          string           `json:"model,omitempty"`
	ToolCallCount  int              `json:"tool_call_count"`
	DurationMs     int64            `json:"duration_ms"`
}

// RespondResponse is the caller-facing output for one turn.
type RespondResponse struct {
	Text     string       `json:"text"`
	Insights []string     `json:"insights"`
	Metadata TurnMetadata `json:"metadata"`
}

// MaxResponseInsights bounds the heuristic insight list returned per turn.
const MaxResponseInsights = 3

// Validate checks the final turn output before it is returned to the caller.
// A violation is fatal for the turn; no partial output is returned.
func (r *RespondResponse) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("response text is empty")
	}
	if r.Insights == nil {
		return fmt.Errorf("insights must not be nil")
	}
	if len(r.Insights) > MaxResponseInsights {
		return fmt.Errorf("insights exceeds cap: %d > %d", len(r.Insights), MaxResponseInsights)
	}
	if r.Metadata.TurnID == "" {
		return fmt.Errorf("metadata missing turn id")
	}
	if !r.Metadata.Mode.IsValid() {
		return fmt.Errorf("metadata has invalid mode: %s", r.Metadata.Mode)
	}
	return nil
}

// API response envelope, shared by all HTTP handlers.

// APIStatus enumerates response statuses.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
