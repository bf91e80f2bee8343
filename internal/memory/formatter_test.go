package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

func sampleContext() *models.MemoryContext {
	mc := &models.MemoryContext{
		UserID:      "user-123",
		GeneratedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		ProfileSummary: &models.ProfileSummary{
			UserID:    "user-123",
			RiskLevel: models.RiskLevelModerate,
		},
		EmotionalTrends: []models.EmotionalTrend{
			{Mood: "anxious", Intensity: 6, RecordedAt: time.Date(2026, 3, 9, 22, 15, 0, 0, time.UTC)},
		},
		Insights: []models.Insight{
			{Text: "avoidance spikes before deadlines"},
		},
		Goals: []models.Goal{
			{Title: "rest more", Status: "active"},
		},
	}
	mc.Normalize()
	return mc
}

func TestFormatIsDeterministic(t *testing.T) {
	mc := sampleContext()
	first := Format(mc)
	second := Format(mc)
	if first != second {
		t.Error("Format must be deterministic for the same input")
	}
	if first == "" {
		t.Fatal("expected non-empty output")
	}
}

func TestFormatOrdersSafetyFirst(t *testing.T) {
	mc := sampleContext()
	mc.CurrentContext.Crisis = true
	out := Format(mc)

	crisisIdx := strings.Index(out, "crisis")
	riskIdx := strings.Index(out, "risk level")
	goalsIdx := strings.Index(out, "Goals")
	if crisisIdx < 0 || riskIdx < 0 || goalsIdx < 0 {
		t.Fatalf("missing expected sections in output:\n%s", out)
	}
	if !(crisisIdx < riskIdx && riskIdx < goalsIdx) {
		t.Errorf("expected crisis < risk < goals ordering, got %d/%d/%d", crisisIdx, riskIdx, goalsIdx)
	}
}

func TestFormatOmitsEmptySections(t *testing.T) {
	mc := &models.MemoryContext{UserID: "user-123", GeneratedAt: time.Now()}
	mc.Normalize()
	out := Format(mc)
	if out != "" {
		t.Errorf("expected empty output for empty context, got:\n%s", out)
	}

	mc.Mantras = []models.Mantra{{Text: "slow is smooth"}}
	out = Format(mc)
	if !strings.Contains(out, "Mantras:") {
		t.Error("expected mantras section")
	}
	if strings.Contains(out, "Goals:") {
		t.Error("empty goals section must be omitted")
	}
}

func TestFormatCapsSections(t *testing.T) {
	mc := sampleContext()
	for i := 0; i < 20; i++ {
		mc.Insights = append(mc.Insights, models.Insight{Text: "insight"})
	}
	out := Format(mc)
	count := strings.Count(out, "- insight")
	if count > maxRenderedItems {
		t.Errorf("expected at most %d rendered insights, got %d", maxRenderedItems, count)
	}
}

func TestFormatRendersCalendarDays(t *testing.T) {
	mc := sampleContext()
	out := Format(mc)
	if !strings.Contains(out, "(2026-03-09)") {
		t.Errorf("expected calendar-day date in output:\n%s", out)
	}
	if strings.Contains(out, "22:15") {
		t.Error("dates must not include time of day")
	}
}

func TestFormatDateZeroValue(t *testing.T) {
	if got := formatDate(time.Time{}); got != "" {
		t.Errorf("zero time must render as empty string, got %q", got)
	}
	// Records with unset dates render without a date suffix.
	mc := &models.MemoryContext{UserID: "u", GeneratedAt: time.Now()}
	mc.Normalize()
	mc.RecentSessions = []models.SessionSummary{{Summary: "talked about sleep"}}
	out := Format(mc)
	if !strings.Contains(out, "- talked about sleep\n") && !strings.HasSuffix(out, "- talked about sleep") {
		t.Errorf("expected bare summary line, got:\n%s", out)
	}
	if strings.Contains(out, "0001") {
		t.Error("zero dates must never leak year-one values")
	}
}

func TestFormatNilContext(t *testing.T) {
	if Format(nil) != "" {
		t.Error("nil context must format to empty string")
	}
}
