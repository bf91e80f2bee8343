package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// Per-section render caps. Lists arrive capped from the aggregator, but the
// formatter enforces its own bounds so it stays safe on any input.
const (
	maxRenderedTrends   = 10
	maxRenderedSessions = models.MaxRecentSessions
	maxRenderedItems    = 8
)

// formatDate renders a calendar day. Zero times render as the empty string
// rather than a year-one date.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// withDate appends " (date)" when the time is set.
func withDate(s string, t time.Time) string {
	if d := formatDate(t); d != "" {
		return s + " (" + d + ")"
	}
	return s
}

// Format renders a memory context as the prompt-ready text block. It is a
// pure function of its input: sections appear in a fixed order with
// safety-relevant material first, empty sections are omitted entirely, and
// each section is capped.
func Format(mc *models.MemoryContext) string {
	if mc == nil {
		return ""
	}
	var b strings.Builder

	writeCurrentContext(&b, mc.CurrentContext)
	writeProfile(&b, mc.ProfileSummary)

	if n := min(len(mc.DysregulatingFactors), maxRenderedItems); n > 0 {
		section(&b, "Known destabilizers")
		for _, d := range mc.DysregulatingFactors[:n] {
			line(&b, joinNonEmpty(d.Name, d.Severity))
		}
	}
	if n := min(len(mc.RegulationStrategies), maxRenderedItems); n > 0 {
		section(&b, "Regulation strategies that help")
		for _, r := range mc.RegulationStrategies[:n] {
			line(&b, joinNonEmpty(r.Name, r.WhenToUse))
		}
	}
	if n := min(len(mc.SupportSystem), maxRenderedItems); n > 0 {
		section(&b, "Support system")
		for _, c := range mc.SupportSystem[:n] {
			line(&b, joinNonEmpty(c.Name, c.Relation))
		}
	}
	if n := min(len(mc.EmotionalTrends), maxRenderedTrends); n > 0 {
		section(&b, "Recent emotional trends")
		for _, e := range mc.EmotionalTrends[:n] {
			entry := e.Mood
			if e.Intensity > 0 {
				entry = fmt.Sprintf("%s (%d/10)", e.Mood, e.Intensity)
			}
			if e.Note != "" {
				entry += ": " + e.Note
			}
			line(&b, withDate(entry, e.RecordedAt))
		}
	}
	if n := min(len(mc.InnerParts), maxRenderedItems); n > 0 {
		section(&b, "Inner parts")
		for _, p := range mc.InnerParts[:n] {
			entry := p.Name
			if p.Role != "" {
				entry += " (" + p.Role + ")"
			}
			if p.Description != "" {
				entry += ": " + p.Description
			}
			line(&b, entry)
		}
	}
	if n := min(len(mc.Insights), maxRenderedItems); n > 0 {
		section(&b, "Insights so far")
		for _, i := range mc.Insights[:n] {
			line(&b, i.Text)
		}
	}
	if n := min(len(mc.RecentSessions), maxRenderedSessions); n > 0 {
		section(&b, "Recent sessions")
		for _, s := range mc.RecentSessions[:n] {
			line(&b, withDate(s.Summary, s.CreatedAt))
		}
	}
	if n := min(len(mc.Goals), maxRenderedItems); n > 0 {
		section(&b, "Goals")
		for _, g := range mc.Goals[:n] {
			entry := g.Title
			if g.Status != "" {
				entry += " [" + g.Status + "]"
			}
			line(&b, entry)
		}
	}
	if n := min(len(mc.Themes), maxRenderedItems); n > 0 {
		section(&b, "Recurring themes")
		for _, t := range mc.Themes[:n] {
			line(&b, t.Name)
		}
	}
	if n := min(len(mc.CopingTools), maxRenderedItems); n > 0 {
		section(&b, "Coping tools that work")
		for _, c := range mc.CopingTools[:n] {
			line(&b, joinNonEmpty(c.Name, c.Context))
		}
	}
	if n := min(len(mc.Mantras), maxRenderedItems); n > 0 {
		section(&b, "Mantras")
		for _, m := range mc.Mantras[:n] {
			line(&b, m.Text)
		}
	}
	writeValueCompass(&b, mc.ValueCompass)
	writePreferences(&b, mc.AIPreferences)
	if n := min(len(mc.Relationships), maxRenderedItems); n > 0 {
		section(&b, "Key relationships")
		for _, r := range mc.Relationships[:n] {
			entry := joinNonEmpty(r.Name, r.Role)
			if r.Notes != "" {
				entry += ": " + r.Notes
			}
			line(&b, entry)
		}
	}
	if n := min(len(mc.Milestones), maxRenderedItems); n > 0 {
		section(&b, "Milestones")
		for _, m := range mc.Milestones[:n] {
			line(&b, withDate(m.Title, m.AchievedAt))
		}
	}
	if n := min(len(mc.JournalEntries), maxRenderedItems); n > 0 {
		section(&b, "Recent journal excerpts")
		for _, e := range mc.JournalEntries[:n] {
			line(&b, withDate(e.Excerpt, e.CreatedAt))
		}
	}
	if n := min(len(mc.ShadowThemes), maxRenderedItems); n > 0 {
		section(&b, "Avoided topics to approach gently")
		for _, t := range mc.ShadowThemes[:n] {
			line(&b, t.Name)
		}
	}
	if n := min(len(mc.PatternLoops), maxRenderedItems); n > 0 {
		section(&b, "Pattern loops")
		for _, p := range mc.PatternLoops[:n] {
			entry := p.Trigger
			if p.Cycle != "" {
				entry += " -> " + p.Cycle
			}
			if p.Impact != "" {
				entry += " -> " + p.Impact
			}
			line(&b, entry)
		}
	}
	if n := min(len(mc.Strengths), maxRenderedItems); n > 0 {
		section(&b, "Strengths to reflect back")
		for _, s := range mc.Strengths[:n] {
			line(&b, s.Name)
		}
	}
	if n := min(len(mc.DailyPractices), maxRenderedItems); n > 0 {
		section(&b, "Daily practices")
		for _, p := range mc.DailyPractices[:n] {
			line(&b, joinNonEmpty(p.Name, p.Schedule))
		}
	}
	if n := min(len(mc.HabitStreaks), maxRenderedItems); n > 0 {
		section(&b, "Habit streaks")
		for _, h := range mc.HabitStreaks[:n] {
			entry := fmt.Sprintf("%s: %d days", h.Habit, h.CurrentStreak)
			if d := formatDate(h.LastCheckIn); d != "" {
				entry += ", last check-in " + d
			}
			line(&b, entry)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(title + ":\n")
}

func line(b *strings.Builder, s string) {
	b.WriteString("- " + s + "\n")
}

func joinNonEmpty(name, detail string) string {
	if detail == "" {
		return name
	}
	return name + " (" + detail + ")"
}

// writeCurrentContext renders the per-turn flags. Crisis comes before
// anything else the model reads.
func writeCurrentContext(b *strings.Builder, cc models.CurrentContext) {
	var flags []string
	if cc.Crisis {
		flags = append(flags, "the user may be in crisis; safety comes before all other guidance")
	}
	if cc.FirstSession {
		flags = append(flags, "this is the user's first session")
	}
	if cc.DeepWork {
		flags = append(flags, "the user has asked for deeper exploratory work")
	}
	if len(flags) == 0 {
		return
	}
	section(b, "Right now")
	for _, f := range flags {
		line(b, f)
	}
}

func writeProfile(b *strings.Builder, p *models.ProfileSummary) {
	if p == nil {
		return
	}
	section(b, "Profile")
	if p.RiskLevel != "" {
		line(b, "risk level: "+string(p.RiskLevel))
	}
	if p.SleepQuality != "" {
		line(b, "sleep quality: "+p.SleepQuality)
	}
	if len(p.Challenges) > 0 {
		line(b, "challenges: "+strings.Join(p.Challenges, ", "))
	}
	if len(p.Motivations) > 0 {
		line(b, "motivations: "+strings.Join(p.Motivations, ", "))
	}
}

func writeValueCompass(b *strings.Builder, v *models.ValueCompass) {
	if v == nil {
		return
	}
	if len(v.CoreValues) == 0 && len(v.AntiValues) == 0 && v.Narrative == "" {
		return
	}
	section(b, "Values")
	if len(v.CoreValues) > 0 {
		line(b, "moves toward: "+strings.Join(v.CoreValues, ", "))
	}
	if len(v.AntiValues) > 0 {
		line(b, "moves away from: "+strings.Join(v.AntiValues, ", "))
	}
	if v.Narrative != "" {
		line(b, v.Narrative)
	}
}

func writePreferences(b *strings.Builder, p *models.AIPreferences) {
	if p == nil {
		return
	}
	if p.Tone == "" && p.ResponseLength == "" && len(p.AvoidTopics) == 0 {
		return
	}
	section(b, "Response preferences")
	if p.Tone != "" {
		line(b, "tone: "+p.Tone)
	}
	if p.ResponseLength != "" {
		line(b, "length: "+p.ResponseLength)
	}
	if len(p.AvoidTopics) > 0 {
		line(b, "avoid: "+strings.Join(p.AvoidTopics, ", "))
	}
}
