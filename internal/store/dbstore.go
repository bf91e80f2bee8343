package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// dbStore implements MemoryStore over database/sql. Both SQL backends share
// it; queries are written with ? placeholders and rebound for Postgres.
type dbStore struct {
	db       *sql.DB
	rebindFn func(string) string
}

func passthrough(q string) string { return q }

// rebindPostgres converts ? placeholders to $1..$n for lib/pq.
func rebindPostgres(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *dbStore) query(ctx context.Context, q string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebindFn(q), args...)
}

func (s *dbStore) queryRow(ctx context.Context, q string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebindFn(q), args...)
}

func (s *dbStore) exec(ctx context.Context, q string, args ...interface{}) error {
	_, err := s.db.ExecContext(ctx, s.rebindFn(q), args...)
	return err
}

// normalizeLimit clamps list limits to a sane positive bound for SQL LIMIT.
func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

func (s *dbStore) GetProfileSummary(ctx context.Context, userID string) (*models.ProfileSummary, error) {
	var p models.ProfileSummary
	var riskLevel, sleepQuality sql.NullString
	var challenges, motivations sql.NullString
	var updatedAt sql.NullTime
	err := s.queryRow(ctx,
		`SELECT user_id, risk_level, sleep_quality, challenges, motivations, updated_at
		 FROM profile_summaries WHERE user_id = ?`, userID).
		Scan(&p.UserID, &riskLevel, &sleepQuality, &challenges, &motivations, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("Store.GetProfileSummary: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query profile summary: %w", err)
	}
	p.RiskLevel = models.RiskLevel(riskLevel.String)
	p.SleepQuality = sleepQuality.String
	p.Challenges = decodeStringSlice(challenges)
	p.Motivations = decodeStringSlice(motivations)
	p.UpdatedAt = timeOrZero(updatedAt)
	return &p, nil
}

func (s *dbStore) GetValueCompass(ctx context.Context, userID string) (*models.ValueCompass, error) {
	var v models.ValueCompass
	var coreValues, antiValues, narrative sql.NullString
	var updatedAt sql.NullTime
	err := s.queryRow(ctx,
		`SELECT user_id, core_values, anti_values, narrative, updated_at
		 FROM value_compass WHERE user_id = ?`, userID).
		Scan(&v.UserID, &coreValues, &antiValues, &narrative, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("Store.GetValueCompass: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query value compass: %w", err)
	}
	v.CoreValues = decodeStringSlice(coreValues)
	v.AntiValues = decodeStringSlice(antiValues)
	v.Narrative = narrative.String
	v.UpdatedAt = timeOrZero(updatedAt)
	return &v, nil
}

func (s *dbStore) GetAIPreferences(ctx context.Context, userID string) (*models.AIPreferences, error) {
	var p models.AIPreferences
	var tone, responseLength, avoidTopics sql.NullString
	var updatedAt sql.NullTime
	err := s.queryRow(ctx,
		`SELECT user_id, tone, response_length, avoid_topics, updated_at
		 FROM ai_preferences WHERE user_id = ?`, userID).
		Scan(&p.UserID, &tone, &responseLength, &avoidTopics, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("Store.GetAIPreferences: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query ai preferences: %w", err)
	}
	p.Tone = tone.String
	p.ResponseLength = responseLength.String
	p.AvoidTopics = decodeStringSlice(avoidTopics)
	p.UpdatedAt = timeOrZero(updatedAt)
	return &p, nil
}

func (s *dbStore) ListInnerParts(ctx context.Context, userID string, limit int) ([]models.InnerPart, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, role, tone, description, created_at
		 FROM inner_parts WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListInnerParts: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query inner parts: %w", err)
	}
	defer rows.Close()
	var out []models.InnerPart
	for rows.Next() {
		var p models.InnerPart
		var role, tone, description sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &role, &tone, &description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inner part row: %w", err)
		}
		p.Role, p.Tone, p.Description = role.String, tone.String, description.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *dbStore) ListInsights(ctx context.Context, userID string, limit int) ([]models.Insight, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, text, importance, created_at
		 FROM insights WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListInsights: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()
	var out []models.Insight
	for rows.Next() {
		var i models.Insight
		if err := rows.Scan(&i.ID, &i.UserID, &i.Text, &i.Importance, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight row: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *dbStore) ListEmotionalTrends(ctx context.Context, userID string, limit int) ([]models.EmotionalTrend, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, mood, intensity, note, recorded_at
		 FROM emotional_trends WHERE user_id = ? ORDER BY recorded_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListEmotionalTrends: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query emotional trends: %w", err)
	}
	defer rows.Close()
	var out []models.EmotionalTrend
	for rows.Next() {
		var e models.EmotionalTrend
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.Intensity, &note, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan emotional trend row: %w", err)
		}
		e.Note = note.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *dbStore) ListRecentSessions(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, summary, mode, tool_calls, created_at
		 FROM session_summaries WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListRecentSessions: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query session summaries: %w", err)
	}
	defer rows.Close()
	var out []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		var mode sql.NullString
		if err := rows.Scan(&sum.ID, &sum.UserID, &sum.Summary, &mode, &sum.ToolCalls, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session summary row: %w", err)
		}
		sum.Mode = models.ConversationMode(mode.String)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *dbStore) ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, title, status, target_date, created_at
		 FROM goals WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListGoals: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()
	var out []models.Goal
	for rows.Next() {
		var g models.Goal
		var status sql.NullString
		var targetDate sql.NullTime
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &status, &targetDate, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal row: %w", err)
		}
		g.Status = status.String
		g.TargetDate = timeOrZero(targetDate)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *dbStore) ListThemes(ctx context.Context, userID string, limit int) ([]models.Theme, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, occurrences, last_seen
		 FROM themes WHERE user_id = ? ORDER BY last_seen DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListThemes: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query themes: %w", err)
	}
	defer rows.Close()
	var out []models.Theme
	for rows.Next() {
		var t models.Theme
		var lastSeen sql.NullTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Occurrences, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan theme row: %w", err)
		}
		t.LastSeen = timeOrZero(lastSeen)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *dbStore) ListCopingTools(ctx context.Context, userID string, limit int) ([]models.CopingTool, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, effectiveness, context, created_at
		 FROM coping_tools WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListCopingTools: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query coping tools: %w", err)
	}
	defer rows.Close()
	var out []models.CopingTool
	for rows.Next() {
		var c models.CopingTool
		var contextNote sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Effectiveness, &contextNote, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coping tool row: %w", err)
		}
		c.Context = contextNote.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *dbStore) ListMantras(ctx context.Context, userID string, limit int) ([]models.Mantra, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, text, source, created_at
		 FROM mantras WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListMantras: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query mantras: %w", err)
	}
	defer rows.Close()
	var out []models.Mantra
	for rows.Next() {
		var m models.Mantra
		var source sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &m.Text, &source, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mantra row: %w", err)
		}
		m.Source = source.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *dbStore) ListRelationships(ctx context.Context, userID string, limit int) ([]models.Relationship, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, role, notes, created_at
		 FROM relationships WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListRelationships: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()
	var out []models.Relationship
	for rows.Next() {
		var r models.Relationship
		var role, notes sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &role, &notes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		r.Role, r.Notes = role.String, notes.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *dbStore) ListMilestones(ctx context.Context, userID string, limit int) ([]models.Milestone, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, title, significance, achieved_at
		 FROM milestones WHERE user_id = ? ORDER BY achieved_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListMilestones: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()
	var out []models.Milestone
	for rows.Next() {
		var m models.Milestone
		var significance sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &significance, &m.AchievedAt); err != nil {
			return nil, fmt.Errorf("failed to scan milestone row: %w", err)
		}
		m.Significance = significance.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *dbStore) ListJournalEntries(ctx context.Context, userID string, limit int) ([]models.JournalEntry, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, excerpt, mood, created_at
		 FROM journal_entries WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListJournalEntries: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()
	var out []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var mood sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Excerpt, &mood, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry row: %w", err)
		}
		e.Mood = mood.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *dbStore) ListShadowThemes(ctx context.Context, userID string, limit int) ([]models.ShadowTheme, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, evidence, created_at
		 FROM shadow_themes WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListShadowThemes: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query shadow themes: %w", err)
	}
	defer rows.Close()
	var out []models.ShadowTheme
	for rows.Next() {
		var t models.ShadowTheme
		var evidence sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &evidence, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shadow theme row: %w", err)
		}
		t.Evidence = evidence.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *dbStore) ListPatternLoops(ctx context.Context, userID string, limit int) ([]models.PatternLoop, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, trigger_text, cycle, impact, created_at
		 FROM pattern_loops WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListPatternLoops: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query pattern loops: %w", err)
	}
	defer rows.Close()
	var out []models.PatternLoop
	for rows.Next() {
		var p models.PatternLoop
		var cycle, impact sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.Trigger, &cycle, &impact, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pattern loop row: %w", err)
		}
		p.Cycle, p.Impact = cycle.String, impact.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *dbStore) ListRegulationStrategies(ctx context.Context, userID string, limit int) ([]models.RegulationStrategy, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, when_to_use, created_at
		 FROM regulation_strategies WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListRegulationStrategies: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query regulation strategies: %w", err)
	}
	defer rows.Close()
	var out []models.RegulationStrategy
	for rows.Next() {
		var r models.RegulationStrategy
		var whenToUse sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &whenToUse, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan regulation strategy row: %w", err)
		}
		r.WhenToUse = whenToUse.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *dbStore) ListDysregulatingFactors(ctx context.Context, userID string, limit int) ([]models.DysregulatingFactor, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, severity, created_at
		 FROM dysregulating_factors WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListDysregulatingFactors: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query dysregulating factors: %w", err)
	}
	defer rows.Close()
	var out []models.DysregulatingFactor
	for rows.Next() {
		var d models.DysregulatingFactor
		var severity sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &severity, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dysregulating factor row: %w", err)
		}
		d.Severity = severity.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *dbStore) ListStrengths(ctx context.Context, userID string, limit int) ([]models.Strength, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, evidence, created_at
		 FROM strengths WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListStrengths: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query strengths: %w", err)
	}
	defer rows.Close()
	var out []models.Strength
	for rows.Next() {
		var st models.Strength
		var evidence sql.NullString
		if err := rows.Scan(&st.ID, &st.UserID, &st.Name, &evidence, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strength row: %w", err)
		}
		st.Evidence = evidence.String
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *dbStore) ListSupportSystem(ctx context.Context, userID string, limit int) ([]models.SupportContact, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, relation, created_at
		 FROM support_contacts WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListSupportSystem: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query support contacts: %w", err)
	}
	defer rows.Close()
	var out []models.SupportContact
	for rows.Next() {
		var c models.SupportContact
		var relation sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &relation, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan support contact row: %w", err)
		}
		c.Relation = relation.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *dbStore) ListDailyPractices(ctx context.Context, userID string, limit int) ([]models.DailyPractice, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, name, schedule, created_at
		 FROM daily_practices WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListDailyPractices: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query daily practices: %w", err)
	}
	defer rows.Close()
	var out []models.DailyPractice
	for rows.Next() {
		var p models.DailyPractice
		var schedule sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &schedule, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily practice row: %w", err)
		}
		p.Schedule = schedule.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *dbStore) ListHabitStreaks(ctx context.Context, userID string, limit int) ([]models.HabitStreak, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, habit, current_streak, longest_streak, last_check_in
		 FROM habit_streaks WHERE user_id = ? ORDER BY last_check_in DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		slog.Error("Store.ListHabitStreaks: query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query habit streaks: %w", err)
	}
	defer rows.Close()
	var out []models.HabitStreak
	for rows.Next() {
		var h models.HabitStreak
		var lastCheckIn sql.NullTime
		if err := rows.Scan(&h.ID, &h.UserID, &h.Habit, &h.CurrentStreak, &h.LongestStreak, &lastCheckIn); err != nil {
			return nil, fmt.Errorf("failed to scan habit streak row: %w", err)
		}
		h.LastCheckIn = timeOrZero(lastCheckIn)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *dbStore) AddGoal(ctx context.Context, g models.Goal) error {
	err := s.exec(ctx,
		`INSERT INTO goals (id, user_id, title, status, target_date, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, nilIfEmpty(g.Status), nilIfZeroTime(g.TargetDate), g.CreatedAt)
	if err != nil {
		slog.Error("Store.AddGoal: insert failed", "error", err, "userID", g.UserID)
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	slog.Debug("Store.AddGoal: inserted", "userID", g.UserID, "title", g.Title)
	return nil
}

func (s *dbStore) AddInsight(ctx context.Context, i models.Insight) error {
	err := s.exec(ctx,
		`INSERT INTO insights (id, user_id, text, importance, created_at) VALUES (?, ?, ?, ?, ?)`,
		i.ID, i.UserID, i.Text, i.Importance, i.CreatedAt)
	if err != nil {
		slog.Error("Store.AddInsight: insert failed", "error", err, "userID", i.UserID)
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	slog.Debug("Store.AddInsight: inserted", "userID", i.UserID)
	return nil
}

func (s *dbStore) AddCopingTool(ctx context.Context, c models.CopingTool) error {
	err := s.exec(ctx,
		`INSERT INTO coping_tools (id, user_id, name, effectiveness, context, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Effectiveness, nilIfEmpty(c.Context), c.CreatedAt)
	if err != nil {
		slog.Error("Store.AddCopingTool: insert failed", "error", err, "userID", c.UserID)
		return fmt.Errorf("failed to insert coping tool: %w", err)
	}
	slog.Debug("Store.AddCopingTool: inserted", "userID", c.UserID, "name", c.Name)
	return nil
}

func (s *dbStore) AddEmotionalTrend(ctx context.Context, e models.EmotionalTrend) error {
	err := s.exec(ctx,
		`INSERT INTO emotional_trends (id, user_id, mood, intensity, note, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Mood, e.Intensity, nilIfEmpty(e.Note), e.RecordedAt)
	if err != nil {
		slog.Error("Store.AddEmotionalTrend: insert failed", "error", err, "userID", e.UserID)
		return fmt.Errorf("failed to insert emotional trend: %w", err)
	}
	slog.Debug("Store.AddEmotionalTrend: inserted", "userID", e.UserID, "mood", e.Mood)
	return nil
}

func (s *dbStore) AddMantra(ctx context.Context, m models.Mantra) error {
	err := s.exec(ctx,
		`INSERT INTO mantras (id, user_id, text, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Text, nilIfEmpty(m.Source), m.CreatedAt)
	if err != nil {
		slog.Error("Store.AddMantra: insert failed", "error", err, "userID", m.UserID)
		return fmt.Errorf("failed to insert mantra: %w", err)
	}
	slog.Debug("Store.AddMantra: inserted", "userID", m.UserID)
	return nil
}

func (s *dbStore) AddRelationship(ctx context.Context, r models.Relationship) error {
	err := s.exec(ctx,
		`INSERT INTO relationships (id, user_id, name, role, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Name, nilIfEmpty(r.Role), nilIfEmpty(r.Notes), r.CreatedAt)
	if err != nil {
		slog.Error("Store.AddRelationship: insert failed", "error", err, "userID", r.UserID)
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	slog.Debug("Store.AddRelationship: inserted", "userID", r.UserID, "name", r.Name)
	return nil
}

func (s *dbStore) AddMilestone(ctx context.Context, m models.Milestone) error {
	err := s.exec(ctx,
		`INSERT INTO milestones (id, user_id, title, significance, achieved_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Title, nilIfEmpty(m.Significance), m.AchievedAt)
	if err != nil {
		slog.Error("Store.AddMilestone: insert failed", "error", err, "userID", m.UserID)
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	slog.Debug("Store.AddMilestone: inserted", "userID", m.UserID, "title", m.Title)
	return nil
}

func (s *dbStore) UpsertProfileSummary(ctx context.Context, p models.ProfileSummary) error {
	err := s.exec(ctx,
		`INSERT INTO profile_summaries (user_id, risk_level, sleep_quality, challenges, motivations, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   risk_level = COALESCE(excluded.risk_level, profile_summaries.risk_level),
		   sleep_quality = COALESCE(excluded.sleep_quality, profile_summaries.sleep_quality),
		   challenges = COALESCE(excluded.challenges, profile_summaries.challenges),
		   motivations = COALESCE(excluded.motivations, profile_summaries.motivations),
		   updated_at = excluded.updated_at`,
		p.UserID, nilIfEmpty(string(p.RiskLevel)), nilIfEmpty(p.SleepQuality),
		encodeStringSlice(p.Challenges), encodeStringSlice(p.Motivations), p.UpdatedAt)
	if err != nil {
		slog.Error("Store.UpsertProfileSummary: upsert failed", "error", err, "userID", p.UserID)
		return fmt.Errorf("failed to upsert profile summary: %w", err)
	}
	slog.Debug("Store.UpsertProfileSummary: upserted", "userID", p.UserID)
	return nil
}

func (s *dbStore) AddSessionSummary(ctx context.Context, sum models.SessionSummary) error {
	err := s.exec(ctx,
		`INSERT INTO session_summaries (id, user_id, summary, mode, tool_calls, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.UserID, sum.Summary, nilIfEmpty(string(sum.Mode)), sum.ToolCalls, sum.CreatedAt)
	if err != nil {
		slog.Error("Store.AddSessionSummary: insert failed", "error", err, "userID", sum.UserID)
		return fmt.Errorf("failed to insert session summary: %w", err)
	}
	slog.Debug("Store.AddSessionSummary: inserted", "userID", sum.UserID)
	return nil
}

func (s *dbStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *dbStore) Close() error {
	return s.db.Close()
}
