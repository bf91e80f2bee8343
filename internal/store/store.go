// Package store provides storage backends for Aluuna's user memory.
//
// Each memory domain (goals, insights, emotional trends, ...) is exposed as
// an independent read scoped by user id; the aggregator treats every read as
// independently failable. Backends: in-memory (tests/dev), SQLite, Postgres.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option defines a configuration option for stores.
type Option func(*Opts)

// WithPostgresDSN sets the Postgres connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// MemoryStore is the per-domain data boundary used by the aggregator and the
// tool handlers. No transactional consistency is assumed across domains.
type MemoryStore interface {
	GetProfileSummary(ctx context.Context, userID string) (*models.ProfileSummary, error)
	GetValueCompass(ctx context.Context, userID string) (*models.ValueCompass, error)
	GetAIPreferences(ctx context.Context, userID string) (*models.AIPreferences, error)

	ListInnerParts(ctx context.Context, userID string, limit int) ([]models.InnerPart, error)
	ListInsights(ctx context.Context, userID string, limit int) ([]models.Insight, error)
	ListEmotionalTrends(ctx context.Context, userID string, limit int) ([]models.EmotionalTrend, error)
	ListRecentSessions(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error)
	ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error)
	ListThemes(ctx context.Context, userID string, limit int) ([]models.Theme, error)
	ListCopingTools(ctx context.Context, userID string, limit int) ([]models.CopingTool, error)
	ListMantras(ctx context.Context, userID string, limit int) ([]models.Mantra, error)
	ListRelationships(ctx context.Context, userID string, limit int) ([]models.Relationship, error)
	ListMilestones(ctx context.Context, userID string, limit int) ([]models.Milestone, error)
	ListJournalEntries(ctx context.Context, userID string, limit int) ([]models.JournalEntry, error)
	ListShadowThemes(ctx context.Context, userID string, limit int) ([]models.ShadowTheme, error)
	ListPatternLoops(ctx context.Context, userID string, limit int) ([]models.PatternLoop, error)
	ListRegulationStrategies(ctx context.Context, userID string, limit int) ([]models.RegulationStrategy, error)
	ListDysregulatingFactors(ctx context.Context, userID string, limit int) ([]models.DysregulatingFactor, error)
	ListStrengths(ctx context.Context, userID string, limit int) ([]models.Strength, error)
	ListSupportSystem(ctx context.Context, userID string, limit int) ([]models.SupportContact, error)
	ListDailyPractices(ctx context.Context, userID string, limit int) ([]models.DailyPractice, error)
	ListHabitStreaks(ctx context.Context, userID string, limit int) ([]models.HabitStreak, error)

	AddGoal(ctx context.Context, g models.Goal) error
	AddInsight(ctx context.Context, i models.Insight) error
	AddCopingTool(ctx context.Context, c models.CopingTool) error
	AddEmotionalTrend(ctx context.Context, e models.EmotionalTrend) error
	AddMantra(ctx context.Context, m models.Mantra) error
	AddRelationship(ctx context.Context, r models.Relationship) error
	AddMilestone(ctx context.Context, m models.Milestone) error
	UpsertProfileSummary(ctx context.Context, p models.ProfileSummary) error
	AddSessionSummary(ctx context.Context, s models.SessionSummary) error

	Ping(ctx context.Context) error
}

// InMemoryStore keeps all memory domains in process memory. Used for tests
// and development runs without a database.
type InMemoryStore struct {
	mu sync.RWMutex

	profiles     map[string]models.ProfileSummary
	compasses    map[string]models.ValueCompass
	preferences  map[string]models.AIPreferences
	innerParts   map[string][]models.InnerPart
	insights     map[string][]models.Insight
	trends       map[string][]models.EmotionalTrend
	sessions     map[string][]models.SessionSummary
	goals        map[string][]models.Goal
	themes       map[string][]models.Theme
	copingTools  map[string][]models.CopingTool
	mantras      map[string][]models.Mantra
	relations    map[string][]models.Relationship
	milestones   map[string][]models.Milestone
	journal      map[string][]models.JournalEntry
	shadowThemes map[string][]models.ShadowTheme
	patternLoops map[string][]models.PatternLoop
	regulation   map[string][]models.RegulationStrategy
	dysreg       map[string][]models.DysregulatingFactor
	strengths    map[string][]models.Strength
	support      map[string][]models.SupportContact
	practices    map[string][]models.DailyPractice
	streaks      map[string][]models.HabitStreak
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles:     make(map[string]models.ProfileSummary),
		compasses:    make(map[string]models.ValueCompass),
		preferences:  make(map[string]models.AIPreferences),
		innerParts:   make(map[string][]models.InnerPart),
		insights:     make(map[string][]models.Insight),
		trends:       make(map[string][]models.EmotionalTrend),
		sessions:     make(map[string][]models.SessionSummary),
		goals:        make(map[string][]models.Goal),
		themes:       make(map[string][]models.Theme),
		copingTools:  make(map[string][]models.CopingTool),
		mantras:      make(map[string][]models.Mantra),
		relations:    make(map[string][]models.Relationship),
		milestones:   make(map[string][]models.Milestone),
		journal:      make(map[string][]models.JournalEntry),
		shadowThemes: make(map[string][]models.ShadowTheme),
		patternLoops: make(map[string][]models.PatternLoop),
		regulation:   make(map[string][]models.RegulationStrategy),
		dysreg:       make(map[string][]models.DysregulatingFactor),
		strengths:    make(map[string][]models.Strength),
		support:      make(map[string][]models.SupportContact),
		practices:    make(map[string][]models.DailyPractice),
		streaks:      make(map[string][]models.HabitStreak),
	}
}

// head returns at most limit items from s. Items are stored newest-first.
func head[T any](s []T, limit int) []T {
	if limit <= 0 || limit > len(s) {
		limit = len(s)
	}
	out := make([]T, limit)
	copy(out, s[:limit])
	return out
}

func (s *InMemoryStore) GetProfileSummary(ctx context.Context, userID string) (*models.ProfileSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *InMemoryStore) GetValueCompass(ctx context.Context, userID string) (*models.ValueCompass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.compasses[userID]; ok {
		return &v, nil
	}
	return nil, nil
}

func (s *InMemoryStore) GetAIPreferences(ctx context.Context, userID string) (*models.AIPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.preferences[userID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *InMemoryStore) ListInnerParts(ctx context.Context, userID string, limit int) ([]models.InnerPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.innerParts[userID], limit), nil
}

func (s *InMemoryStore) ListInsights(ctx context.Context, userID string, limit int) ([]models.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.insights[userID], limit), nil
}

func (s *InMemoryStore) ListEmotionalTrends(ctx context.Context, userID string, limit int) ([]models.EmotionalTrend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.trends[userID], limit), nil
}

func (s *InMemoryStore) ListRecentSessions(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.sessions[userID], limit), nil
}

func (s *InMemoryStore) ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.goals[userID], limit), nil
}

func (s *InMemoryStore) ListThemes(ctx context.Context, userID string, limit int) ([]models.Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.themes[userID], limit), nil
}

func (s *InMemoryStore) ListCopingTools(ctx context.Context, userID string, limit int) ([]models.CopingTool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.copingTools[userID], limit), nil
}

func (s *InMemoryStore) ListMantras(ctx context.Context, userID string, limit int) ([]models.Mantra, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.mantras[userID], limit), nil
}

func (s *InMemoryStore) ListRelationships(ctx context.Context, userID string, limit int) ([]models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.relations[userID], limit), nil
}

func (s *InMemoryStore) ListMilestones(ctx context.Context, userID string, limit int) ([]models.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.milestones[userID], limit), nil
}

func (s *InMemoryStore) ListJournalEntries(ctx context.Context, userID string, limit int) ([]models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.journal[userID], limit), nil
}

func (s *InMemoryStore) ListShadowThemes(ctx context.Context, userID string, limit int) ([]models.ShadowTheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.shadowThemes[userID], limit), nil
}

func (s *InMemoryStore) ListPatternLoops(ctx context.Context, userID string, limit int) ([]models.PatternLoop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.patternLoops[userID], limit), nil
}

func (s *InMemoryStore) ListRegulationStrategies(ctx context.Context, userID string, limit int) ([]models.RegulationStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.regulation[userID], limit), nil
}

func (s *InMemoryStore) ListDysregulatingFactors(ctx context.Context, userID string, limit int) ([]models.DysregulatingFactor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.dysreg[userID], limit), nil
}

func (s *InMemoryStore) ListStrengths(ctx context.Context, userID string, limit int) ([]models.Strength, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.strengths[userID], limit), nil
}

func (s *InMemoryStore) ListSupportSystem(ctx context.Context, userID string, limit int) ([]models.SupportContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.support[userID], limit), nil
}

func (s *InMemoryStore) ListDailyPractices(ctx context.Context, userID string, limit int) ([]models.DailyPractice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.practices[userID], limit), nil
}

func (s *InMemoryStore) ListHabitStreaks(ctx context.Context, userID string, limit int) ([]models.HabitStreak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.streaks[userID], limit), nil
}

func (s *InMemoryStore) AddGoal(ctx context.Context, g models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.UserID] = prepend(s.goals[g.UserID], g)
	return nil
}

func (s *InMemoryStore) AddInsight(ctx context.Context, i models.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights[i.UserID] = prepend(s.insights[i.UserID], i)
	return nil
}

func (s *InMemoryStore) AddCopingTool(ctx context.Context, c models.CopingTool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copingTools[c.UserID] = prepend(s.copingTools[c.UserID], c)
	return nil
}

func (s *InMemoryStore) AddEmotionalTrend(ctx context.Context, e models.EmotionalTrend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trends[e.UserID] = prepend(s.trends[e.UserID], e)
	return nil
}

func (s *InMemoryStore) AddMantra(ctx context.Context, m models.Mantra) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mantras[m.UserID] = prepend(s.mantras[m.UserID], m)
	return nil
}

func (s *InMemoryStore) AddRelationship(ctx context.Context, r models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[r.UserID] = prepend(s.relations[r.UserID], r)
	return nil
}

func (s *InMemoryStore) AddMilestone(ctx context.Context, m models.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.milestones[m.UserID] = prepend(s.milestones[m.UserID], m)
	return nil
}

func (s *InMemoryStore) UpsertProfileSummary(ctx context.Context, p models.ProfileSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *InMemoryStore) AddSessionSummary(ctx context.Context, sum models.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sum.UserID] = prepend(s.sessions[sum.UserID], sum)
	return nil
}

func (s *InMemoryStore) Ping(ctx context.Context) error { return nil }

// prepend inserts item at the head so lists stay newest-first.
func prepend[T any](s []T, item T) []T {
	return append([]T{item}, s...)
}

// Seed helpers for tests and dev fixtures.

// SeedTheme inserts a theme record directly.
func (s *InMemoryStore) SeedTheme(t models.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes[t.UserID] = prepend(s.themes[t.UserID], t)
}

// SeedInnerPart inserts an inner part record directly.
func (s *InMemoryStore) SeedInnerPart(p models.InnerPart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.innerParts[p.UserID] = prepend(s.innerParts[p.UserID], p)
}

// SeedJournalEntry inserts a journal entry directly.
func (s *InMemoryStore) SeedJournalEntry(e models.JournalEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[e.UserID] = prepend(s.journal[e.UserID], e)
	sort.SliceStable(s.journal[e.UserID], func(i, j int) bool {
		return s.journal[e.UserID][i].CreatedAt.After(s.journal[e.UserID][j].CreatedAt)
	})
}

// SeedHabitStreak inserts a habit streak directly.
func (s *InMemoryStore) SeedHabitStreak(h models.HabitStreak) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[h.UserID] = prepend(s.streaks[h.UserID], h)
}

// SeedValueCompass sets the value compass record directly.
func (s *InMemoryStore) SeedValueCompass(v models.ValueCompass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compasses[v.UserID] = v
}

// SeedAIPreferences sets the preferences record directly.
func (s *InMemoryStore) SeedAIPreferences(p models.AIPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[p.UserID] = p
}

var _ MemoryStore = (*InMemoryStore)(nil)
