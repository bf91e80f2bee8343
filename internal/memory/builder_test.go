package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/contextcache"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/store"
)

// failingStore wraps the in-memory store and fails selected domains.
type failingStore struct {
	*store.InMemoryStore
	failInsights bool
	failGoals    bool
	badProfile   bool
	calls        int
}

func (s *failingStore) ListInsights(ctx context.Context, userID string, limit int) ([]models.Insight, error) {
	if s.failInsights {
		return nil, errors.New("insights table unavailable")
	}
	return s.InMemoryStore.ListInsights(ctx, userID, limit)
}

func (s *failingStore) ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error) {
	s.calls++
	if s.failGoals {
		return nil, errors.New("goals table unavailable")
	}
	return s.InMemoryStore.ListGoals(ctx, userID, limit)
}

func (s *failingStore) GetProfileSummary(ctx context.Context, userID string) (*models.ProfileSummary, error) {
	if s.badProfile {
		return &models.ProfileSummary{UserID: "someone-else"}, nil
	}
	return s.InMemoryStore.GetProfileSummary(ctx, userID)
}

// downStore fails every operation, as when the database is unreachable.
type downStore struct{ err error }

func (s *downStore) GetProfileSummary(ctx context.Context, userID string) (*models.ProfileSummary, error) {
	return nil, s.err
}
func (s *downStore) GetValueCompass(ctx context.Context, userID string) (*models.ValueCompass, error) {
	return nil, s.err
}
func (s *downStore) GetAIPreferences(ctx context.Context, userID string) (*models.AIPreferences, error) {
	return nil, s.err
}
func (s *downStore) ListInnerParts(ctx context.Context, userID string, limit int) ([]models.InnerPart, error) {
	return nil, s.err
}
func (s *downStore) ListInsights(ctx context.Context, userID string, limit int) ([]models.Insight, error) {
	return nil, s.err
}
func (s *downStore) ListEmotionalTrends(ctx context.Context, userID string, limit int) ([]models.EmotionalTrend, error) {
	return nil, s.err
}
func (s *downStore) ListRecentSessions(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	return nil, s.err
}
func (s *downStore) ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error) {
	return nil, s.err
}
func (s *downStore) ListThemes(ctx context.Context, userID string, limit int) ([]models.Theme, error) {
	return nil, s.err
}
func (s *downStore) ListCopingTools(ctx context.Context, userID string, limit int) ([]models.CopingTool, error) {
	return nil, s.err
}
func (s *downStore) ListMantras(ctx context.Context, userID string, limit int) ([]models.Mantra, error) {
	return nil, s.err
}
func (s *downStore) ListRelationships(ctx context.Context, userID string, limit int) ([]models.Relationship, error) {
	return nil, s.err
}
func (s *downStore) ListMilestones(ctx context.Context, userID string, limit int) ([]models.Milestone, error) {
	return nil, s.err
}
func (s *downStore) ListJournalEntries(ctx context.Context, userID string, limit int) ([]models.JournalEntry, error) {
	return nil, s.err
}
func (s *downStore) ListShadowThemes(ctx context.Context, userID string, limit int) ([]models.ShadowTheme, error) {
	return nil, s.err
}
func (s *downStore) ListPatternLoops(ctx context.Context, userID string, limit int) ([]models.PatternLoop, error) {
	return nil, s.err
}
func (s *downStore) ListRegulationStrategies(ctx context.Context, userID string, limit int) ([]models.RegulationStrategy, error) {
	return nil, s.err
}
func (s *downStore) ListDysregulatingFactors(ctx context.Context, userID string, limit int) ([]models.DysregulatingFactor, error) {
	return nil, s.err
}
func (s *downStore) ListStrengths(ctx context.Context, userID string, limit int) ([]models.Strength, error) {
	return nil, s.err
}
func (s *downStore) ListSupportSystem(ctx context.Context, userID string, limit int) ([]models.SupportContact, error) {
	return nil, s.err
}
func (s *downStore) ListDailyPractices(ctx context.Context, userID string, limit int) ([]models.DailyPractice, error) {
	return nil, s.err
}
func (s *downStore) ListHabitStreaks(ctx context.Context, userID string, limit int) ([]models.HabitStreak, error) {
	return nil, s.err
}
func (s *downStore) AddGoal(ctx context.Context, g models.Goal) error                 { return s.err }
func (s *downStore) AddInsight(ctx context.Context, i models.Insight) error           { return s.err }
func (s *downStore) AddCopingTool(ctx context.Context, c models.CopingTool) error     { return s.err }
func (s *downStore) AddEmotionalTrend(ctx context.Context, e models.EmotionalTrend) error {
	return s.err
}
func (s *downStore) AddMantra(ctx context.Context, m models.Mantra) error             { return s.err }
func (s *downStore) AddRelationship(ctx context.Context, r models.Relationship) error { return s.err }
func (s *downStore) AddMilestone(ctx context.Context, m models.Milestone) error       { return s.err }
func (s *downStore) UpsertProfileSummary(ctx context.Context, p models.ProfileSummary) error {
	return s.err
}
func (s *downStore) AddSessionSummary(ctx context.Context, sm models.SessionSummary) error {
	return s.err
}
func (s *downStore) Ping(ctx context.Context) error { return s.err }

func seedStore(t *testing.T, s store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	if err := s.AddGoal(ctx, models.Goal{ID: "g1", UserID: "user-123", Title: "rest more", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	if err := s.AddInsight(ctx, models.Insight{ID: "i1", UserID: "user-123", Text: "avoidance spikes before deadlines", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed insight: %v", err)
	}
	if err := s.AddEmotionalTrend(ctx, models.EmotionalTrend{ID: "e1", UserID: "user-123", Mood: "anxious", Intensity: 6, RecordedAt: time.Now()}); err != nil {
		t.Fatalf("seed trend: %v", err)
	}
}

func TestBuildContextDegradesFailedDomains(t *testing.T) {
	fs := &failingStore{InMemoryStore: store.NewInMemoryStore(), failInsights: true}
	seedStore(t, fs)
	b := NewBuilder(fs, contextcache.NewMemoryCache())

	mc, cacheHit, err := b.BuildContext(context.Background(), "user-123", models.CurrentContext{}, false)
	if err != nil {
		t.Fatalf("expected degraded build to succeed, got %v", err)
	}
	if cacheHit {
		t.Error("expected fresh build, got cache hit")
	}
	// The failed domain degrades to empty; the rest are populated.
	if len(mc.Insights) != 0 {
		t.Errorf("expected empty insights after degraded read, got %d", len(mc.Insights))
	}
	if mc.Insights == nil {
		t.Error("degraded list must be empty, not nil")
	}
	if len(mc.Goals) != 1 {
		t.Errorf("expected goals to survive a sibling failure, got %d", len(mc.Goals))
	}
	if len(mc.EmotionalTrends) != 1 {
		t.Errorf("expected trends to survive a sibling failure, got %d", len(mc.EmotionalTrends))
	}
}

func TestBuildContextSurvivesTotalStoreOutage(t *testing.T) {
	ds := &downStore{err: errors.New("connection refused")}
	b := NewBuilder(ds, contextcache.NewMemoryCache())

	mc, cacheHit, err := b.BuildContext(context.Background(), "user-123", models.CurrentContext{}, false)
	if err != nil {
		t.Fatalf("expected build to survive a total outage, got %v", err)
	}
	if cacheHit {
		t.Error("expected fresh build, got cache hit")
	}
	if mc.UserID != "user-123" {
		t.Errorf("unexpected user id: %s", mc.UserID)
	}
	if err := mc.Validate(); err != nil {
		t.Errorf("fully degraded context must still validate: %v", err)
	}
	// Core lists degrade to empty, never nil.
	if mc.InnerParts == nil || mc.Insights == nil || mc.EmotionalTrends == nil || mc.RecentSessions == nil {
		t.Error("core lists must be empty, not nil")
	}
	if len(mc.Insights) != 0 || len(mc.Goals) != 0 || len(mc.EmotionalTrends) != 0 {
		t.Error("expected every domain to be empty after a total outage")
	}
	if mc.ProfileSummary != nil || mc.ValueCompass != nil || mc.AIPreferences != nil {
		t.Error("optional sections must be absent after a total outage")
	}
}

func TestBuildContextCacheRoundTrip(t *testing.T) {
	fs := &failingStore{InMemoryStore: store.NewInMemoryStore()}
	seedStore(t, fs)
	b := NewBuilder(fs, contextcache.NewMemoryCache())
	ctx := context.Background()

	first, hit, err := b.BuildContext(ctx, "user-123", models.CurrentContext{}, false)
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	if hit {
		t.Error("first build should miss the cache")
	}

	second, hit, err := b.BuildContext(ctx, "user-123", models.CurrentContext{Crisis: true}, false)
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}
	if !hit {
		t.Error("second build should hit the cache")
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Error("cache hit should return the stored snapshot")
	}
	// Per-turn flags are applied even on a hit.
	if !second.CurrentContext.Crisis {
		t.Error("current context flags must override the cached snapshot")
	}
}

func TestBuildContextForceRefreshBypassesCache(t *testing.T) {
	fs := &failingStore{InMemoryStore: store.NewInMemoryStore()}
	seedStore(t, fs)
	b := NewBuilder(fs, contextcache.NewMemoryCache())
	ctx := context.Background()

	if _, _, err := b.BuildContext(ctx, "user-123", models.CurrentContext{}, false); err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	callsBefore := fs.calls

	_, hit, err := b.BuildContext(ctx, "user-123", models.CurrentContext{}, true)
	if err != nil {
		t.Fatalf("force refresh failed: %v", err)
	}
	if hit {
		t.Error("force refresh must not report a cache hit")
	}
	if fs.calls <= callsBefore {
		t.Error("force refresh must re-read the store")
	}
}

func TestBuildContextValidationIsFatal(t *testing.T) {
	fs := &failingStore{InMemoryStore: store.NewInMemoryStore(), badProfile: true}
	b := NewBuilder(fs, contextcache.NewMemoryCache())

	_, _, err := b.BuildContext(context.Background(), "user-123", models.CurrentContext{}, false)
	if err == nil {
		t.Fatal("expected validation failure to be fatal")
	}
}

func TestBuildContextRequiresUserID(t *testing.T) {
	b := NewBuilder(store.NewInMemoryStore(), contextcache.NewMemoryCache())
	if _, _, err := b.BuildContext(context.Background(), "", models.CurrentContext{}, false); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	fs := &failingStore{InMemoryStore: store.NewInMemoryStore()}
	seedStore(t, fs)
	b := NewBuilder(fs, contextcache.NewMemoryCache())
	ctx := context.Background()

	if _, _, err := b.BuildContext(ctx, "user-123", models.CurrentContext{}, false); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	b.Invalidate(ctx, "user-123")

	_, hit, err := b.BuildContext(ctx, "user-123", models.CurrentContext{}, false)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if hit {
		t.Error("expected cache miss after invalidation")
	}
}
