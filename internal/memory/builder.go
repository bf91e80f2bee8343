// Package memory assembles the per-user therapeutic context for one model
// turn: a cache-aside aggregator over ~20 memory domains and a pure
// formatter that renders the assembled context for the system prompt.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/contextcache"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/store"
)

// Aggregator defaults.
const (
	DefaultReadTimeout        = 2 * time.Second
	DefaultMaxConcurrentReads = 8
)

// Opts holds configuration options for the builder.
type Opts struct {
	ReadTimeout        time.Duration
	MaxConcurrentReads int
}

// Option defines a configuration option for the builder.
type Option func(*Opts)

// WithReadTimeout bounds each domain read.
func WithReadTimeout(d time.Duration) Option {
	return func(o *Opts) {
		if d > 0 {
			o.ReadTimeout = d
		}
	}
}

// WithMaxConcurrentReads bounds the fan-out width.
func WithMaxConcurrentReads(n int) Option {
	return func(o *Opts) {
		if n > 0 {
			o.MaxConcurrentReads = n
		}
	}
}

// Builder assembles memory contexts, cache-aside over the context store.
type Builder struct {
	store store.MemoryStore
	cache contextcache.Cache
	opts  Opts
}

// NewBuilder creates a context builder over the given store and cache.
func NewBuilder(st store.MemoryStore, cache contextcache.Cache, opts ...Option) *Builder {
	cfg := Opts{ReadTimeout: DefaultReadTimeout, MaxConcurrentReads: DefaultMaxConcurrentReads}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Builder{store: st, cache: cache, opts: cfg}
}

// Invalidate drops the cached snapshot for a user. Called after memory
// writes so the next turn sees fresh data.
func (b *Builder) Invalidate(ctx context.Context, userID string) {
	if err := b.cache.Delete(ctx, userID); err != nil {
		slog.Warn("Builder.Invalidate: cache delete failed", "error", err, "userID", userID)
	}
}

// BuildContext returns the assembled memory context for a user and whether
// it was served from cache. A fresh build fans out over all memory domains
// concurrently; any single domain read that fails degrades to its empty
// value rather than failing the build. Validation failure of the assembled
// context is fatal. The caller-supplied current flags are always applied,
// cached or not.
func (b *Builder) BuildContext(ctx context.Context, userID string, current models.CurrentContext, forceRefresh bool) (*models.MemoryContext, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("user id is required")
	}

	if !forceRefresh {
		if cached, found := b.cache.Get(ctx, userID); found {
			cached.CurrentContext = current
			slog.Debug("Builder.BuildContext: cache hit", "userID", userID)
			return cached, true, nil
		}
	}
	slog.Debug("Builder.BuildContext: building fresh context", "userID", userID, "force_refresh", forceRefresh)

	mc := &models.MemoryContext{
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
	}

	var g errgroup.Group
	g.SetLimit(b.opts.MaxConcurrentReads)

	b.read(&g, ctx, userID, "profile_summary", func(rctx context.Context) error {
		p, err := b.store.GetProfileSummary(rctx, userID)
		mc.ProfileSummary = p
		return err
	})
	b.read(&g, ctx, userID, "value_compass", func(rctx context.Context) error {
		v, err := b.store.GetValueCompass(rctx, userID)
		mc.ValueCompass = v
		return err
	})
	b.read(&g, ctx, userID, "ai_preferences", func(rctx context.Context) error {
		p, err := b.store.GetAIPreferences(rctx, userID)
		mc.AIPreferences = p
		return err
	})
	b.read(&g, ctx, userID, "inner_parts", func(rctx context.Context) error {
		v, err := b.store.ListInnerParts(rctx, userID, models.MaxInnerParts)
		mc.InnerParts = v
		return err
	})
	b.read(&g, ctx, userID, "insights", func(rctx context.Context) error {
		v, err := b.store.ListInsights(rctx, userID, models.MaxInsights)
		mc.Insights = v
		return err
	})
	b.read(&g, ctx, userID, "emotional_trends", func(rctx context.Context) error {
		v, err := b.store.ListEmotionalTrends(rctx, userID, models.MaxEmotionalTrend)
		mc.EmotionalTrends = v
		return err
	})
	b.read(&g, ctx, userID, "recent_sessions", func(rctx context.Context) error {
		v, err := b.store.ListRecentSessions(rctx, userID, models.MaxRecentSessions)
		mc.RecentSessions = v
		return err
	})
	b.read(&g, ctx, userID, "goals", func(rctx context.Context) error {
		v, err := b.store.ListGoals(rctx, userID, models.MaxSectionItems)
		mc.Goals = v
		return err
	})
	b.read(&g, ctx, userID, "themes", func(rctx context.Context) error {
		v, err := b.store.ListThemes(rctx, userID, models.MaxSectionItems)
		mc.Themes = v
		return err
	})
	b.read(&g, ctx, userID, "coping_tools", func(rctx context.Context) error {
		v, err := b.store.ListCopingTools(rctx, userID, models.MaxSectionItems)
		mc.CopingTools = v
		return err
	})
	b.read(&g, ctx, userID, "mantras", func(rctx context.Context) error {
		v, err := b.store.ListMantras(rctx, userID, models.MaxSectionItems)
		mc.Mantras = v
		return err
	})
	b.read(&g, ctx, userID, "relationships", func(rctx context.Context) error {
		v, err := b.store.ListRelationships(rctx, userID, models.MaxSectionItems)
		mc.Relationships = v
		return err
	})
	b.read(&g, ctx, userID, "milestones", func(rctx context.Context) error {
		v, err := b.store.ListMilestones(rctx, userID, models.MaxSectionItems)
		mc.Milestones = v
		return err
	})
	b.read(&g, ctx, userID, "journal_entries", func(rctx context.Context) error {
		v, err := b.store.ListJournalEntries(rctx, userID, models.MaxSectionItems)
		mc.JournalEntries = v
		return err
	})
	b.read(&g, ctx, userID, "shadow_themes", func(rctx context.Context) error {
		v, err := b.store.ListShadowThemes(rctx, userID, models.MaxSectionItems)
		mc.ShadowThemes = v
		return err
	})
	b.read(&g, ctx, userID, "pattern_loops", func(rctx context.Context) error {
		v, err := b.store.ListPatternLoops(rctx, userID, models.MaxSectionItems)
		mc.PatternLoops = v
		return err
	})
	b.read(&g, ctx, userID, "regulation_strategies", func(rctx context.Context) error {
		v, err := b.store.ListRegulationStrategies(rctx, userID, models.MaxSectionItems)
		mc.RegulationStrategies = v
		return err
	})
	b.read(&g, ctx, userID, "dysregulating_factors", func(rctx context.Context) error {
		v, err := b.store.ListDysregulatingFactors(rctx, userID, models.MaxSectionItems)
		mc.DysregulatingFactors = v
		return err
	})
	b.read(&g, ctx, userID, "strengths", func(rctx context.Context) error {
		v, err := b.store.ListStrengths(rctx, userID, models.MaxSectionItems)
		mc.Strengths = v
		return err
	})
	b.read(&g, ctx, userID, "support_system", func(rctx context.Context) error {
		v, err := b.store.ListSupportSystem(rctx, userID, models.MaxSectionItems)
		mc.SupportSystem = v
		return err
	})
	b.read(&g, ctx, userID, "daily_practices", func(rctx context.Context) error {
		v, err := b.store.ListDailyPractices(rctx, userID, models.MaxSectionItems)
		mc.DailyPractices = v
		return err
	})
	b.read(&g, ctx, userID, "habit_streaks", func(rctx context.Context) error {
		v, err := b.store.ListHabitStreaks(rctx, userID, models.MaxSectionItems)
		mc.HabitStreaks = v
		return err
	})

	// read closures never propagate errors, so Wait cannot fail.
	_ = g.Wait()

	mc.CurrentContext = current
	mc.Normalize()

	if err := mc.Validate(); err != nil {
		slog.Error("Builder.BuildContext: assembled context failed validation", "error", err, "userID", userID)
		return nil, false, fmt.Errorf("assembled context for %s is invalid: %w", userID, err)
	}

	if err := b.cache.Set(ctx, userID, mc); err != nil {
		// Cache write failure degrades to uncached behavior.
		slog.Warn("Builder.BuildContext: cache write failed", "error", err, "userID", userID)
	}
	return mc, false, nil
}

// read schedules one degradable domain read. A failed or timed-out read
// leaves the target field at its empty value and never fails the group.
func (b *Builder) read(g *errgroup.Group, ctx context.Context, userID, domain string, assign func(context.Context) error) {
	g.Go(func() error {
		rctx, cancel := context.WithTimeout(ctx, b.opts.ReadTimeout)
		defer cancel()
		if err := assign(rctx); err != nil {
			slog.Warn("Builder.BuildContext: domain read degraded", "domain", domain, "error", err, "userID", userID)
		}
		return nil
	})
}
