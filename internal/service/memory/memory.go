package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/pkg/log"
)

// Service is the long-term memory layer: user profiles, weighted facts and
// conversation history. Storage failures degrade: callers get defaults or
// empty context, never a failed chat response.
type Service struct {
	cfg      *config.AppConfig
	facts    core.FactsRepository
	history  core.HistoryRepository
	profiles core.ProfilesRepository
	counter  *TokenCounter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(
	cfg *config.AppConfig,
	facts core.FactsRepository,
	history core.HistoryRepository,
	profiles core.ProfilesRepository,
) *Service {
	return &Service{
		cfg:      cfg,
		facts:    facts,
		history:  history,
		profiles: profiles,
		counter:  NewTokenCounter(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// userLock serializes writes per user so concurrent requests cannot
// interleave upserts and break the monotonic-importance invariant.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// GetProfile never fails: an unknown user or a storage error yields the
// default profile.
func (s *Service) GetProfile(ctx context.Context, userID string) core.Profile {
	userID = core.NormalizeUserID(userID)

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("user", userID).Msg("profile read failed, using defaults")
		return core.DefaultProfile(userID)
	}
	if profile == nil {
		return core.DefaultProfile(userID)
	}

	profile.Units = core.NormalizeUnits(profile.Units)
	profile.ResponseStyle = core.NormalizeStyle(profile.ResponseStyle)
	return *profile
}

// UpsertProfile persists the derived profile view after a run.
func (s *Service) UpsertProfile(ctx context.Context, profile core.Profile) error {
	profile.UserID = core.NormalizeUserID(profile.UserID)
	profile.Units = core.NormalizeUnits(profile.Units)
	profile.ResponseStyle = core.NormalizeStyle(profile.ResponseStyle)

	lock := s.userLock(profile.UserID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return core.MemoryStoreError("upsert profile", err)
	}
	return nil
}

// GetRelevantMemories returns the top-K facts for the query, ranked by
// importance, recency and query overlap. Returned facts get their
// last_used_at refreshed.
func (s *Service) GetRelevantMemories(ctx context.Context, userID, query string) []core.Fact {
	userID = core.NormalizeUserID(userID)
	topK := s.cfg.MemoryTopK
	if topK <= 0 {
		topK = 6
	}

	candidates, err := s.facts.ListFacts(ctx, userID, 200)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("user", userID).Msg("fact retrieval failed, proceeding memoryless")
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	selected := rank(candidates, query, time.Now().UTC(), topK)

	ids := make([]int64, 0, len(selected))
	now := time.Now().UTC()
	for i := range selected {
		if selected[i].ID != 0 {
			ids = append(ids, selected[i].ID)
			selected[i].LastUsedAt = now
		}
	}
	if err := s.facts.TouchFacts(ctx, ids, now); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to refresh fact usage timestamps")
	}

	return selected
}

// WriteFacts upserts all facts in one transaction under the per-user lock.
func (s *Service) WriteFacts(ctx context.Context, userID string, facts []core.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	userID = core.NormalizeUserID(userID)

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.facts.UpsertFacts(ctx, userID, facts); err != nil {
		return core.MemoryStoreError("write facts", err)
	}

	log.FromCtx(ctx).Debug().Int("count", len(facts)).Str("user", userID).Msg("memory facts written")
	return nil
}

// AppendHistory appends one turn to the durable conversation log.
func (s *Service) AppendHistory(ctx context.Context, userID string, turn core.Turn) error {
	if turn.Content == "" {
		return nil
	}
	userID = core.NormalizeUserID(userID)

	if err := s.history.AppendTurn(ctx, userID, turn); err != nil {
		return core.MemoryStoreError("append history", err)
	}
	return nil
}

// RecentHistory returns the context window consulted per run: the
// most-recent-N turns, additionally trimmed to the configured token budget.
func (s *Service) RecentHistory(ctx context.Context, userID string) []core.Turn {
	userID = core.NormalizeUserID(userID)

	limit := s.cfg.ContextWindowTurns
	if limit <= 0 {
		limit = 8
	}

	turns, err := s.history.RecentTurns(ctx, userID, limit)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("user", userID).Msg("history read failed, proceeding without context")
		return nil
	}

	return s.counter.TrimToBudget(ctx, turns, s.cfg.ContextTokenBudget)
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	FactsDeleted   int64 `json:"memory_facts_deleted"`
	HistoryDeleted int64 `json:"history_deleted"`
	ProfileDeleted int64 `json:"profile_deleted"`
}

// Clear deletes a user's facts and history, and optionally the profile row.
// Clearing an already-empty user is a no-op, not an error.
func (s *Service) Clear(ctx context.Context, userID string, clearProfile bool) (ClearResult, error) {
	userID = core.NormalizeUserID(userID)

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var result ClearResult
	var err error

	if result.FactsDeleted, err = s.facts.DeleteFacts(ctx, userID); err != nil {
		return result, core.MemoryStoreError("clear facts", err)
	}
	if result.HistoryDeleted, err = s.history.DeleteHistory(ctx, userID); err != nil {
		return result, core.MemoryStoreError("clear history", err)
	}

	if clearProfile {
		if result.ProfileDeleted, err = s.profiles.DeleteProfile(ctx, userID); err != nil {
			return result, core.MemoryStoreError("clear profile", err)
		}
	} else if err = s.profiles.ClearPreferredCity(ctx, userID); err != nil {
		return result, core.MemoryStoreError("clear preferred city", err)
	}

	log.FromCtx(ctx).Info().Str("user", userID).Bool("profile", clearProfile).Msg("memory cleared")
	return result, nil
}
