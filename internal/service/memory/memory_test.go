package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *sqlite.FactsRepo) {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	facts := sqlite.NewFactsRepo(db)
	cfg := &config.AppConfig{
		MemoryTopK:         3,
		ContextWindowTurns: 4,
		ContextTokenBudget: 10_000,
	}

	return NewService(cfg, facts, sqlite.NewHistoryRepo(db), sqlite.NewProfilesRepo(db)), facts
}

func fact(factType, value string, importance float64) core.Fact {
	now := time.Now().UTC()
	return core.Fact{
		Type:       factType,
		Value:      value,
		Importance: importance,
		CreatedAt:  now,
		LastUsedAt: now,
	}
}

func TestWriteFacts_ImportanceNeverDrops(t *testing.T) {
	svc, facts := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.WriteFacts(ctx, "u1", []core.Fact{fact(core.FactCityPreference, "Chennai", 0.8)}))
	// Re-learning the same fact with lower weight must not weaken it.
	require.NoError(t, svc.WriteFacts(ctx, "u1", []core.Fact{fact(core.FactCityPreference, "chennai", 0.3)}))

	stored, err := facts.ListFacts(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1, "same normalized value must upsert, not duplicate")
	assert.Equal(t, 0.8, stored[0].Importance)
}

func TestWriteFacts_HigherImportanceWins(t *testing.T) {
	svc, facts := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.WriteFacts(ctx, "u1", []core.Fact{fact(core.FactActivityInterest, "hiking", 0.3)}))
	require.NoError(t, svc.WriteFacts(ctx, "u1", []core.Fact{fact(core.FactActivityInterest, "hiking", 0.7)}))

	stored, err := facts.ListFacts(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 0.7, stored[0].Importance)
}

func TestWriteFacts_RefreshesLastUsed(t *testing.T) {
	svc, facts := newTestService(t)
	ctx := context.Background()

	old := fact(core.FactCityPreference, "Goa", 0.6)
	old.LastUsedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, svc.WriteFacts(ctx, "u1", []core.Fact{old}))

	require.NoError(t, svc.WriteFacts(ctx, "u1", []core.Fact{fact(core.FactCityPreference, "Goa", 0.6)}))

	stored, err := facts.ListFacts(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.WithinDuration(t, time.Now().UTC(), stored[0].LastUsedAt, time.Minute)
}

func TestGetRelevantMemories_TopKBound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var toWrite []core.Fact
	for _, activity := range []string{"hiking", "cycling", "surfing", "camping", "fishing"} {
		toWrite = append(toWrite, fact(core.FactActivityInterest, activity, 0.5))
	}
	require.NoError(t, svc.WriteFacts(ctx, "u1", toWrite))

	got := svc.GetRelevantMemories(ctx, "u1", "weather for the weekend")
	assert.Len(t, got, 3, "topK is 3 in the test config")
}

func TestGetRelevantMemories_UnknownUserIsEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Empty(t, svc.GetRelevantMemories(context.Background(), "nobody", "weather"))
}

func TestRecentHistory_ChronologicalWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three", "four", "five", "six"} {
		require.NoError(t, svc.AppendHistory(ctx, "u1", core.Turn{Role: core.RoleUser, Content: content}))
	}

	got := svc.RecentHistory(ctx, "u1")
	require.Len(t, got, 4, "window is 4 turns in the test config")
	assert.Equal(t, "three", got[0].Content)
	assert.Equal(t, "six", got[3].Content)
}

func TestAppendHistory_SkipsEmptyContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendHistory(ctx, "u1", core.Turn{Role: core.RoleAssistant}))
	assert.Empty(t, svc.RecentHistory(ctx, "u1"))
}

func TestGetProfile_DefaultsForUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	got := svc.GetProfile(context.Background(), "stranger")
	assert.Equal(t, "stranger", got.UserID)
	assert.Equal(t, core.UnitsMetric, got.Units)
	assert.Equal(t, "professional", got.PersonaID)
}

func TestProfile_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertProfile(ctx, core.Profile{
		UserID:        "u1",
		PersonaID:     "friendly",
		PreferredCity: "Chennai",
		Units:         core.UnitsImperial,
		ResponseStyle: core.StyleDetailed,
	}))

	got := svc.GetProfile(ctx, "u1")
	assert.Equal(t, "friendly", got.PersonaID)
	assert.Equal(t, "Chennai", got.PreferredCity)
	assert.Equal(t, core.UnitsImperial, got.Units)
	assert.Equal(t, core.StyleDetailed, got.ResponseStyle)
}

func TestClear_RemovesFactsAndHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.WriteFacts(ctx, "u1", []core.Fact{
		fact(core.FactCityPreference, "Chennai", 0.6),
		fact(core.FactActivityInterest, "hiking", 0.5),
	}))
	require.NoError(t, svc.AppendHistory(ctx, "u1", core.Turn{Role: core.RoleUser, Content: "hello"}))
	require.NoError(t, svc.UpsertProfile(ctx, core.Profile{UserID: "u1", PersonaID: "friendly", PreferredCity: "Chennai"}))

	result, err := svc.Clear(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.FactsDeleted)
	assert.Equal(t, int64(1), result.HistoryDeleted)
	assert.Equal(t, int64(0), result.ProfileDeleted, "profile row survives without the flag")

	// Preferred city is reset even when the profile row stays.
	got := svc.GetProfile(ctx, "u1")
	assert.Empty(t, got.PreferredCity)
	assert.Equal(t, "friendly", got.PersonaID)
}

func TestClear_WithProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertProfile(ctx, core.Profile{UserID: "u1", PersonaID: "analyst"}))

	result, err := svc.Clear(ctx, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ProfileDeleted)

	got := svc.GetProfile(ctx, "u1")
	assert.Equal(t, "professional", got.PersonaID, "cleared user falls back to defaults")
}

func TestClear_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := svc.Clear(ctx, "ghost", true)
		require.NoError(t, err, "clearing an empty user must not fail (attempt %d)", i)
		assert.Zero(t, result.FactsDeleted)
		assert.Zero(t, result.HistoryDeleted)
	}
}
