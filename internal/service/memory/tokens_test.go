package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/nimbus/internal/core"
)

func makeTurns(contents ...string) []core.Turn {
	turns := make([]core.Turn, 0, len(contents))
	base := time.Now().UTC().Add(-time.Hour)
	for i, content := range contents {
		turns = append(turns, core.Turn{
			Role:      core.RoleUser,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return turns
}

func TestTrimToBudget_KeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	c := NewTokenCounter()

	long := strings.Repeat("weather in chennai today ", 50)
	turns := makeTurns(long, long, "latest question")

	got := c.TrimToBudget(ctx, turns, 30)
	if len(got) == 0 {
		t.Fatal("most recent turn must survive trimming")
	}
	if got[len(got)-1].Content != "latest question" {
		t.Errorf("last turn = %q, want the newest one", got[len(got)-1].Content)
	}
	if len(got) == len(turns) {
		t.Errorf("expected oldest turns dropped, kept all %d", len(got))
	}
}

func TestTrimToBudget_NoBudgetKeepsAll(t *testing.T) {
	ctx := context.Background()
	c := NewTokenCounter()

	turns := makeTurns("one", "two", "three")
	if got := c.TrimToBudget(ctx, turns, 0); len(got) != 3 {
		t.Errorf("budget 0 should disable trimming, got %d turns", len(got))
	}
}

func TestTrimToBudget_FitsWhole(t *testing.T) {
	ctx := context.Background()
	c := NewTokenCounter()

	turns := makeTurns("short", "also short")
	if got := c.TrimToBudget(ctx, turns, 10_000); len(got) != 2 {
		t.Errorf("whole window fits, got %d turns", len(got))
	}
}

func TestCount_Positive(t *testing.T) {
	c := NewTokenCounter()
	if got := c.Count(context.Background(), "what's the weather in Chennai?"); got <= 0 {
		t.Errorf("Count() = %d, want > 0", got)
	}
}
