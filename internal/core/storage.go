package core

import (
	"context"
	"time"
)

type FactsRepository interface {
	// UpsertFacts commits all facts in one transaction. Conflicting keys keep
	// max(existing, new) importance and refresh last_used_at.
	UpsertFacts(ctx context.Context, userID string, facts []Fact) error
	ListFacts(ctx context.Context, userID string, limit int) ([]Fact, error)
	TouchFacts(ctx context.Context, ids []int64, usedAt time.Time) error
	DeleteFacts(ctx context.Context, userID string) (int64, error)
}

type HistoryRepository interface {
	AppendTurn(ctx context.Context, userID string, turn Turn) error
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
	DeleteHistory(ctx context.Context, userID string) (int64, error)
}

type ProfilesRepository interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, profile Profile) error
	ClearPreferredCity(ctx context.Context, userID string) error
	DeleteProfile(ctx context.Context, userID string) (int64, error)
}
