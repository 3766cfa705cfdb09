package memory

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/pkg/log"
)

// TokenCounter measures turn content in LLM tokens so the consulted context
// window is bounded by budget, not just by turn count. When the encoding
// cannot be loaded (offline environments) it falls back to a bytes/4
// estimate.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

func (c *TokenCounter) Count(ctx context.Context, text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("tiktoken unavailable, estimating token counts")
			return
		}
		c.encoding = enc
	})

	if c.encoding == nil {
		return len(text)/4 + 1
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// TrimToBudget drops the oldest turns until the window fits the token budget.
// The most recent turn is always kept.
func (c *TokenCounter) TrimToBudget(ctx context.Context, turns []core.Turn, budget int) []core.Turn {
	if budget <= 0 || len(turns) == 0 {
		return turns
	}

	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		total += c.Count(ctx, turns[i].Content)
		if total > budget && start < len(turns) {
			break
		}
		start = i
	}

	return turns[start:]
}
