package memory

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sandevgo/nimbus/internal/core"
)

// Ranking combines importance with a bounded recency bonus and query overlap.
// The recency bonus decays exponentially with a 24h half-life and is capped at
// maxRecencyBonus, so a much higher-importance old fact cannot be inverted by
// recency alone.
const (
	recencyHalfLife = 24 * time.Hour
	maxRecencyBonus = 0.25
	overlapWeight   = 0.2
	maxOverlapBonus = 0.6
)

func rank(facts []core.Fact, query string, now time.Time, topK int) []core.Fact {
	queryTokens := tokenize(query)

	type scored struct {
		fact  core.Fact
		score float64
	}

	ranked := make([]scored, 0, len(facts))
	for _, f := range facts {
		ranked = append(ranked, scored{fact: f, score: score(f, queryTokens, now)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].fact.LastUsedAt.After(ranked[j].fact.LastUsedAt)
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	selected := make([]core.Fact, 0, len(ranked))
	for _, s := range ranked {
		selected = append(selected, s.fact)
	}
	return selected
}

func score(f core.Fact, queryTokens map[string]struct{}, now time.Time) float64 {
	total := f.Importance

	age := now.Sub(f.LastUsedAt)
	if age < 0 {
		age = 0
	}
	total += maxRecencyBonus * math.Exp2(-float64(age)/float64(recencyHalfLife))

	if len(queryTokens) > 0 {
		overlap := 0
		for token := range tokenize(f.Value) {
			if _, ok := queryTokens[token]; ok {
				overlap++
			}
		}
		bonus := overlapWeight * float64(overlap)
		if bonus > maxOverlapBonus {
			bonus = maxOverlapBonus
		}
		total += bonus
	}

	total += typeBoost(f.Type)
	return total
}

// typeBoost nudges fact types by how often they decide a weather answer.
func typeBoost(factType string) float64 {
	switch factType {
	case core.FactCityPreference:
		return 0.2
	case core.FactWeatherPreference:
		return 0.1
	case core.FactActivityInterest:
		return 0.05
	default:
		return 0
	}
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(word) >= 3 {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}
