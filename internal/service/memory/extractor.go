package memory

import (
	"strings"
	"time"

	"github.com/sandevgo/nimbus/internal/core"
)

// Extractor derives memory facts from a finished run: the resolved city, unit
// preferences, and activity or schedule hints found in the user's message.
// It is deterministic so memory writes never depend on driver availability.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

var activityMarkers = []string{
	"running", "jogging", "cycling", "hiking", "walking", "picnic",
	"beach", "gardening", "surfing", "camping", "fishing", "golf",
}

var scheduleMarkers = []string{
	"every morning", "every evening", "every day", "each morning",
	"on weekends", "every weekend", "my commute", "before work", "after work",
}

// Extract builds the fact set to persist after a run. resolvedCity may be
// empty when no tool call succeeded.
func (e *Extractor) Extract(userID, message, resolvedCity, units string) []core.Fact {
	now := time.Now().UTC()
	lowered := strings.ToLower(message)

	var facts []core.Fact

	if resolvedCity != "" {
		facts = append(facts, core.Fact{
			UserID:     userID,
			Type:       core.FactCityPreference,
			Value:      resolvedCity,
			Importance: 0.6,
			CreatedAt:  now,
			LastUsedAt: now,
		})
	}

	if units == core.UnitsImperial {
		facts = append(facts, core.Fact{
			UserID:     userID,
			Type:       core.FactWeatherPreference,
			Value:      "prefers imperial units",
			Importance: 0.4,
			CreatedAt:  now,
			LastUsedAt: now,
		})
	}

	for _, marker := range activityMarkers {
		if strings.Contains(lowered, marker) {
			facts = append(facts, core.Fact{
				UserID:     userID,
				Type:       core.FactActivityInterest,
				Value:      marker,
				Importance: 0.5,
				CreatedAt:  now,
				LastUsedAt: now,
			})
		}
	}

	for _, marker := range scheduleMarkers {
		if strings.Contains(lowered, marker) {
			facts = append(facts, core.Fact{
				UserID:     userID,
				Type:       core.FactSchedulePattern,
				Value:      marker,
				Importance: 0.45,
				CreatedAt:  now,
				LastUsedAt: now,
			})
		}
	}

	return facts
}
