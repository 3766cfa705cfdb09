package core

import (
	"encoding/json"
	"time"
)

const (
	NimbusName      = "Nimbus"
	NimbusUserAgent = "Nimbus-Agent/0.1"
	NimbusVersion   = "0.1.0"

	DefaultUserID = "guest"
)

// NormalizeUserID strips a raw user identifier down to a safe key. Empty or
// fully-invalid input maps to the guest user.
func NormalizeUserID(raw string) string {
	cleaned := make([]rune, 0, len(raw))
	for _, ch := range raw {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			cleaned = append(cleaned, ch)
		case ch == '-', ch == '_', ch == '.', ch == ':':
			cleaned = append(cleaned, ch)
		}
		if len(cleaned) >= 64 {
			break
		}
	}
	if len(cleaned) == 0 {
		return DefaultUserID
	}
	return string(cleaned)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Turn is one entry in a conversation. Immutable once appended.
type Turn struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolArgs  json.RawMessage `json:"tool_args,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Fact is a single typed, weighted unit of durable knowledge about a user.
// Keyed by (user_id, memory_type, normalized value); upserts never lower
// importance and always refresh last_used_at.
type Fact struct {
	ID         int64     `json:"id,omitempty"`
	UserID     string    `json:"user_id"`
	Type       string    `json:"memory_type"`
	Value      string    `json:"value"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Well-known fact types. The column is free text, these are the ones the
// extractor emits.
const (
	FactCityPreference    = "city_preference"
	FactActivityInterest  = "activity_interest"
	FactSchedulePattern   = "schedule_pattern"
	FactWeatherPreference = "weather_preference"
)

// Profile is the derived per-user view aggregated from facts and past
// requests. It is cached in storage but recomputable; absent users get
// defaults rather than an error.
type Profile struct {
	UserID        string    `json:"user_id"`
	PersonaID     string    `json:"persona_id"`
	PreferredCity string    `json:"preferred_city,omitempty"`
	Units         string    `json:"units"`
	ResponseStyle string    `json:"response_style"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"

	StyleBrief    = "brief"
	StyleBalanced = "balanced"
	StyleDetailed = "detailed"
)

// DefaultProfile is what GetProfile returns for an unknown user.
func DefaultProfile(userID string) Profile {
	return Profile{
		UserID:        userID,
		PersonaID:     "professional",
		Units:         UnitsMetric,
		ResponseStyle: StyleBrief,
	}
}

// NormalizeUnits coerces arbitrary input to a supported unit system.
func NormalizeUnits(units string) string {
	if units == UnitsImperial {
		return UnitsImperial
	}
	return UnitsMetric
}

// NormalizeStyle coerces arbitrary input to a supported response style.
func NormalizeStyle(style string) string {
	switch style {
	case StyleBalanced, StyleDetailed:
		return style
	default:
		return StyleBrief
	}
}
