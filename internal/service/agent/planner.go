package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/internal/service/tools"
)

// planner is the deterministic fallback: it inspects the latest user message
// for a weather intent and a city entity and proposes tool calls without any
// model. It also drives the whole run when no driver is configured.
type planner struct {
	message    string
	city       string
	citySource string // "message", "hint", "memory"
	memoryCity string
	forecast   bool
	days       int

	triedMemoryCity bool
	askedForCity    bool
}

var cityInTextPattern = regexp.MustCompile(`(?i)\b(?:in|at|for)\s+([A-Za-z][A-Za-z\s.'-]{1,80})`)

var trailingNoisePattern = regexp.MustCompile(`(?i)\b(?:today|tonight|tomorrow|now|please|currently|right now)\b.*$`)

var forecastMarkers = []string{
	"forecast", "future", "upcoming", "tomorrow", "hourly", "daily",
	"weekend", "this week", "next week", "next few days", "coming days",
}

var nonCityWords = map[string]struct{}{
	"what": {}, "how": {}, "can": {}, "could": {}, "would": {}, "should": {},
	"tell": {}, "show": {}, "help": {}, "me": {}, "you": {}, "is": {}, "are": {},
	"the": {}, "weather": {}, "temperature": {}, "humidity": {}, "wind": {},
	"forecast": {}, "today": {}, "tomorrow": {}, "hourly": {}, "daily": {},
	"weekend": {}, "storm": {}, "alert": {}, "chance": {}, "rain": {},
	"there": {}, "be": {}, "will": {},
}

func newPlanner(message, cityHint, memoryCity string) *planner {
	p := &planner{
		message:    message,
		memoryCity: memoryCity,
		forecast:   hasForecastIntent(message),
		days:       3,
	}

	switch {
	case cityHint != "":
		p.city = cityHint
		p.citySource = "hint"
	default:
		if inferred := inferCityFromText(message); inferred != "" {
			p.city = inferred
			p.citySource = "message"
		} else if memoryCity != "" {
			p.city = memoryCity
			p.citySource = "memory"
			p.triedMemoryCity = true
		}
	}

	return p
}

// nextAction proposes the next step. It returns a tool call while a city is
// known, and an ask-for-city final answer otherwise.
func (p *planner) nextAction() core.Action {
	if p.city == "" {
		p.askedForCity = true
		return core.FinalAnswerAction("Which city would you like the weather for?")
	}

	tool := tools.ToolCurrentWeather
	args := map[string]any{"city": p.city}
	if p.forecast {
		tool = tools.ToolForecast
		args["days"] = p.days
	}

	raw, _ := json.Marshal(args)
	return core.ToolCallAction(tool, raw)
}

// observe updates planner state after a failed observation so the next
// planning iteration can self-correct.
func (p *planner) observe(obs core.Observation) {
	if obs.OK() {
		return
	}

	switch obs.FailKind {
	case core.FailNotFound:
		// Wrong city. Fall back to the remembered city once, otherwise give up
		// on this run's city entirely.
		if !p.triedMemoryCity && p.memoryCity != "" && !strings.EqualFold(p.memoryCity, p.city) {
			p.city = p.memoryCity
			p.citySource = "memory"
			p.triedMemoryCity = true
			return
		}
		p.city = ""
	default:
		// Transient upstream trouble: keep the same plan, the step budget
		// bounds the retries.
	}
}

// noteArgumentError reacts to a rejected tool call (typically one the driver
// proposed) by making sure the next deterministic plan carries a city.
func (p *planner) noteArgumentError() {
	if p.city == "" && p.memoryCity != "" {
		p.city = p.memoryCity
		p.citySource = "memory"
		p.triedMemoryCity = true
	}
}

func hasForecastIntent(message string) bool {
	lowered := strings.ToLower(message)
	for _, marker := range forecastMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// inferCityFromText extracts a likely city entity from free text. Empty when
// nothing city-like is present.
func inferCityFromText(text string) string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ""
	}

	if match := cityInTextPattern.FindStringSubmatch(raw); match != nil {
		if candidate := sanitizeCityCandidate(match[1]); candidate != "" {
			return candidate
		}
	}

	// A bare "Chennai" style message: short, alphabetic, no question words.
	candidate := sanitizeCityCandidate(raw)
	words := strings.Fields(strings.ToLower(candidate))
	if len(words) == 0 || len(words) > 4 {
		return ""
	}
	for _, word := range words {
		if _, bad := nonCityWords[strings.Trim(word, ".'-")]; bad {
			return ""
		}
		for _, ch := range word {
			if !isCityRune(ch) {
				return ""
			}
		}
	}
	return candidate
}

func sanitizeCityCandidate(candidate string) string {
	value := strings.Trim(candidate, "`\"' \n\t")
	if i := strings.IndexAny(value, "?!;,"); i >= 0 {
		value = value[:i]
	}
	value = trailingNoisePattern.ReplaceAllString(value, "")
	value = strings.Join(strings.Fields(value), " ")
	return strings.Trim(value, "`\"' ")
}

func isCityRune(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		return true
	case ch == ' ', ch == '.', ch == '\'', ch == '-':
		return true
	}
	return false
}

// describePlan is used for debug logging only.
func (p *planner) describePlan() string {
	if p.city == "" {
		return "no city"
	}
	kind := "current"
	if p.forecast {
		kind = "forecast"
	}
	return fmt.Sprintf("%s for %s (%s)", kind, p.city, p.citySource)
}
