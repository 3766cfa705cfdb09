// Package persona applies a fixed named style profile to final answer text.
// It never changes reasoning or control flow; unknown personas fall back to
// the default instead of failing the request.
package persona

import "strings"

const DefaultID = "professional"

type Persona struct {
	ID     string
	Name   string
	Prefix string
	Suffix string
}

var personas = map[string]Persona{
	"professional": {
		ID:   "professional",
		Name: "Professional Forecaster",
	},
	"friendly": {
		ID:     "friendly",
		Name:   "Friendly Guide",
		Prefix: "Hey there! ",
		Suffix: " Hope that helps!",
	},
	"analyst": {
		ID:     "analyst",
		Name:   "Data Analyst",
		Prefix: "Analysis: ",
	},
	"teacher": {
		ID:     "teacher",
		Name:   "Patient Teacher",
		Prefix: "Let's look at this together: ",
		Suffix: " Notice how the numbers tell the story.",
	},
	"safety": {
		ID:     "safety",
		Name:   "Safety Advisor",
		Prefix: "Safety first: ",
		Suffix: " Check official alerts before heading out.",
	},
}

// Resolve returns the persona for the id, or the default for unknown ids.
func Resolve(id string) Persona {
	if p, ok := personas[strings.ToLower(strings.TrimSpace(id))]; ok {
		return p
	}
	return personas[DefaultID]
}

// IDs lists the closed persona set.
func IDs() []string {
	return []string{"professional", "friendly", "analyst", "teacher", "safety"}
}

// Adapt styles the answer text for the persona and response style. Pure
// function: same inputs, same output.
func Adapt(text, personaID, style string) string {
	payload := strings.TrimSpace(text)
	if payload == "" {
		return payload
	}

	if style == "brief" {
		payload = clipFirstSentence(payload)
	}

	p := Resolve(personaID)
	if p.Prefix != "" {
		payload = p.Prefix + payload
	}
	if p.Suffix != "" && style != "brief" {
		payload = strings.TrimRight(payload, " ") + p.Suffix
	}

	return payload
}

// clipFirstSentence cuts at the first sentence terminator, skipping decimal
// points like "21.5".
func clipFirstSentence(text string) string {
	for i, ch := range text {
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if ch == '.' && i > 0 && i+1 < len(text) && isDigit(text[i-1]) && isDigit(text[i+1]) {
			continue
		}
		clipped := strings.TrimSpace(text[:i+1])
		if clipped != "" {
			return clipped
		}
	}
	return text
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
