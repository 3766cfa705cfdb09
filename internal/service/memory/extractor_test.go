package memory

import (
	"testing"

	"github.com/sandevgo/nimbus/internal/core"
)

func TestExtract(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name         string
		message      string
		resolvedCity string
		units        string
		wantTypes    map[string]string
	}{
		{
			name:         "resolved city becomes preference",
			message:      "what's the weather like",
			resolvedCity: "Chennai",
			units:        core.UnitsMetric,
			wantTypes:    map[string]string{core.FactCityPreference: "Chennai"},
		},
		{
			name:      "imperial units remembered",
			message:   "weather please",
			units:     core.UnitsImperial,
			wantTypes: map[string]string{core.FactWeatherPreference: "prefers imperial units"},
		},
		{
			name:      "activity marker",
			message:   "Is it good weather for Running tomorrow?",
			units:     core.UnitsMetric,
			wantTypes: map[string]string{core.FactActivityInterest: "running"},
		},
		{
			name:      "schedule marker",
			message:   "I jog every morning, how cold is it?",
			units:     core.UnitsMetric,
			wantTypes: map[string]string{core.FactSchedulePattern: "every morning"},
		},
		{
			name:      "nothing to extract",
			message:   "hello",
			units:     core.UnitsMetric,
			wantTypes: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := e.Extract("u1", tt.message, tt.resolvedCity, tt.units)

			got := map[string]string{}
			for _, f := range facts {
				got[f.Type] = f.Value
				if f.UserID != "u1" {
					t.Errorf("fact %q has user %q", f.Value, f.UserID)
				}
				if f.Importance <= 0 || f.Importance > 1 {
					t.Errorf("fact %q has importance %v outside (0,1]", f.Value, f.Importance)
				}
			}

			if len(got) != len(tt.wantTypes) {
				t.Fatalf("got %d fact types %v, want %d", len(got), got, len(tt.wantTypes))
			}
			for factType, value := range tt.wantTypes {
				if got[factType] != value {
					t.Errorf("type %s = %q, want %q", factType, got[factType], value)
				}
			}
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor()

	a := e.Extract("u1", "beach walk every weekend in Goa", "Goa", core.UnitsImperial)
	b := e.Extract("u1", "beach walk every weekend in Goa", "Goa", core.UnitsImperial)

	if len(a) != len(b) {
		t.Fatalf("extraction not deterministic: %d vs %d facts", len(a), len(b))
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Value != b[i].Value || a[i].Importance != b[i].Importance {
			t.Errorf("fact %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
