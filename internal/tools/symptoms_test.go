package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestScoreSymptoms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		params    string
		wantScore int
		wantTier  string
	}{
		{"none", `{"symptom_ids":[]}`, 0, "low"},
		{"missing field", `{}`, 0, "low"},
		{"bleeding and pain", `{"symptom_ids":[1,3]}`, 7, "medium"},
		{"duplicates counted once", `{"symptom_ids":[3,3,7]}`, 8, "high"},
		{"urgent", `{"symptom_ids":[1,3,4,7]}`, 14, "urgent"},
		{"everything", `{"symptom_ids":[1,2,3,4,5,6,7,8]}`, 23, "urgent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw, err := ScoreSymptoms{}.Execute(context.Background(), json.RawMessage(tt.params))
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			var out scoreResult
			if err := json.Unmarshal(raw, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out.Score != tt.wantScore || out.Tier != tt.wantTier {
				t.Errorf("score=%d tier=%s, want %d %s", out.Score, out.Tier, tt.wantScore, tt.wantTier)
			}
			if out.MaxScore != 23 {
				t.Errorf("max_score = %d, want 23", out.MaxScore)
			}
			if out.Recommendation == "" || len(out.Tips) != 3 {
				t.Errorf("missing tier content: %+v", out)
			}
		})
	}
}

func TestScoreSymptoms_UnknownID(t *testing.T) {
	t.Parallel()

	_, err := ScoreSymptoms{}.Execute(context.Background(), json.RawMessage(`{"symptom_ids":[9]}`))
	if err == nil || !strings.Contains(err.Error(), "unknown symptom id 9") {
		t.Fatalf("err = %v, want unknown symptom id", err)
	}
}

func TestScoreSymptoms_DescriptionListsSymptoms(t *testing.T) {
	t.Parallel()

	desc := ScoreSymptoms{}.Description()
	for _, want := range []string{"1: Do your gums bleed?", "8: Do you get recurring headaches?"} {
		if !strings.Contains(desc, want) {
			t.Errorf("description missing %q", want)
		}
	}
}

func FuzzScoreSymptoms(f *testing.F) {
	f.Add(`{"symptom_ids":[1,2]}`)
	f.Add(`{"symptom_ids":[-1]}`)
	f.Add(`{"symptom_ids":"x"}`)
	f.Add(`not json`)

	f.Fuzz(func(_ *testing.T, params string) {
		// Must not panic
		_, _ = ScoreSymptoms{}.Execute(context.Background(), json.RawMessage(params))
	})
}
