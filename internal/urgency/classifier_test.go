package urgency

import (
	"encoding/json"
	"testing"
)

func allAnswers(v bool) AnswerSet {
	out := make(AnswerSet)
	for _, q := range Questions() {
		out[q.ID] = v
	}
	return out
}

func TestQuestions_Fixed(t *testing.T) {
	t.Parallel()

	qs := Questions()
	if len(qs) != 8 {
		t.Fatalf("len(Questions()) = %d, want 8", len(qs))
	}

	wantWeights := []int{3, 2, 4, 3, 2, 3, 4, 2}
	seen := make(map[int]bool)
	for i, q := range qs {
		if q.Weight != wantWeights[i] {
			t.Errorf("question %d weight = %d, want %d", q.ID, q.Weight, wantWeights[i])
		}
		if seen[q.ID] {
			t.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = true
	}
	if MaxScore() != 23 {
		t.Errorf("MaxScore() = %d, want 23", MaxScore())
	}
}

func TestQuestions_ReturnsCopy(t *testing.T) {
	t.Parallel()

	qs := Questions()
	qs[0].Weight = 100
	if Questions()[0].Weight != 3 {
		t.Error("mutating the returned slice changed the question set")
	}
}

func TestClassify_AllFalseIsLow(t *testing.T) {
	t.Parallel()

	answers := allAnswers(false)
	if got := Score(answers); got != 0 {
		t.Errorf("Score = %d, want 0", got)
	}
	if got := Classify(answers); got != Low {
		t.Errorf("Classify = %v, want %v", got, Low)
	}
}

func TestClassify_AllTrueIsUrgent(t *testing.T) {
	t.Parallel()

	answers := allAnswers(true)
	if got := Score(answers); got != 23 {
		t.Errorf("Score = %d, want 23", got)
	}
	if got := Classify(answers); got != Urgent {
		t.Errorf("Classify = %v, want %v", got, Urgent)
	}
}

func TestTierForScore_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  Tier
	}{
		{0, Low},
		{3, Low},
		{4, Medium},
		{7, Medium},
		{8, High},
		{11, High},
		{12, Urgent},
		{23, Urgent},
		{1000, Urgent},
	}

	for _, tt := range tests {
		if got := TierForScore(tt.score); got != tt.want {
			t.Errorf("TierForScore(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestClassify_Example(t *testing.T) {
	t.Parallel()

	// gum bleeding (3) + tooth pain (4), sensitivity explicitly no
	answers := allAnswers(false)
	answers[1] = true
	answers[2] = false
	answers[3] = true

	if got := Score(answers); got != 7 {
		t.Errorf("Score = %d, want 7", got)
	}
	if got := Classify(answers); got != Medium {
		t.Errorf("Classify = %v, want %v", got, Medium)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	t.Parallel()

	qs := Questions()
	// every subset of the 8 questions
	for mask := 0; mask < 1<<len(qs); mask++ {
		answers := make(AnswerSet)
		for i, q := range qs {
			answers[q.ID] = mask&(1<<i) != 0
		}
		base := Classify(answers)

		for i, q := range qs {
			if answers[q.ID] {
				continue
			}
			flipped := make(AnswerSet, len(answers))
			for k, v := range answers {
				flipped[k] = v
			}
			flipped[q.ID] = true
			if got := Classify(flipped); got < base {
				t.Fatalf("mask %08b: flipping question %d (bit %d) lowered tier %v -> %v", mask, q.ID, i, base, got)
			}
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	answers := AnswerSet{3: true, 7: true, 5: true}
	first := Classify(answers)
	second := Classify(answers)
	if first != second {
		t.Errorf("Classify not idempotent: %v then %v", first, second)
	}
	if len(answers) != 3 {
		t.Error("Classify mutated its input")
	}
}

func TestScore_IgnoresUnknownIDs(t *testing.T) {
	t.Parallel()

	if got := Score(AnswerSet{99: true, -1: true}); got != 0 {
		t.Errorf("Score with unknown ids = %d, want 0", got)
	}
}

func TestTier_InfoAndNames(t *testing.T) {
	t.Parallel()

	for _, info := range Tiers() {
		if info.Title == "" || info.Recommendation == "" || info.Description == "" {
			t.Errorf("tier %v has empty display text", info.Tier)
		}
		if len(info.Tips) != 3 {
			t.Errorf("tier %v tips = %d, want 3", info.Tier, len(info.Tips))
		}
		parsed, err := ParseTier(info.Tier.String())
		if err != nil {
			t.Fatalf("ParseTier(%q): %v", info.Tier.String(), err)
		}
		if parsed != info.Tier {
			t.Errorf("ParseTier(%q) = %v, want %v", info.Tier.String(), parsed, info.Tier)
		}
	}

	if _, err := ParseTier("critical"); err == nil {
		t.Error("expected error for unknown tier name")
	}
}

func TestTier_InfoTipsAreCopied(t *testing.T) {
	t.Parallel()

	info := Urgent.Info()
	info.Tips[0] = "changed"
	if Urgent.Info().Tips[0] == "changed" {
		t.Error("Info returned shared tips slice")
	}
}

func TestTier_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		T Tier `json:"t"`
	}{High})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"t":"high"}` {
		t.Errorf("json = %s, want %s", b, `{"t":"high"}`)
	}

	var out struct {
		T Tier `json:"t"`
	}
	if err := json.Unmarshal([]byte(`{"t":"urgent"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.T != Urgent {
		t.Errorf("decoded tier = %v, want %v", out.T, Urgent)
	}
	if err := json.Unmarshal([]byte(`{"t":"nope"}`), &out); err == nil {
		t.Error("expected error decoding unknown tier")
	}
}
