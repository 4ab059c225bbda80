package urgency

import (
	"encoding/json"
	"fmt"
)

// Tier is an ordered urgency category. Higher values are more urgent.
type Tier int

const (
	Low Tier = iota
	Medium
	High
	Urgent
)

// Score thresholds, evaluated highest first.
const (
	UrgentThreshold = 12
	HighThreshold   = 8
	MediumThreshold = 4
)

// TierInfo is the static display content attached to a tier.
type TierInfo struct {
	Tier           Tier     `json:"tier"`
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Color          string   `json:"color"`
	Icon           string   `json:"icon"`
	Tips           []string `json:"tips"`
}

var tierInfo = map[Tier]TierInfo{
	Low: {
		Tier:           Low,
		Title:          "Routine visit",
		Subtitle:       "Book within 3 months",
		Description:    "Your condition is stable and does not need urgent care. We recommend a periodic check-up for prevention.",
		Recommendation: "Book a routine appointment within 3 months",
		Color:          "#4CAF50",
		Icon:           "✅",
		Tips: []string{
			"Keep up your daily brushing",
			"Use dental floss",
			"Avoid excess sugar",
		},
	},
	Medium: {
		Tier:           Medium,
		Title:          "Book within two weeks",
		Subtitle:       "Symptoms that need follow-up",
		Description:    "Some of your symptoms need a clinical check. We recommend booking within two weeks.",
		Recommendation: "Book an appointment within two weeks",
		Color:          "#FF9800",
		Icon:           "⚠️",
		Tips: []string{
			"Avoid hard foods",
			"Use an antiseptic mouthwash",
			"Keep an eye on how the symptoms develop",
		},
	},
	High: {
		Tier:           High,
		Title:          "Book within a week",
		Subtitle:       "Symptoms that need prompt care",
		Description:    "Your symptoms need prompt medical attention. We recommend booking within a week.",
		Recommendation: "Book an appointment within a week",
		Color:          "#FF5722",
		Icon:           "🚨",
		Tips: []string{
			"Avoid very hot and very cold food",
			"Take a painkiller if needed",
			"Do not postpone the visit",
		},
	},
	Urgent: {
		Tier:           Urgent,
		Title:          "Book now",
		Subtitle:       "Emergency",
		Description:    "Your symptoms need immediate intervention. We recommend booking as soon as possible.",
		Recommendation: "Book an emergency appointment today",
		Color:          "#F44336",
		Icon:           "🆘",
		Tips: []string{
			"Call the clinic right away",
			"Avoid eating entirely if the pain is severe",
			"Use cold compresses for swelling",
		},
	},
}

// Tiers returns the display content of every tier, lowest first.
func Tiers() []TierInfo {
	out := make([]TierInfo, 0, len(tierInfo))
	for t := Low; t <= Urgent; t++ {
		out = append(out, t.Info())
	}
	return out
}

// Info returns the static display content of the tier.
func (t Tier) Info() TierInfo {
	info, ok := tierInfo[t]
	if !ok {
		return TierInfo{Tier: t}
	}
	info.Tips = append([]string(nil), info.Tips...)
	return info
}

// String returns the lower-case tier name used in storage and JSON.
func (t Tier) String() string {
	switch t {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Urgent:
		return "urgent"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier is the inverse of Tier.String.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	case "urgent":
		return Urgent, nil
	}
	return Low, fmt.Errorf("unknown urgency tier %q", s)
}

// MarshalJSON encodes the tier by name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a tier name.
func (t *Tier) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
