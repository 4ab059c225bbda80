package urgency

// AnswerSet maps question IDs to the patient's yes/no answer.
type AnswerSet map[int]bool

// Score sums the weights of every question answered yes. IDs that do not
// belong to a question are ignored.
func Score(answers AnswerSet) int {
	score := 0
	for _, q := range questions {
		if answers[q.ID] {
			score += q.Weight
		}
	}
	return score
}

// TierForScore maps a score onto its tier. It is total over all integers.
func TierForScore(score int) Tier {
	switch {
	case score >= UrgentThreshold:
		return Urgent
	case score >= HighThreshold:
		return High
	case score >= MediumThreshold:
		return Medium
	default:
		return Low
	}
}

// Classify scores a completed answer set and returns its tier.
func Classify(answers AnswerSet) Tier {
	return TierForScore(Score(answers))
}
