package analysis

// Finding is one observation in a report.
type Finding struct {
	Name           string `json:"name"`
	Severity       string `json:"severity"`
	Level          string `json:"level,omitempty"`
	Confidence     int    `json:"confidence"`
	Description    string `json:"description,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// TipGroup is a titled list of care tips.
type TipGroup struct {
	Category string   `json:"category"`
	Tips     []string `json:"tips"`
}

// ProductPick is a product suggested by a skin report.
type ProductPick struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
}

// Routine is a daily skincare routine.
type Routine struct {
	Morning []string `json:"morning"`
	Evening []string `json:"evening"`
}

// Report is the result shown once a job completes. It is the same for
// every photo of a given kind.
type Report struct {
	Kind           Kind          `json:"kind"`
	Overall        string        `json:"overall"`
	Score          int           `json:"score"`
	SkinType       string        `json:"skin_type,omitempty"`
	Findings       []Finding     `json:"findings"`
	HealthyAspects []string      `json:"healthy_aspects,omitempty"`
	Tips           []TipGroup    `json:"tips,omitempty"`
	Products       []ProductPick `json:"products,omitempty"`
	Routine        *Routine      `json:"routine,omitempty"`
}

// Step is one progress stage of a running job.
type Step struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

var oralSteps = []Step{
	{Text: "Checking image quality...", Icon: "📸"},
	{Text: "Scanning for plaque buildup...", Icon: "🔍"},
	{Text: "Evaluating gum health...", Icon: "🩸"},
	{Text: "Looking for cavities...", Icon: "🦷"},
	{Text: "Building personalized recommendations...", Icon: "💡"},
	{Text: "Analysis complete!", Icon: "✅"},
}

var skinSteps = []Step{
	{Text: "Analyzing your skin...", Icon: "✨"},
}

const productImage = "https://images.pexels.com/photos/3685523/pexels-photo-3685523.jpeg?auto=compress&cs=tinysrgb&w=400"

// OralReport returns the canned oral health report.
func OralReport() *Report {
	return &Report{
		Kind:    KindOral,
		Overall: "good",
		Score:   82,
		Findings: []Finding{
			{
				Name:           "Plaque buildup",
				Severity:       "low",
				Confidence:     85,
				Description:    "Slight plaque buildup on the back teeth.",
				Recommendation: "Use a soft toothbrush with a fluoride toothpaste.",
			},
			{
				Name:           "Gum redness",
				Severity:       "medium",
				Confidence:     78,
				Description:    "Mild gum redness that may indicate early inflammation.",
				Recommendation: "Use an antiseptic mouthwash and consult your dentist.",
			},
			{
				Name:           "Possible cavity",
				Severity:       "low",
				Confidence:     65,
				Description:    "Dark spots that may indicate an early cavity.",
				Recommendation: "Book a routine check-up with your dentist to confirm.",
			},
		},
		HealthyAspects: []string{
			"Natural tooth color",
			"No visible swelling",
			"Good tooth alignment",
		},
		Tips: []TipGroup{
			{Category: "Daily cleaning", Tips: []string{
				"Brush twice a day for two minutes",
				"Floss at least once a day",
				"Use a fluoride mouthwash",
			}},
			{Category: "Nutrition", Tips: []string{
				"Cut down on sugar and fizzy drinks",
				"Eat calcium-rich foods such as milk and cheese",
				"Drink plenty of water to rinse your mouth naturally",
			}},
			{Category: "Healthy habits", Tips: []string{
				"Avoid biting nails or pens",
				"Don't use your teeth to open things",
				"Book a check-up every 6 months",
			}},
		},
	}
}

// SkinReport returns the canned skin report.
func SkinReport() *Report {
	return &Report{
		Kind:     KindSkin,
		Overall:  "good",
		Score:    78,
		SkinType: "combination",
		Findings: []Finding{
			{Name: "Acne", Level: "mild", Severity: "low", Confidence: 85},
			{Name: "Pigmentation", Level: "moderate", Severity: "medium", Confidence: 78},
			{Name: "Fine lines", Level: "early signs", Severity: "low", Confidence: 72},
			{Name: "Enlarged pores", Level: "visible", Severity: "medium", Confidence: 80},
		},
		Products: []ProductPick{
			{ID: 1, Title: "Vitamin C serum", Description: "Fights pigmentation and evens skin tone", Price: 89, Category: "Antioxidants", Image: productImage},
			{ID: 2, Title: "Salicylic acid cream", Description: "Clears pores and reduces acne", Price: 65, Category: "Acne treatment", Image: productImage},
			{ID: 3, Title: "Retinol serum", Description: "Boosts cell renewal and softens fine lines", Price: 120, Category: "Anti-aging", Image: productImage},
		},
		Routine: &Routine{
			Morning: []string{
				"Gentle cleanser",
				"Hydrating toner",
				"Vitamin C serum",
				"Light moisturizer",
				"Sunscreen SPF 30+",
			},
			Evening: []string{
				"Deep cleanser",
				"Exfoliating toner (3 times a week)",
				"Retinol serum (gradually)",
				"Night moisturizer",
				"Eye cream",
			},
		},
	}
}

func reportFor(k Kind) *Report {
	if k == KindSkin {
		return SkinReport()
	}
	return OralReport()
}

func stepsFor(k Kind) []Step {
	if k == KindSkin {
		return skinSteps
	}
	return oralSteps
}
