package scoring

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityPositive Severity = "positive"
)

// Explanation is one human-readable note about what drives a score.
type Explanation struct {
	Factor   string   `json:"factor"`
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Explain builds the risk notes shown next to a score. The last note is
// always the overall recommendation.
func Explain(req Request, trustScore float64) []Explanation {
	var notes []Explanation
	add := func(factor string, sev Severity, text string) {
		notes = append(notes, Explanation{Factor: factor, Severity: sev, Text: text})
	}

	switch {
	case req.Rainfall < 400:
		add("rainfall", SeverityWarning, "Very low rainfall (< 400 mm) severely limits yield potential and raises seasonal default risk.")
	case req.Rainfall < 700:
		add("rainfall", SeverityWarning, "Below-average rainfall may constrain yields in drought-sensitive seasons.")
	default:
		add("rainfall", SeverityPositive, "Adequate rainfall supports stable agricultural output.")
	}

	switch {
	case req.YieldAmount < 2.0:
		add("yield_amount", SeverityWarning, "Low historical yield (< 2 t) suggests productivity problems or land degradation.")
	case req.YieldAmount >= 5.0:
		add("yield_amount", SeverityPositive, "Strong yield indicates productive land use.")
	}

	switch {
	case req.SoilScore < 40:
		add("soil_score", SeverityWarning, "Poor soil quality (score < 40) is a significant production risk.")
	case req.SoilScore >= 75:
		add("soil_score", SeverityPositive, "High soil fertility supports consistent crop cycles.")
	}

	switch {
	case req.PreviousLoans >= 5:
		add("previous_loans", SeverityWarning, "High prior loan count (>= 5) may indicate financial overextension.")
	case req.PreviousLoans == 0:
		add("previous_loans", SeverityInfo, "No prior loan history. Credit data is limited, assess collateral carefully.")
	default:
		add("previous_loans", SeverityPositive, "Prior loan exposure is within the acceptable range.")
	}

	switch {
	case req.FarmSize < 2:
		add("farm_size", SeverityInfo, "Smallholder farm (< 2 acres). Verify crop insurance and cooperative membership.")
	case req.FarmSize >= 20:
		add("farm_size", SeverityPositive, "Large acreage diversifies risk and supports higher loan ceilings.")
	}

	switch {
	case trustScore >= 70:
		add("overall", SeverityPositive, "Overall profile is strong. Recommend approval subject to standard documentation.")
	case trustScore >= 50:
		add("overall", SeverityInfo, "Borderline creditworthiness. Consider conditional approval with a reduced loan amount.")
	default:
		add("overall", SeverityWarning, "Risk profile is elevated. Recommend rejection or a collateral-backed loan with enhanced monitoring.")
	}

	return notes
}
