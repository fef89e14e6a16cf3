package risk

import (
	"fmt"
	"sort"
	"strconv"

	"medadherence/internal/features"
)

// Level is a discretised non-adherence risk.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Band thresholds on the risk score.
const (
	MediumFrom = 0.3
	HighFrom   = 0.6
)

// Band maps a risk score to its level: [0,0.3) low, [0.3,0.6) medium, [0.6,∞) high.
func Band(riskScore float64) Level {
	switch {
	case riskScore < MediumFrom:
		return LevelLow
	case riskScore < HighFrom:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Result is the scored outcome for one context.
type Result struct {
	WillAdhere           bool    `json:"will_adhere"`
	AdherenceProbability float64 `json:"adherence_probability"`
	RiskLevel            Level   `json:"risk_level"`
	RiskScore            float64 `json:"risk_score"`
}

// Suggestion is one candidate reminder time.
type Suggestion struct {
	Time                 string  `json:"time"`
	AdherenceProbability float64 `json:"adherence_probability"`
}

// SuggestionHours are the reminder times tried by Suggest, in tie-break order.
var SuggestionHours = []int{7, 8, 9, 13, 14, 19, 20, 21}

const (
	suggestionDay          = 2 // Wednesday
	suggestionHoursSince   = 8
	suggestionResultLength = 3
)

// Scorer binds a classifier to the feature deriver.
type Scorer struct {
	model   Classifier
	deriver *features.Deriver
}

// NewScorer checks the model's declared columns against the features the deriver can
// produce.
func NewScorer(model Classifier, deriver *features.Deriver) (*Scorer, error) {
	if err := CheckContract(model.Columns()); err != nil {
		return nil, err
	}
	if deriver == nil {
		deriver = features.NewDeriver(features.ValidationFailOpen)
	}
	return &Scorer{model: model, deriver: deriver}, nil
}

// CheckContract fails when columns is empty, repeats a name, or names a feature the
// deriver does not produce.
func CheckContract(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: model declares no columns", ErrFeatureContractMismatch)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if _, ok := (features.Vector{}).Value(c); !ok {
			return fmt.Errorf("%w: unknown column %q", ErrFeatureContractMismatch, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate column %q", ErrFeatureContractMismatch, c)
		}
		seen[c] = true
	}
	return nil
}

// Model returns the bound classifier.
func (s *Scorer) Model() Classifier { return s.model }

// Predict derives features from raw and scores them.
func (s *Scorer) Predict(raw features.Raw) (Result, error) {
	v, err := s.deriver.Derive(raw)
	if err != nil {
		return Result{}, err
	}
	return s.Score(v)
}

// Score runs the classifier on v. risk_score is 1 - p(adherent); both are reported to
// three decimals while the band uses the unrounded score.
func (s *Scorer) Score(v features.Vector) (Result, error) {
	x, err := v.Layout(s.model.Columns())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrFeatureContractMismatch, err)
	}
	proba, err := s.model.PredictProba(x)
	if err != nil {
		return Result{}, err
	}
	if len(proba) != 2 {
		return Result{}, fmt.Errorf("%w: model returned %d class probabilities", ErrFeatureContractMismatch, len(proba))
	}
	class, err := s.model.Predict(x)
	if err != nil {
		return Result{}, err
	}

	p := proba[1]
	risk := 1 - p
	return Result{
		WillAdhere:           class == 1,
		AdherenceProbability: round3(p),
		RiskLevel:            Band(risk),
		RiskScore:            round3(risk),
	}, nil
}

// Suggest scores every candidate hour on a mid-week day, eight hours after the last dose,
// and returns the three most promising reminder times. Equal probabilities keep
// candidate order.
func (s *Scorer) Suggest(numDailyMeds int, pastAdherenceRate float64) ([]Suggestion, error) {
	day := suggestionDay
	hoursSince := float64(suggestionHoursSince)

	out := make([]Suggestion, 0, len(SuggestionHours))
	for _, h := range SuggestionHours {
		hour := h
		res, err := s.Predict(features.Raw{
			HourOfDay:          &hour,
			DayOfWeek:          &day,
			NumDailyMeds:       &numDailyMeds,
			PastAdherenceRate:  &pastAdherenceRate,
			HoursSinceLastDose: &hoursSince,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, Suggestion{
			Time:                 fmt.Sprintf("%02d:00", h),
			AdherenceProbability: res.AdherenceProbability,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AdherenceProbability > out[j].AdherenceProbability
	})
	return out[:suggestionResultLength], nil
}

// round3 rounds half to even on exact ties, like round in stats.
func round3(x float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 3, 64), 64)
	return r
}
