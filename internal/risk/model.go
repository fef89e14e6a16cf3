package risk

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"medadherence/internal/features"
)

// Model kinds accepted in a model file.
const (
	KindLogistic = "logistic"
	KindForest   = "forest"
)

type modelFile struct {
	Kind string `json:"kind"`
}

// LoadModel reads a JSON model file written by the training pipeline.
func LoadModel(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	c, err := DecodeModel(data)
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	return c, nil
}

// DecodeModel parses a model document. The "kind" field selects the implementation.
func DecodeModel(data []byte) (Classifier, error) {
	var head modelFile
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Kind {
	case KindLogistic:
		var m LogisticModel
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		return &m, nil
	case KindForest:
		var m ForestModel
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		return &m, nil
	}
	return nil, fmt.Errorf("unknown model kind %q", head.Kind)
}

// DefaultModel is the bundled logistic model, fitted offline on the synthetic training
// set. It is used when no model file is configured.
func DefaultModel() *LogisticModel {
	return &LogisticModel{
		Version:        "builtin-1",
		FeatureColumns: append([]string(nil), features.Order...),
		Coefficients: []float64{
			0.0,   // hour_of_day
			0.0,   // day_of_week
			-0.35, // num_daily_meds
			4.0,   // past_adherence_rate
			-0.05, // hours_since_last_dose
			-1.2,  // is_weekend
			1.8,   // is_morning
			0.0,   // is_evening
		},
		Intercept: -2.2,
	}
}
