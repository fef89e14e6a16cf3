// Package risk scores how likely a user is to take an upcoming dose. The trained model
// sits behind the Classifier interface; the scorer only depends on its declared column
// order and its class probabilities.
package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrFeatureContractMismatch means the feature vector and the model disagree on names,
// order or arity. Predictions made across such a mismatch would be silently wrong, so
// they are refused.
var ErrFeatureContractMismatch = errors.New("feature contract mismatch")

// Classifier is a trained binary classifier. Class 1 is "adherent".
type Classifier interface {
	// Columns is the feature order the model was trained with.
	Columns() []string
	Predict(x []float64) (int, error)
	// PredictProba returns [p(class 0), p(class 1)].
	PredictProba(x []float64) ([]float64, error)
}

func checkArity(want int, x []float64) error {
	if len(x) != want {
		return fmt.Errorf("%w: model expects %d features, got %d", ErrFeatureContractMismatch, want, len(x))
	}
	return nil
}

// LogisticModel is a logistic regression over the declared columns.
type LogisticModel struct {
	Version        string    `json:"version"`
	FeatureColumns []string  `json:"feature_columns"`
	Coefficients   []float64 `json:"coefficients"`
	Intercept      float64   `json:"intercept"`
}

func (m *LogisticModel) Columns() []string { return m.FeatureColumns }

func (m *LogisticModel) PredictProba(x []float64) ([]float64, error) {
	if err := checkArity(len(m.Coefficients), x); err != nil {
		return nil, err
	}
	z := m.Intercept
	for i, w := range m.Coefficients {
		z += w * x[i]
	}
	p := 1 / (1 + math.Exp(-z))
	return []float64{1 - p, p}, nil
}

func (m *LogisticModel) Predict(x []float64) (int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (m *LogisticModel) validate() error {
	if len(m.FeatureColumns) == 0 {
		return errors.New("logistic model has no feature columns")
	}
	if len(m.Coefficients) != len(m.FeatureColumns) {
		return fmt.Errorf("logistic model has %d coefficients for %d columns", len(m.Coefficients), len(m.FeatureColumns))
	}
	return nil
}

// ForestModel is an ensemble of binary decision trees whose leaf class distributions are
// averaged, the layout scikit-learn's random forest exports to.
type ForestModel struct {
	Version        string   `json:"version"`
	FeatureColumns []string `json:"feature_columns"`
	Trees          []Tree   `json:"trees"`
}

// Tree is a flattened decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split (Feature >= 0: go Left when x[Feature] <= Threshold) or a leaf
// (Feature < 0) holding per-class weights in Value.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

func (m *ForestModel) Columns() []string { return m.FeatureColumns }

func (m *ForestModel) PredictProba(x []float64) ([]float64, error) {
	if err := checkArity(len(m.FeatureColumns), x); err != nil {
		return nil, err
	}
	out := make([]float64, 2)
	for _, t := range m.Trees {
		leaf := t.leaf(x)
		total := 0.0
		for _, v := range leaf.Value {
			total += v
		}
		if total == 0 {
			continue
		}
		out[0] += leaf.Value[0] / total
		out[1] += leaf.Value[1] / total
	}
	n := float64(len(m.Trees))
	out[0] /= n
	out[1] /= n
	return out, nil
}

func (m *ForestModel) Predict(x []float64) (int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (t Tree) leaf(x []float64) Node {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate rejects trees that could index out of range or loop. Children must come
// after their parent, which is how exported trees are laid out.
func (m *ForestModel) validate() error {
	if len(m.FeatureColumns) == 0 {
		return errors.New("forest model has no feature columns")
	}
	if len(m.Trees) == 0 {
		return errors.New("forest model has no trees")
	}
	for ti, t := range m.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				if len(n.Value) != 2 {
					return fmt.Errorf("tree %d node %d: leaf needs 2 class weights, has %d", ti, ni, len(n.Value))
				}
				continue
			}
			if n.Feature >= len(m.FeatureColumns) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			for _, c := range []int{n.Left, n.Right} {
				if c <= ni || c >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d: bad child index %d", ti, ni, c)
				}
			}
		}
	}
	return nil
}

// argmax picks class 1 only when it is strictly more likely.
func argmax(proba []float64) int {
	if proba[1] > proba[0] {
		return 1
	}
	return 0
}
