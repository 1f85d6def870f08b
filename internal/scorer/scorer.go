package scorer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

// ErrModelUnavailable means no trained parameters could be loaded. The
// process must fail at startup rather than score with a degenerate
// distribution.
var ErrModelUnavailable = errors.New("trained fault model unavailable")

const varianceFloor = 1e-9

// Model holds the trained Gaussian naive Bayes parameters together with
// the feature standardization learned from the training set. It is
// immutable after load and safe for concurrent use.
type Model struct {
	Labels       []models.FaultType `json:"labels"`
	Priors       []float64          `json:"priors"`
	Means        [][]float64        `json:"means"`     // per label, per standardized feature
	Variances    [][]float64        `json:"variances"` // per label, per standardized feature
	FeatureMean  []float64          `json:"feature_mean"`
	FeatureScale []float64          `json:"feature_scale"`
	Samples      int                `json:"samples"`
	TrainedAt    time.Time          `json:"trained_at"`
}

// Validate checks structural integrity of loaded parameters. A model
// failing validation is treated as corrupt.
func (m *Model) Validate() error {
	n := len(m.Labels)
	if n == 0 {
		return errors.New("model has no labels")
	}
	if len(m.Priors) != n || len(m.Means) != n || len(m.Variances) != n {
		return errors.New("model parameter dimensions do not match label count")
	}
	if len(m.FeatureMean) != models.NumFeatures || len(m.FeatureScale) != models.NumFeatures {
		return fmt.Errorf("model expects %d features", models.NumFeatures)
	}
	for i := range m.Labels {
		if len(m.Means[i]) != models.NumFeatures || len(m.Variances[i]) != models.NumFeatures {
			return fmt.Errorf("label %s has wrong feature dimensions", m.Labels[i])
		}
		for _, v := range m.Variances[i] {
			if v <= 0 {
				return fmt.Errorf("label %s has non-positive variance", m.Labels[i])
			}
		}
	}
	for _, s := range m.FeatureScale {
		if s == 0 {
			return errors.New("model has zero feature scale")
		}
	}
	return nil
}

// Score returns a probability distribution over all fault labels for one
// reading. Probabilities are in [0,1] and sum to 1.
func (m *Model) Score(reading models.SensorReading) (map[models.FaultType]float64, error) {
	features := reading.Features()
	if len(features) != models.NumFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", models.NumFeatures, len(features))
	}

	standardized := make([]float64, len(features))
	for i, f := range features {
		standardized[i] = (f - m.FeatureMean[i]) / m.FeatureScale[i]
	}

	// Log-space class scores, normalized with the max trick so that
	// extreme readings never underflow to an all-zero distribution.
	logScores := make([]float64, len(m.Labels))
	for i := range m.Labels {
		score := math.Log(m.Priors[i])
		for j, x := range standardized {
			variance := m.Variances[i][j]
			diff := x - m.Means[i][j]
			score += -0.5*math.Log(2*math.Pi*variance) - (diff*diff)/(2*variance)
		}
		logScores[i] = score
	}

	maxScore := logScores[0]
	for _, s := range logScores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	var total float64
	probs := make([]float64, len(logScores))
	for i, s := range logScores {
		probs[i] = math.Exp(s - maxScore)
		total += probs[i]
	}

	dist := make(map[models.FaultType]float64, len(m.Labels))
	for i, label := range m.Labels {
		dist[label] = probs[i] / total
	}

	return dist, nil
}
