package scorer

import (
	"math"
	"math/rand"
	"time"

	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

type TrainConfig struct {
	SamplesPerLabel int
	Seed            int64
}

// labelProfile is the synthetic generating distribution for one fault
// class. Centers sit on the faulty side of the corresponding threshold so
// the trained classifier agrees with the rule table on clear-cut inputs.
type labelProfile struct {
	label  models.FaultType
	center [models.NumFeatures]float64 // voltage, current, temperature, vibration, power factor
	spread [models.NumFeatures]float64
}

var trainingProfiles = []labelProfile{
	{models.FaultNormal, [5]float64{230, 50, 60, 5, 0.92}, [5]float64{5, 6, 4, 0.8, 0.03}},
	{models.FaultOvervoltage, [5]float64{265, 50, 60, 5, 0.9}, [5]float64{6, 6, 4, 0.8, 0.03}},
	{models.FaultUndervoltage, [5]float64{195, 50, 60, 5, 0.9}, [5]float64{6, 6, 4, 0.8, 0.03}},
	{models.FaultOverload, [5]float64{228, 95, 66, 5.5, 0.85}, [5]float64{5, 8, 4, 0.8, 0.04}},
	{models.FaultOverheat, [5]float64{229, 55, 85, 5.5, 0.88}, [5]float64{5, 6, 6, 0.8, 0.03}},
	{models.FaultShortCircuit, [5]float64{215, 110, 120, 9, 0.6}, [5]float64{8, 12, 10, 1.5, 0.08}},
	{models.FaultMechanical, [5]float64{230, 52, 62, 10.5, 0.9}, [5]float64{5, 6, 4, 1.2, 0.03}},
	{models.FaultLowPowerFactor, [5]float64{230, 48, 58, 5, 0.65}, [5]float64{5, 6, 4, 0.8, 0.05}},
}

// Train fits the scorer on synthetic labeled readings. It is a batch
// step, never part of the request path; the seed makes it reproducible.
func Train(cfg TrainConfig) *Model {
	if cfg.SamplesPerLabel <= 0 {
		cfg.SamplesPerLabel = 200
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	type sample struct {
		labelIdx int
		features [models.NumFeatures]float64
	}

	samples := make([]sample, 0, len(trainingProfiles)*cfg.SamplesPerLabel)
	for idx, profile := range trainingProfiles {
		for i := 0; i < cfg.SamplesPerLabel; i++ {
			var s sample
			s.labelIdx = idx
			for j := 0; j < models.NumFeatures; j++ {
				s.features[j] = profile.center[j] + rng.NormFloat64()*profile.spread[j]
			}
			// Power factor is physically bounded.
			s.features[4] = math.Max(0, math.Min(1, s.features[4]))
			samples = append(samples, s)
		}
	}

	// Standardization over the full training set.
	featureMean := make([]float64, models.NumFeatures)
	for _, s := range samples {
		for j, f := range s.features {
			featureMean[j] += f
		}
	}
	for j := range featureMean {
		featureMean[j] /= float64(len(samples))
	}

	featureScale := make([]float64, models.NumFeatures)
	for _, s := range samples {
		for j, f := range s.features {
			diff := f - featureMean[j]
			featureScale[j] += diff * diff
		}
	}
	for j := range featureScale {
		featureScale[j] = math.Sqrt(featureScale[j] / float64(len(samples)))
		if featureScale[j] == 0 {
			featureScale[j] = 1
		}
	}

	// Per-class Gaussian parameters in standardized space.
	labels := make([]models.FaultType, len(trainingProfiles))
	priors := make([]float64, len(trainingProfiles))
	means := make([][]float64, len(trainingProfiles))
	variances := make([][]float64, len(trainingProfiles))
	counts := make([]int, len(trainingProfiles))

	for i, profile := range trainingProfiles {
		labels[i] = profile.label
		means[i] = make([]float64, models.NumFeatures)
		variances[i] = make([]float64, models.NumFeatures)
	}

	for _, s := range samples {
		counts[s.labelIdx]++
		for j, f := range s.features {
			means[s.labelIdx][j] += (f - featureMean[j]) / featureScale[j]
		}
	}
	for i := range means {
		for j := range means[i] {
			means[i][j] /= float64(counts[i])
		}
	}

	for _, s := range samples {
		for j, f := range s.features {
			diff := (f-featureMean[j])/featureScale[j] - means[s.labelIdx][j]
			variances[s.labelIdx][j] += diff * diff
		}
	}
	for i := range variances {
		for j := range variances[i] {
			variances[i][j] /= float64(counts[i])
			if variances[i][j] < varianceFloor {
				variances[i][j] = varianceFloor
			}
		}
	}

	for i, c := range counts {
		priors[i] = float64(c) / float64(len(samples))
	}

	return &Model{
		Labels:       labels,
		Priors:       priors,
		Means:        means,
		Variances:    variances,
		FeatureMean:  featureMean,
		FeatureScale: featureScale,
		Samples:      len(samples),
		TrainedAt:    time.Now().UTC(),
	}
}
