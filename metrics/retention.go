package metrics

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/noema/hlr/halflife"
	hlrErrors "github.com/noema/hlr/pkg/errors"
	"github.com/noema/hlr/pkg/log"
)

// Predictor is anything that predicts recall for a feature vector.
type Predictor interface {
	Predict(features halflife.FeatureVector, deltaDays float64) halflife.Prediction
}

// Sample is one held-out review.
type Sample struct {
	Features  halflife.FeatureVector
	DeltaDays float64
	// Recall is the observed recall proportion in [0, 1].
	Recall float64
	// HalfLife is the observed half-life. When nil it is estimated from
	// Recall and DeltaDays.
	HalfLife *float64
}

// Report summarizes a model's accuracy on a set of samples.
type Report struct {
	Samples      int     `json:"samples"`
	MAERecall    float64 `json:"mae_recall"`
	MAEHalfLife  float64 `json:"mae_half_life"`
	AUC          float64 `json:"auc"`
	LogLoss      float64 `json:"log_loss"`
	CorrRecall   float64 `json:"corr_recall"`
	CorrHalfLife float64 `json:"corr_half_life"`
}

// Evaluate predicts every sample with p and compares the predictions to the
// observations.
//
// Observed half-lives are taken from Sample.HalfLife or estimated with
// halflife.EstimateHalfLife. Samples where neither is available are left out
// of the half-life metrics only. AUC uses Recall >= 0.5 as the positive label.
//
// Errors:
//   - ErrEmptyData: if samples is empty
func Evaluate(p Predictor, samples []Sample) (_ *Report, err error) {
	defer hlrErrors.Recover(&err, "metrics.Evaluate")

	n := len(samples)
	if n == 0 {
		return nil, hlrErrors.NewModelError("metrics.Evaluate", "no samples", hlrErrors.ErrEmptyData)
	}

	start := time.Now()
	logger := log.GetLoggerWithName("metrics")

	recallTrue := mat.NewVecDense(n, nil)
	recallPred := mat.NewVecDense(n, nil)
	labels := mat.NewVecDense(n, nil)
	var hTrue, hPred []float64

	for i, s := range samples {
		pred := p.Predict(s.Features, s.DeltaDays)
		recallTrue.SetVec(i, s.Recall)
		recallPred.SetVec(i, pred.RecallProbability)
		if s.Recall >= 0.5 {
			labels.SetVec(i, 1)
		}

		if s.HalfLife != nil {
			hTrue = append(hTrue, *s.HalfLife)
			hPred = append(hPred, pred.HalfLifeDays)
		} else if h, ok := halflife.EstimateHalfLife(s.DeltaDays, s.Recall); ok {
			hTrue = append(hTrue, h)
			hPred = append(hPred, pred.HalfLifeDays)
		}
	}

	report := &Report{Samples: n}
	if report.MAERecall, err = MAE(recallTrue, recallPred); err != nil {
		return nil, err
	}
	if report.AUC, err = AUC(labels, recallPred); err != nil {
		return nil, err
	}
	if report.LogLoss, err = BinaryLogLoss(recallTrue, recallPred); err != nil {
		return nil, err
	}
	if report.CorrRecall, err = Correlation(recallTrue, recallPred); err != nil {
		return nil, err
	}

	if len(hTrue) > 0 {
		ht := mat.NewVecDense(len(hTrue), hTrue)
		hp := mat.NewVecDense(len(hPred), hPred)
		if report.MAEHalfLife, err = MAE(ht, hp); err != nil {
			return nil, err
		}
		if report.CorrHalfLife, err = Correlation(ht, hp); err != nil {
			return nil, err
		}
	}

	logger.Debug("Evaluation completed",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, n,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return report, nil
}
