// Package metrics evaluates half-life models against held-out reviews.
//
// Error metrics operate on gonum vectors:
//
//   - MAE: Mean Absolute Error, the headline recall metric of half-life regression
//   - MSE: Mean Squared Error
//   - Correlation: Pearson correlation between predictions and observations
//   - AUC: Area under the ROC curve, with recall >= 0.5 as the positive label
//   - BinaryLogLoss: cross entropy of predicted recall against observed recall
//
// Evaluate runs a model over a set of samples and reports all of them at once:
//
//	report, err := metrics.Evaluate(m, samples)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("MAE(p)=%.4f AUC=%.4f cor(h)=%.4f\n",
//		report.MAERecall, report.AUC, report.CorrHalfLife)
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	hlrErrors "github.com/noema/hlr/pkg/errors"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, hlrErrors.NewValueError(op, "input vectors cannot be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, hlrErrors.NewModelError(op, "empty vector", hlrErrors.ErrEmptyData)
	}
	if yPred.Len() != n {
		return 0, hlrErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE calculates the Mean Squared Error between true and predicted values.
//
// Errors:
//   - ErrEmptyData: if input vectors are empty
//   - ErrDimensionMismatch: if yTrue and yPred have different lengths
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}

	return sum / float64(n), nil
}

// MAE calculates the Mean Absolute Error between true and predicted values.
//
// MAE measures the average magnitude of errors without considering their
// direction. For recall predictions it is the expected gap between the
// predicted and the observed recall proportion.
//
// Parameters:
//   - yTrue: True target values as a vector
//   - yPred: Predicted values as a vector
//
// Returns:
//   - float64: MAE value (non-negative)
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ErrEmptyData: if input vectors are empty
//   - ErrDimensionMismatch: if yTrue and yPred have different lengths
//
// Example:
//
//	mae, err := metrics.MAE(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("MAE: %.4f\n", mae)
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}

	return sum / float64(n), nil
}

// Correlation returns the Pearson correlation coefficient of yTrue and yPred.
//
// When either vector has zero variance the coefficient is undefined and 0 is
// returned.
func Correlation(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Correlation", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		return 0, nil
	}

	x := mat.Col(nil, 0, yTrue)
	y := mat.Col(nil, 0, yPred)
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0, nil
	}
	return stat.Correlation(x, y, nil), nil
}
