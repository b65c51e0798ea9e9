package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	hlrErrors "github.com/noema/hlr/pkg/errors"
)

// AUC calculates the Area Under the ROC Curve for binary labels.
//
// The AUC is the probability that a randomly chosen positive instance is
// scored higher than a randomly chosen negative one:
//   - 0.5 indicates random guessing
//   - 1.0 indicates perfect ranking
//
// When all labels belong to one class the AUC is undefined and 0.5 is
// returned.
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yPred := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	auc, _ := AUC(yTrue, yPred) // 0.75
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		val := yTrue.AtVec(i)
		if val != 0.0 && val != 1.0 {
			return 0, hlrErrors.NewValidationError(
				"yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", val, i),
				val,
			)
		}
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	var totalPos, totalNeg float64
	for i := 0; i < n; i++ {
		pairs[i] = pair{score: yPred.AtVec(i), label: yTrue.AtVec(i)}
		if pairs[i].label == 1.0 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return 0.5, nil
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	// Walk thresholds from the highest score down, emitting one ROC point per
	// distinct score, then integrate with the trapezoid rule.
	tprs := []float64{0}
	fprs := []float64{0}
	tp, fp := 0.0, 0.0
	for i := 0; i < n; {
		score := pairs[i].score
		for i < n && pairs[i].score == score {
			if pairs[i].label == 1.0 {
				tp++
			} else {
				fp++
			}
			i++
		}
		tprs = append(tprs, tp/totalPos)
		fprs = append(fprs, fp/totalNeg)
	}

	auc := 0.0
	for i := 1; i < len(fprs); i++ {
		width := fprs[i] - fprs[i-1]
		height := (tprs[i] + tprs[i-1]) / 2
		auc += width * height
	}

	return auc, nil
}

// BinaryLogLoss calculates the cross entropy between observed recall
// proportions in [0, 1] and predicted recall probabilities.
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var loss float64
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y < 0 || y > 1 {
			return 0, hlrErrors.NewValidationError("yTrue",
				fmt.Sprintf("must be within [0, 1], found %f at index %d", y, i), y)
		}
		p := yPred.AtVec(i)
		loss -= y*logSafe(p) + (1-y)*logSafe(1-p)
	}

	return loss / float64(n), nil
}

// logSafe computes the natural logarithm, mapping non-positive inputs to a
// large negative number instead of -Inf.
func logSafe(x float64) float64 {
	if x <= 0 {
		return -1e10
	}
	return math.Log(x)
}
