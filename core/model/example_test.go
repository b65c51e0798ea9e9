package model_test

import (
	"bytes"
	"fmt"

	"github.com/noema/hlr/core/model"
)

// ExampleCheckpoint demonstrates a checkpoint round trip through JSON.
func ExampleCheckpoint() {
	cp := model.NewCheckpoint("user-42",
		model.Hyperparameters{LearningRate: 0.001, HalfLifeWeight: 0.01, L2Weight: 0.1, Sigma: 1},
		map[string]float64{"bias": 1.5},
		map[string]int{"bias": 2},
	)

	var buf bytes.Buffer
	if err := model.Encode(cp, &buf); err != nil {
		fmt.Println(err)
		return
	}

	restored, err := model.Decode(&buf)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("scope=%s bias=%.1f count=%d same=%t\n",
		restored.Scope, restored.Weights["bias"], restored.FeatureCounts["bias"],
		restored.Hash() == cp.Hash())

	// Output: scope=user-42 bias=1.5 count=2 same=true
}
