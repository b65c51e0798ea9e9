package halflife_test

import (
	"fmt"

	"github.com/noema/hlr/halflife"
	"github.com/noema/hlr/pkg/log"
)

func ExampleModel_Predict() {
	m := halflife.NewModel(
		halflife.WithLogger(log.Nop()),
		halflife.WithInitialWeights(map[string]float64{"bias": 1.0, "right": 0.5, "wrong": -0.5}),
	)

	fv := halflife.FeatureVector{
		halflife.F("bias", 1),
		halflife.F("right", 2),
		halflife.F("wrong", 1),
	}
	pred := m.Predict(fv, 3)
	fmt.Printf("half-life: %.4f days\n", pred.HalfLifeDays)
	fmt.Printf("recall after 3 days: %.4f\n", pred.RecallProbability)

	// Output: half-life: 2.8284 days
	// recall after 3 days: 0.4794
}

func ExampleModel_HalfLife() {
	m := halflife.NewModel(halflife.WithLogger(log.Nop()))
	fmt.Println(m.HalfLife(nil))

	// Output: 1
}

func ExampleModel_TrainUpdate() {
	m := halflife.NewModel(halflife.WithLogger(log.Nop()))
	fv := halflife.FeatureVector{halflife.F("bias", 1)}

	before := m.HalfLife(fv)
	for i := 0; i < 20; i++ {
		m.TrainUpdate(fv, 2, 1.0)
	}
	after := m.HalfLife(fv)

	fmt.Printf("half-life grew: %t\n", after > before)
	fmt.Printf("observations: %d, count: %d\n", m.Observations(), m.FeatureCounts()["bias"])

	// Output: half-life grew: true
	// observations: 20, count: 20
}
