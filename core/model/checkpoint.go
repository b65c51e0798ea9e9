// Package model defines the persisted form of a trained half-life model.
//
// A Checkpoint captures everything needed to resume online training of one
// model instance:
//
//   - Hyperparameters the model was configured with
//   - The per-feature weight map
//   - The per-feature observation counts driving the adaptive learning rate
//   - Bookkeeping: scope, number of observations, last update time
//
// Checkpoints are exchanged as JSON documents carrying a format_version, in
// the same spirit as model interchange files: the version is checked on read
// and unknown versions are rejected.
//
// Example usage:
//
//	cp := m.Checkpoint("user-42")
//	if err := model.SaveFile(cp, "user-42.json"); err != nil {
//		log.Fatal(err)
//	}
//
//	cp, err := model.LoadFile("user-42.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	m.Restore(cp)
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/noema/hlr/pkg/errors"
)

const (
	// ModelType identifies half-life regression checkpoints.
	ModelType = "HalfLifeRegression"
	// FormatVersion is the only checkpoint format understood by this package.
	FormatVersion = "1.0"
)

// Hyperparameters are the immutable training settings of a model.
type Hyperparameters struct {
	OmitHTerm      bool    `json:"omit_h_term"`
	LearningRate   float64 `json:"learning_rate"`
	HalfLifeWeight float64 `json:"hl_weight"`
	L2Weight       float64 `json:"l2_weight"`
	Sigma          float64 `json:"sigma"`
}

// Checkpoint is a snapshot of one model's learned state.
type Checkpoint struct {
	ModelType       string             `json:"model_type"`
	FormatVersion   string             `json:"format_version"`
	Scope           string             `json:"scope,omitempty"`
	Hyperparameters Hyperparameters    `json:"hyperparameters"`
	Weights         map[string]float64 `json:"weights"`
	FeatureCounts   map[string]int     `json:"feature_counts"`
	Observations    int64              `json:"observations"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewCheckpoint creates a checkpoint stamped with the current type and
// format version. The maps are used as given.
func NewCheckpoint(scope string, hp Hyperparameters, weights map[string]float64, counts map[string]int) *Checkpoint {
	if weights == nil {
		weights = make(map[string]float64)
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	return &Checkpoint{
		ModelType:       ModelType,
		FormatVersion:   FormatVersion,
		Scope:           scope,
		Hyperparameters: hp,
		Weights:         weights,
		FeatureCounts:   counts,
		UpdatedAt:       time.Now().UTC(),
	}
}

// Validate checks the document header and the learned state.
func (c *Checkpoint) Validate() error {
	if c == nil {
		return errors.NewValueError("Checkpoint.Validate", "checkpoint cannot be nil")
	}
	if c.FormatVersion == "" {
		return errors.NewValueError("Checkpoint.Validate", "format_version is required")
	}
	if c.FormatVersion != FormatVersion {
		return errors.NewModelError("Checkpoint.Validate",
			fmt.Sprintf("format version %q", c.FormatVersion), errors.ErrUnsupportedFormat)
	}
	if c.ModelType != ModelType {
		return errors.NewValueError("Checkpoint.Validate",
			fmt.Sprintf("model type mismatch: expected %s, got %s", ModelType, c.ModelType))
	}
	for name, w := range c.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.NewModelError("Checkpoint.Validate",
				fmt.Sprintf("weight %q", name), errors.ErrNonFinite)
		}
	}
	for name, n := range c.FeatureCounts {
		if n < 0 {
			return errors.NewValueError("Checkpoint.Validate",
				fmt.Sprintf("feature count for %q is negative: %d", name, n))
		}
	}
	if c.Observations < 0 {
		return errors.NewValueError("Checkpoint.Validate", "observations cannot be negative")
	}
	return nil
}

// Hash returns a hex sha256 of the learned state and hyperparameters.
// Scope and timestamps are excluded, so two models that learned the same
// thing hash equal.
func (c *Checkpoint) Hash() string {
	state := struct {
		Hyperparameters Hyperparameters    `json:"hyperparameters"`
		Weights         map[string]float64 `json:"weights"`
		FeatureCounts   map[string]int     `json:"feature_counts"`
	}{c.Hyperparameters, c.Weights, c.FeatureCounts}

	data, err := json.Marshal(state)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	clone := *c
	clone.Weights = make(map[string]float64, len(c.Weights))
	for k, v := range c.Weights {
		clone.Weights[k] = v
	}
	clone.FeatureCounts = make(map[string]int, len(c.FeatureCounts))
	for k, v := range c.FeatureCounts {
		clone.FeatureCounts[k] = v
	}
	return &clone
}
