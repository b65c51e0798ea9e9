package config

import (
	"fmt"
	"math"
	"strings"

	hlrErrors "github.com/noema/hlr/pkg/errors"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"warning": true, "error": true, "disabled": true, "off": true,
}

// Validate checks value ranges and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return hlrErrors.NewValidationError("server.port", "must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return hlrErrors.NewValidationError("server", "timeouts cannot be negative", c.Server)
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return hlrErrors.NewValidationError("log.level", "unknown level", c.Log.Level)
	}

	m := c.Model
	if !positive(m.LearningRate) {
		return hlrErrors.NewValidationError("model.learning_rate", "must be a positive number", m.LearningRate)
	}
	if !positive(m.Sigma) {
		return hlrErrors.NewValidationError("model.sigma", "must be a positive number", m.Sigma)
	}
	if !nonNegative(m.HalfLifeWeight) {
		return hlrErrors.NewValidationError("model.hl_weight", "must be a non-negative number", m.HalfLifeWeight)
	}
	if !nonNegative(m.L2Weight) {
		return hlrErrors.NewValidationError("model.l2_weight", "must be a non-negative number", m.L2Weight)
	}

	if !c.Store.InMemory && strings.TrimSpace(c.Store.Path) == "" {
		return hlrErrors.NewValidationError("store.path", "required unless store.in_memory is set", c.Store.Path)
	}
	if c.Checkpoint.Interval < 0 {
		return hlrErrors.NewValidationError("checkpoint.interval", fmt.Sprintf("cannot be negative: %s", c.Checkpoint.Interval), c.Checkpoint.Interval)
	}
	return nil
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}
