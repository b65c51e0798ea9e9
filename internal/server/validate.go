package server

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/noema/hlr/halflife"
	hlrErrors "github.com/noema/hlr/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator with the "finite" tag registered
// and JSON names used in error messages.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			v := fl.Field().Float()
			return !math.IsNaN(v) && !math.IsInf(v, 0)
		})
	})
	return validate
}

type featureInput struct {
	Name  string  `json:"name" validate:"required"`
	Value float64 `json:"value" validate:"finite"`
}

type predictRequest struct {
	Features  []featureInput `json:"features" validate:"dive"`
	DeltaDays float64        `json:"delta_days" validate:"finite,gte=0"`
	Scope     string         `json:"scope" validate:"max=256"`
}

type trainRequest struct {
	Features       []featureInput `json:"features" validate:"dive"`
	DeltaDays      float64        `json:"delta_days" validate:"finite,gte=0"`
	ActualRecall   float64        `json:"actual_recall" validate:"finite,gte=0,lte=1"`
	ActualHalfLife *float64       `json:"actual_half_life" validate:"omitempty,finite,gte=0"`
	Scope          string         `json:"scope" validate:"max=256"`
}

func toFeatureVector(in []featureInput) halflife.FeatureVector {
	fv := make(halflife.FeatureVector, len(in))
	for i, f := range in {
		fv[i] = halflife.F(f.Name, f.Value)
	}
	return fv
}

var messages = map[string]string{
	"required": "is required",
	"finite":   "must be a finite number",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"max":      "must be at most %s",
}

// validateRequest validates v and converts the first failure into a
// ValidationError named after the JSON field path.
func validateRequest(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !hlrErrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return hlrErrors.NewValidationError("request", err.Error(), nil)
	}
	fe := fieldErrs[0]
	return hlrErrors.NewValidationError(fieldPath(fe.Namespace()), describe(fe), fe.Value())
}

// validateWeights checks a weight upload: non-empty names and finite values.
func validateWeights(weights map[string]float64) error {
	for name, w := range weights {
		if strings.TrimSpace(name) == "" {
			return hlrErrors.NewValidationError("weights", "feature names cannot be empty", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return hlrErrors.NewValidationError("weights."+name, messages["finite"], w)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, fe.Param())
	}
	return tmpl
}

// fieldPath drops the root struct name: predictRequest.features[0].name
// becomes features[0].name.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
