package halflife

// Feature is one named numeric signal of a review event.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// F is shorthand for constructing a Feature.
func F(name string, value float64) Feature {
	return Feature{Name: name, Value: value}
}

// FeatureVector describes one review event. Order does not affect the
// model's output but iteration follows slice order.
type FeatureVector []Feature

// Names returns the feature names in order.
func (fv FeatureVector) Names() []string {
	names := make([]string, len(fv))
	for i, f := range fv {
		names[i] = f.Name
	}
	return names
}

// split separates features with finite values from the rest. The returned
// usable vector shares no storage with fv when anything was dropped.
func (fv FeatureVector) split() (usable FeatureVector, skipped []string) {
	for i, f := range fv {
		if finite(f.Value) {
			continue
		}
		usable = make(FeatureVector, 0, len(fv)-1)
		usable = append(usable, fv[:i]...)
		for _, g := range fv[i:] {
			if finite(g.Value) {
				usable = append(usable, g)
			} else {
				skipped = append(skipped, g.Name)
			}
		}
		return usable, skipped
	}
	return fv, nil
}
