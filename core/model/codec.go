package model

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/noema/hlr/pkg/errors"
)

// Decode reads and validates a checkpoint document from r.
func Decode(r io.Reader) (*Checkpoint, error) {
	var cp Checkpoint
	if err := json.NewDecoder(r).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if cp.Weights == nil {
		cp.Weights = make(map[string]float64)
	}
	if cp.FeatureCounts == nil {
		cp.FeatureCounts = make(map[string]int)
	}
	return &cp, nil
}

// Unmarshal decodes a checkpoint from a byte slice.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if cp.Weights == nil {
		cp.Weights = make(map[string]float64)
	}
	if cp.FeatureCounts == nil {
		cp.FeatureCounts = make(map[string]int)
	}
	return &cp, nil
}

// Encode validates cp and writes it to w as indented JSON.
func Encode(cp *Checkpoint, w io.Writer) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return nil
}

// Marshal validates cp and returns its compact JSON form.
func Marshal(cp *Checkpoint) ([]byte, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return data, nil
}

// LoadFile reads a checkpoint from filename.
func LoadFile(filename string) (_ *Checkpoint, err error) {
	defer errors.Recover(&err, "model.LoadFile")
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return Decode(file)
}

// SaveFile writes cp to filename, replacing any existing file.
func SaveFile(cp *Checkpoint, filename string) (err error) {
	defer errors.Recover(&err, "model.SaveFile")
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	return Encode(cp, file)
}
