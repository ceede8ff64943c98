// Package yamlutil decodes user-supplied YAML files (highlight themes) with a
// size limit and optional strict field checking.
package yamlutil

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion.
var MaxInputSize = 1 << 20

var (
	ErrEmpty         = errors.New("yamlutil: empty input")
	ErrNilTarget     = errors.New("yamlutil: nil destination")
	ErrInputTooLarge = errors.New("yamlutil: input exceeds maximum size")
)

func check(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilTarget
	}
	return nil
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	if err := check(data, v); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalStrict decodes data into v and rejects unknown fields.
func UnmarshalStrict(data []byte, v any) error {
	if err := check(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}
