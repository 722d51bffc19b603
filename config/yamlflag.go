package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// yamlFlag sets a pointer to a structured option, from a YAML flag value
// or from a mapping of the config file. Unknown keys are rejected.
type yamlFlag[T any] struct {
	ptr **T
	raw string
}

func newYamlFlag[T any](ptr **T) *yamlFlag[T] {
	return &yamlFlag[T]{ptr: ptr}
}

// the target is only replaced when the value is valid
func (yf *yamlFlag[T]) decode(unmarshal func(any) error) error {
	opts := new(T)
	if err := unmarshal(opts); err != nil {
		return err
	}

	*yf.ptr = opts
	return nil
}

func (yf *yamlFlag[T]) Set(value string) error {
	err := yf.decode(func(v any) error { return yaml.UnmarshalStrict([]byte(value), v) })
	if err != nil {
		return fmt.Errorf("failed to parse yaml: %w", err)
	}

	yf.raw = value
	return nil
}

func (yf *yamlFlag[T]) UnmarshalYAML(unmarshal func(any) error) error {
	return yf.decode(unmarshal)
}

func (yf *yamlFlag[T]) String() string {
	if yf == nil {
		return ""
	}

	return yf.raw
}
