package models

import (
	"fmt"
	"strings"
)

// Variant selects the temperature sub-model.
type Variant int

const (
	// Baseline carries temperature inertia across periods.
	Baseline Variant = iota + 1
	// AlternateTemperature derives temperature from current radiative forcing only.
	AlternateTemperature
)

var variantNames = map[Variant]string{
	Baseline:             "baseline",
	AlternateTemperature: "alternate",
}

// Variants lists the registered variants in declaration order.
func Variants() []Variant {
	return []Variant{Baseline, AlternateTemperature}
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant accepts the variant name case-insensitively.
func ParseVariant(name string) (Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

func (v Variant) MarshalText() ([]byte, error) {
	if _, ok := variantNames[v]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
