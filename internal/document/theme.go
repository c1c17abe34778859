package document

import (
	"encoding/json"
	"fmt"
)

// Density is a uniform spacing multiplier. The zero value means "use the template default".
type Density float64

const (
	DensityCompact     Density = 0.75
	DensityNormal      Density = 1.0
	DensityComfortable Density = 1.25
)

// Valid reports whether d is unset or one of the supported multipliers.
func (d Density) Valid() bool {
	switch d {
	case 0, DensityCompact, DensityNormal, DensityComfortable:
		return true
	}
	return false
}

// ParseDensity validates a raw multiplier.
func ParseDensity(v float64) (Density, error) {
	d := Density(v)
	if !d.Valid() {
		return 0, fmt.Errorf("unsupported density %v (want 0.75, 1 or 1.25)", v)
	}
	return d, nil
}

// UnmarshalJSON drops unsupported values back to unset instead of failing the whole document.
func (d *Density) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode density: %w", err)
	}
	parsed, err := ParseDensity(v)
	if err != nil {
		*d = 0
		return nil
	}
	*d = parsed
	return nil
}

// Theme holds user overrides. Empty fields fall back to the template's defaults.
type Theme struct {
	AccentColor string  `json:"accentColor,omitempty"`
	FontFamily  string  `json:"fontFamily,omitempty"`
	Density     Density `json:"density,omitempty"`
}

// IsZero reports whether no override is set.
func (t Theme) IsZero() bool {
	return t.AccentColor == "" && t.FontFamily == "" && t.Density == 0
}
