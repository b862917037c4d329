// Package ice models a lake ice cover as a stack of homogeneous layers and provides the
// column maintenance, buoyancy, slush, compaction and temperature-profile operations the
// time-step engine builds on.
package ice

import "strings"

// Material identifies what a layer is made of
type Material int

const (
	NewSnow Material = iota
	Snow
	DrainedSnow
	Slush
	SlushIce
	BlackIce
	Water
	Unknown
)

// Class orders materials by how solid they are: Liquid < IceClass < SnowClass.
type Class int

const (
	Liquid Class = iota
	IceClass
	SnowClass
)

// snowConductivityCoefficient relates snow conductivity to density (Abels): k = c·ρ²
const snowConductivityCoefficient = 2.85e-6

// Properties holds the physical constants associated with a material
type Properties struct {
	Density         float64 // kg/m³
	Conductivity    float64 // W/m/K
	HeatCapacity    float64 // J/kg/K
	Albedo          float64
	MeltCoefficient float64 // m/s/K, negative: degree-day ablation per second per degree above freezing
	Roughness       float64 // m, aerodynamic roughness length
	Class           Class
}

var materialNames = [...]string{
	NewSnow:     "new_snow",
	Snow:        "snow",
	DrainedSnow: "drained_snow",
	Slush:       "slush",
	SlushIce:    "slush_ice",
	BlackIce:    "black_ice",
	Water:       "water",
	Unknown:     "unknown",
}

// materials is read-only. Unknown has no entry and resolves to the slush ice fallback.
var materials = map[Material]Properties{
	NewSnow: {
		Density:         250,
		Conductivity:    SnowConductivity(250),
		HeatCapacity:    2090,
		Albedo:          0.85,
		MeltCoefficient: -0.05 / 86400,
		Roughness:       0.0005,
		Class:           SnowClass,
	},
	Snow: {
		Density:         350,
		Conductivity:    SnowConductivity(350),
		HeatCapacity:    2090,
		Albedo:          0.75,
		MeltCoefficient: -0.05 / 86400,
		Roughness:       0.001,
		Class:           SnowClass,
	},
	DrainedSnow: {
		Density:         350,
		Conductivity:    SnowConductivity(350),
		HeatCapacity:    2090,
		Albedo:          0.70,
		MeltCoefficient: -0.05 / 86400,
		Roughness:       0.001,
		Class:           SnowClass,
	},
	Slush: {
		Density:         920,
		Conductivity:    0.561,
		HeatCapacity:    3150,
		Albedo:          0.35,
		MeltCoefficient: -0.08 / 86400,
		Roughness:       0.001,
		Class:           Liquid,
	},
	SlushIce: {
		Density:         875,
		Conductivity:    1.12,
		HeatCapacity:    2108,
		Albedo:          0.40,
		MeltCoefficient: -0.04 / 86400,
		Roughness:       0.0005,
		Class:           IceClass,
	},
	BlackIce: {
		Density:         917,
		Conductivity:    2.24,
		HeatCapacity:    2108,
		Albedo:          0.20,
		MeltCoefficient: -0.025 / 86400,
		Roughness:       0.0001,
		Class:           IceClass,
	},
	Water: {
		Density:         1000,
		Conductivity:    0.58,
		HeatCapacity:    4186,
		Albedo:          0.10,
		MeltCoefficient: 0,
		Roughness:       0.0001,
		Class:           Liquid,
	},
}

// SnowConductivity returns the conductivity of snow with the given density
func SnowConductivity(density float64) float64 {
	return snowConductivityCoefficient * density * density
}

// Properties looks up the physical constants for m. Unrecognised materials get the
// slush ice entry and ok == false so the caller can report the fallback.
func (m Material) Properties() (p Properties, ok bool) {
	p, ok = materials[m]
	if !ok {
		return materials[SlushIce], false
	}
	return p, true
}

// Class returns the ordering class of m
func (m Material) Class() Class {
	p, _ := m.Properties()
	return p.Class
}

// IsSnow reports whether m belongs to the snow class
func (m Material) IsSnow() bool {
	return m.Class() == SnowClass
}

// IsDry reports whether m is solid (ice or snow class)
func (m Material) IsDry() bool {
	return m.Class() != Liquid
}

// String returns the canonical name of m
func (m Material) String() string {
	if m < 0 || int(m) >= len(materialNames) {
		return materialNames[Unknown]
	}
	return materialNames[m]
}

// ParseMaterial converts a name to a Material. Unrecognised names map to Unknown.
func ParseMaterial(name string) Material {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range materialNames {
		if n == name {
			return Material(m)
		}
	}
	return Unknown
}

// MarshalText implements encoding.TextMarshaler
func (m Material) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Material) UnmarshalText(text []byte) error {
	*m = ParseMaterial(string(text))
	return nil
}
