package ice

import "testing"

func TestMaterialClasses(t *testing.T) {
	tests := []struct {
		material Material
		class    Class
		dry      bool
	}{
		{NewSnow, SnowClass, true},
		{Snow, SnowClass, true},
		{DrainedSnow, SnowClass, true},
		{SlushIce, IceClass, true},
		{BlackIce, IceClass, true},
		{Slush, Liquid, false},
		{Water, Liquid, false},
	}

	for _, tt := range tests {
		t.Run(tt.material.String(), func(t *testing.T) {
			if got := tt.material.Class(); got != tt.class {
				t.Errorf("Class() = %d, expected %d", got, tt.class)
			}
			if got := tt.material.IsDry(); got != tt.dry {
				t.Errorf("IsDry() = %v, expected %v", got, tt.dry)
			}
			if _, ok := tt.material.Properties(); !ok {
				t.Errorf("Properties() reported %s as unrecognised", tt.material)
			}
		})
	}

	if !(Liquid < IceClass && IceClass < SnowClass) {
		t.Error("class ordering must be liquid < ice < snow")
	}
}

func TestUnknownMaterialFallsBackToSlushIce(t *testing.T) {
	slushIce, _ := SlushIce.Properties()

	for _, m := range []Material{Unknown, Material(42), Material(-1)} {
		p, ok := m.Properties()
		if ok {
			t.Errorf("%d: expected lookup to report a fallback", m)
		}
		if p != slushIce {
			t.Errorf("%d: got %+v, expected slush ice properties", m, p)
		}
	}
}

func TestParseMaterial(t *testing.T) {
	tests := map[string]Material{
		"new_snow":   NewSnow,
		"black_ice":  BlackIce,
		" Slush ":    Slush,
		"slush_ice":  SlushIce,
		"permafrost": Unknown,
		"":           Unknown,
	}
	for name, expected := range tests {
		if got := ParseMaterial(name); got != expected {
			t.Errorf("ParseMaterial(%q) = %s, expected %s", name, got, expected)
		}
	}

	for m := NewSnow; m <= Unknown; m++ {
		text, _ := m.MarshalText()
		var back Material
		if err := back.UnmarshalText(text); err != nil || back != m {
			t.Errorf("text round trip of %s gave %s (%v)", m, back, err)
		}
	}
}

func TestMeltCoefficientsAreAblating(t *testing.T) {
	for _, m := range []Material{NewSnow, Snow, DrainedSnow, Slush, SlushIce, BlackIce} {
		l := MustLayer(m, 0.1)
		coeff, ok := l.MeltCoefficient()
		if !ok || coeff >= 0 {
			t.Errorf("%s: melt coefficient %g (ok=%v), expected negative", m, coeff, ok)
		}
	}
}
