package energybalance

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const stefanBoltzmann = 5.670374419e-8 // W/m²/K⁴

// SolarGeometry describes the Sun's position relevant to daily radiation at a site
type SolarGeometry struct {
	DeclinationDeg       float64
	SunEarthDistAU       float64
	SunsetHourAngleDeg   float64
	Extraterrestrial     float64 // W/m², daily mean on a horizontal surface at the top of the atmosphere
	PolarNight, PolarDay bool
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// CalculateSolarGeometry returns the daily solar geometry for the UTC day containing date
func CalculateSolarGeometry(date time.Time, latitude, solarConstant float64) SolarGeometry {
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC)
	jd := julian.TimeToJD(noon)
	T := (jd - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	Ω := 125.04 - 1934.136*T
	λ := L0 + C - 0.00569 - 0.00478*math.Sin(degToRad(Ω))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	δ := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(λ)))

	// Sun-Earth distance in AU
	Mrad := degToRad(M)
	e := 0.016708617 - T*(0.000042037+T*0.0000001236)
	E := Mrad + e*math.Sin(Mrad)*(1+e*math.Cos(Mrad))
	v := 2 * math.Atan(math.Sqrt((1+e)/(1-e))*math.Tan(E/2))
	r := (1 - e*e) / (1 + e*math.Cos(v))

	φ := degToRad(latitude)
	cosωs := -math.Tan(φ) * math.Tan(δ)
	geo := SolarGeometry{
		DeclinationDeg: radToDeg(δ),
		SunEarthDistAU: r,
		PolarNight:     cosωs >= 1,
		PolarDay:       cosωs <= -1,
	}
	ωs := math.Acos(math.Max(-1, math.Min(1, cosωs)))
	geo.SunsetHourAngleDeg = radToDeg(ωs)

	q := solarConstant / math.Pi / (r * r) *
		(ωs*math.Sin(φ)*math.Sin(δ) + math.Cos(φ)*math.Cos(δ)*math.Sin(ωs))
	geo.Extraterrestrial = math.Max(0, q)
	return geo
}

// shortwaveIn returns incoming shortwave at the surface: top-of-atmosphere radiation reduced by
// the clear-sky transmissivity and the Kasten-Czeplak cloud factor.
func (s *Solver) shortwaveIn(date time.Time, cloudCover float64) float64 {
	geo := CalculateSolarGeometry(date, s.site.Latitude, s.params.SolarConstant)
	tau := s.params.ClearSkyTransmissivity + s.params.TransmissivityAltitudeGradient*s.site.Altitude
	return geo.Extraterrestrial * tau * (1 - 0.75*math.Pow(cloudCover, 3.4))
}

// atmosphericEmissivity uses Brutsaert's clear-sky emissivity with a cloud correction.
// vapourPressure is in hPa and airTempK in kelvin.
func atmosphericEmissivity(vapourPressure, airTempK, cloudCover float64) float64 {
	clear := 1.24 * math.Pow(vapourPressure/airTempK, 1.0/7.0)
	return clear*(1-0.84*cloudCover) + 0.84*cloudCover
}

// saturationVapourPressure over water, hPa (Magnus)
func saturationVapourPressure(tempC float64) float64 {
	return 6.112 * math.Exp(17.62*tempC/(243.12+tempC))
}

// saturationVapourPressureIce over ice, hPa (Magnus)
func saturationVapourPressureIce(tempC float64) float64 {
	return 6.112 * math.Exp(22.46*tempC/(272.62+tempC))
}

// specificHumidity from vapour pressure and air pressure, both hPa
func specificHumidity(vapourPressure, pressure float64) float64 {
	return 0.622 * vapourPressure / (pressure - 0.378*vapourPressure)
}

func toKelvin(c float64) float64 { return c + 273.15 }
