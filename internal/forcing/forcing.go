// Package forcing reads daily atmospheric forcing series from CSV files.
//
// The header must contain date, temperature and new_snow. When all of cloud_cover,
// wind_speed, relative_humidity and pressure are present each record also carries the
// weather needed for energy-balance mode; rain and snow_precipitation are optional extras.
package forcing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/icethickness"
)

var requiredColumns = []string{"date", "temperature", "new_snow"}

var weatherColumns = []string{"cloud_cover", "wind_speed", "relative_humidity", "pressure"}

// ReadFile parses the CSV file at path
func ReadFile(path string, timestep float64) ([]icethickness.Forcing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open forcing file: %w", err)
	}
	defer f.Close()

	records, err := Read(f, timestep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Read parses a forcing series. timestep applies to every record.
func Read(r io.Reader, timestep float64) ([]icethickness.Forcing, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty forcing file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	withWeather := true
	for _, name := range weatherColumns {
		if _, ok := columns[name]; !ok {
			withWeather = false
		}
	}

	var out []icethickness.Forcing
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		p := rowParser{row: row, columns: columns, line: line}
		date := p.date("date")
		f := icethickness.Forcing{
			Date:        date,
			Timestep:    timestep,
			Temperature: p.float("temperature"),
			NewSnow:     p.float("new_snow"),
		}
		if withWeather {
			f.Weather = &energybalance.Weather{
				Date:              date,
				Timestep:          timestep,
				AirTemperature:    f.Temperature,
				CloudCover:        p.float("cloud_cover"),
				WindSpeed:         p.float("wind_speed"),
				RelativeHumidity:  p.float("relative_humidity"),
				Pressure:          p.float("pressure"),
				Rain:              p.optionalFloat("rain"),
				SnowPrecipitation: p.optionalFloat("snow_precipitation"),
			}
		}
		if p.err != nil {
			return nil, p.err
		}
		if f.NewSnow < 0 {
			return nil, fmt.Errorf("line %d: negative new_snow %g", line, f.NewSnow)
		}
		if f.Weather != nil {
			if err := f.Weather.Validate(); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// rowParser keeps the first conversion error of a row
type rowParser struct {
	row     []string
	columns map[string]int
	line    int
	err     error
}

func (p *rowParser) field(name string) string {
	i, ok := p.columns[name]
	if !ok || i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *rowParser) float(name string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.field(name), 64)
	switch {
	case err != nil:
		p.err = fmt.Errorf("line %d: invalid %s: %w", p.line, name, err)
	case math.IsNaN(v) || math.IsInf(v, 0):
		p.err = fmt.Errorf("line %d: %s %g is not finite", p.line, name, v)
	}
	return v
}

func (p *rowParser) optionalFloat(name string) float64 {
	if p.field(name) == "" {
		return 0
	}
	return p.float(name)
}

func (p *rowParser) date(name string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, p.field(name))
	if err != nil {
		p.err = fmt.Errorf("line %d: invalid %s: %w", p.line, name, err)
	}
	return t
}
