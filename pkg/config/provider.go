package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/ice"
)

// Simulation modes
const (
	ModeAirTemperature = "air"
	ModeEnergyBalance  = "energybalance"
)

const defaultTimestep = 86400

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Site          SiteData          `json:"site"`
	Simulation    SimulationData    `json:"simulation"`
	Constants     ConstantsData     `json:"constants,omitempty"`
	EnergyBalance EnergyBalanceData `json:"energy_balance,omitempty"`
	Storage       StorageData       `json:"storage,omitempty"`
	Controllers   []ControllerData  `json:"controllers,omitempty"`
}

// SiteData locates the lake
type SiteData struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// SimulationData describes one run
type SimulationData struct {
	Mode          string      `json:"mode"`
	Timestep      float64     `json:"timestep"` // s
	ForcingFile   string      `json:"forcing_file"`
	StartDate     time.Time   `json:"start_date"`
	InitialLayers []LayerData `json:"initial_layers,omitempty"`
	WaterLine     *float64    `json:"water_line,omitempty"` // observed, m
}

// LayerData is one layer of the initial column, listed top to bottom
type LayerData struct {
	Type   string  `json:"type"`
	Height float64 `json:"height"`
}

// ConstantsData overrides fields of ice.DefaultConstants. Nil fields keep the default.
type ConstantsData struct {
	RhoWater                *float64 `yaml:"rho-water,omitempty" json:"rho_water,omitempty"`
	LatentHeatFusion        *float64 `yaml:"latent-heat-fusion,omitempty" json:"latent_heat_fusion,omitempty"`
	FreezingPoint           *float64 `yaml:"freezing-point,omitempty" json:"freezing_point,omitempty"`
	SnowToSlushRatio        *float64 `yaml:"snow-to-slush-ratio,omitempty" json:"snow_to_slush_ratio,omitempty"`
	MinSlushChange          *float64 `yaml:"min-slush-change,omitempty" json:"min_slush_change,omitempty"`
	CapillaryPull           *float64 `yaml:"capillary-pull,omitempty" json:"capillary_pull,omitempty"`
	SlushWaterFraction      *float64 `yaml:"slush-water-fraction,omitempty" json:"slush_water_fraction,omitempty"`
	SurfaceResistance       *float64 `yaml:"surface-resistance,omitempty" json:"surface_resistance,omitempty"`
	SnowDensityMax          *float64 `yaml:"snow-density-max,omitempty" json:"snow_density_max,omitempty"`
	CompactionRate          *float64 `yaml:"compaction-rate,omitempty" json:"compaction_rate,omitempty"`
	CompactionTempFactor    *float64 `yaml:"compaction-temp-factor,omitempty" json:"compaction_temp_factor,omitempty"`
	CompactionDensityFactor *float64 `yaml:"compaction-density-factor,omitempty" json:"compaction_density_factor,omitempty"`
	CompactionDensityOnset  *float64 `yaml:"compaction-density-onset,omitempty" json:"compaction_density_onset,omitempty"`
}

// EnergyBalanceData overrides fields of energybalance.DefaultParams. Nil fields keep the default.
type EnergyBalanceData struct {
	SolarConstant          *float64 `yaml:"solar-constant,omitempty" json:"solar_constant,omitempty"`
	ClearSkyTransmissivity *float64 `yaml:"clear-sky-transmissivity,omitempty" json:"clear_sky_transmissivity,omitempty"`
	SurfaceEmissivity      *float64 `yaml:"surface-emissivity,omitempty" json:"surface_emissivity,omitempty"`
	ReferenceHeight        *float64 `yaml:"reference-height,omitempty" json:"reference_height,omitempty"`
	GroundHeatFlux         *float64 `yaml:"ground-heat-flux,omitempty" json:"ground_heat_flux,omitempty"`
	AlbedoMinDry           *float64 `yaml:"albedo-min-dry,omitempty" json:"albedo_min_dry,omitempty"`
	AlbedoMinWet           *float64 `yaml:"albedo-min-wet,omitempty" json:"albedo_min_wet,omitempty"`
	AlbedoDecayDry         *float64 `yaml:"albedo-decay-dry,omitempty" json:"albedo_decay_dry,omitempty"`
	AlbedoDecayWet         *float64 `yaml:"albedo-decay-wet,omitempty" json:"albedo_decay_wet,omitempty"`
	LowerBound             *float64 `yaml:"lower-bound,omitempty" json:"lower_bound,omitempty"`
	Tolerance              *float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	MaxIterations          *int     `yaml:"max-iterations,omitempty" json:"max_iterations,omitempty"`
}

// StorageData holds the configuration for the run store backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllerData holds the configuration for the controllers
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
	GRPCServer *GRPCServerData `json:"grpc,omitempty"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

type GRPCServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// IceConstants returns the default constants with the configured overrides applied
func (c *ConfigData) IceConstants() ice.Constants {
	k := ice.DefaultConstants()
	o := c.Constants
	set(&k.RhoWater, o.RhoWater)
	set(&k.LatentHeatFusion, o.LatentHeatFusion)
	set(&k.FreezingPoint, o.FreezingPoint)
	set(&k.SnowToSlushRatio, o.SnowToSlushRatio)
	set(&k.MinSlushChange, o.MinSlushChange)
	set(&k.CapillaryPull, o.CapillaryPull)
	set(&k.SlushWaterFraction, o.SlushWaterFraction)
	set(&k.SurfaceResistance, o.SurfaceResistance)
	set(&k.SnowDensityMax, o.SnowDensityMax)
	set(&k.CompactionRate, o.CompactionRate)
	set(&k.CompactionTempFactor, o.CompactionTempFactor)
	set(&k.CompactionDensityFactor, o.CompactionDensityFactor)
	set(&k.CompactionDensityOnset, o.CompactionDensityOnset)
	return k
}

// EnergyBalanceParams returns the default solver parameters with the configured overrides applied
func (c *ConfigData) EnergyBalanceParams() energybalance.Params {
	p := energybalance.DefaultParams()
	o := c.EnergyBalance
	set(&p.SolarConstant, o.SolarConstant)
	set(&p.ClearSkyTransmissivity, o.ClearSkyTransmissivity)
	set(&p.SurfaceEmissivity, o.SurfaceEmissivity)
	set(&p.ReferenceHeight, o.ReferenceHeight)
	set(&p.GroundHeatFlux, o.GroundHeatFlux)
	set(&p.AlbedoMinDry, o.AlbedoMinDry)
	set(&p.AlbedoMinWet, o.AlbedoMinWet)
	set(&p.AlbedoDecayDry, o.AlbedoDecayDry)
	set(&p.AlbedoDecayWet, o.AlbedoDecayWet)
	set(&p.LowerBound, o.LowerBound)
	set(&p.Tolerance, o.Tolerance)
	set(&p.MaxIterations, o.MaxIterations)
	return p
}

// EnergyBalanceSite returns the site for the energy-balance solver
func (c *ConfigData) EnergyBalanceSite() energybalance.Site {
	return energybalance.Site{
		Latitude:  c.Site.Latitude,
		Longitude: c.Site.Longitude,
		Altitude:  c.Site.Altitude,
	}
}

// InitialLayers converts the configured initial column into layers
func (c *ConfigData) InitialLayers() ([]ice.Layer, error) {
	layers := make([]ice.Layer, 0, len(c.Simulation.InitialLayers))
	for i, l := range c.Simulation.InitialLayers {
		m := ice.ParseMaterial(l.Type)
		if m == ice.Unknown {
			return nil, fmt.Errorf("initial layer %d: unknown material %q", i, l.Type)
		}
		layer, err := ice.NewLayer(m, l.Height)
		if err != nil {
			return nil, fmt.Errorf("initial layer %d: %w", i, err)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// Validate checks the configuration for values the simulation cannot run with
func (c *ConfigData) Validate() error {
	if c.Site.Latitude < -90 || c.Site.Latitude > 90 {
		return fmt.Errorf("site latitude %g out of range", c.Site.Latitude)
	}
	switch c.Simulation.Mode {
	case ModeAirTemperature, ModeEnergyBalance:
	default:
		return fmt.Errorf("unknown simulation mode %q", c.Simulation.Mode)
	}
	if c.Simulation.Timestep <= 0 {
		return errors.New("simulation timestep must be positive")
	}
	if _, err := c.InitialLayers(); err != nil {
		return err
	}

	k := c.IceConstants()
	if err := k.Validate(); err != nil {
		return fmt.Errorf("invalid constants: %w", err)
	}
	p := c.EnergyBalanceParams()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid energy balance parameters: %w", err)
	}

	for _, ctrl := range c.Controllers {
		if ctrl.Type == "rest" && ctrl.RESTServer == nil {
			return errors.New("rest controller requires a rest section")
		}
		if ctrl.Type == "grpc" && ctrl.GRPCServer == nil {
			return errors.New("grpc controller requires a grpc section")
		}
	}
	return nil
}

func set[T any](dst *T, override *T) {
	if override != nil {
		*dst = *override
	}
}
