package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Site          SiteYAML          `yaml:"site"`
		Simulation    SimulationYAML    `yaml:"simulation"`
		Constants     ConstantsData     `yaml:"constants,omitempty"`
		EnergyBalance EnergyBalanceData `yaml:"energy-balance,omitempty"`
		Storage       StorageYAML       `yaml:"storage,omitempty"`
		Controllers   []ControllerYAML  `yaml:"controllers,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	config := &ConfigData{
		Site: SiteData{
			Name:      yamlConfig.Site.Name,
			Latitude:  yamlConfig.Site.Latitude,
			Longitude: yamlConfig.Site.Longitude,
			Altitude:  yamlConfig.Site.Altitude,
		},
		Simulation: SimulationData{
			Mode:        yamlConfig.Simulation.Mode,
			Timestep:    yamlConfig.Simulation.Timestep,
			ForcingFile: yamlConfig.Simulation.ForcingFile,
			WaterLine:   yamlConfig.Simulation.WaterLine,
		},
		Constants:     yamlConfig.Constants,
		EnergyBalance: yamlConfig.EnergyBalance,
		Controllers:   make([]ControllerData, len(yamlConfig.Controllers)),
	}

	if config.Simulation.Mode == "" {
		config.Simulation.Mode = ModeAirTemperature
	}
	if config.Simulation.Timestep == 0 {
		config.Simulation.Timestep = defaultTimestep
	}
	if yamlConfig.Simulation.StartDate != "" {
		config.Simulation.StartDate, err = time.Parse(time.DateOnly, yamlConfig.Simulation.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start-date: %w", err)
		}
	}
	for _, l := range yamlConfig.Simulation.InitialLayers {
		config.Simulation.InitialLayers = append(config.Simulation.InitialLayers, LayerData{
			Type:   l.Type,
			Height: l.Height,
		})
	}

	// Convert storage
	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{
			Path: yamlConfig.Storage.SQLite.Path,
		}
	}
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	// Convert controllers
	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}
		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Cert:       controller.RESTServer.Cert,
				Key:        controller.RESTServer.Key,
				Port:       controller.RESTServer.Port,
				ListenAddr: controller.RESTServer.ListenAddr,
			}
		}
		if controller.GRPCServer != nil {
			config.Controllers[i].GRPCServer = &GRPCServerData{
				Cert:       controller.GRPCServer.Cert,
				Key:        controller.GRPCServer.Key,
				Port:       controller.GRPCServer.Port,
				ListenAddr: controller.GRPCServer.ListenAddr,
			}
		}
	}

	y.config = config
	return config, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Controllers, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type SiteYAML struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Altitude  float64 `yaml:"altitude"`
}

type SimulationYAML struct {
	Mode          string      `yaml:"mode,omitempty"`
	Timestep      float64     `yaml:"timestep,omitempty"`
	ForcingFile   string      `yaml:"forcing-file"`
	StartDate     string      `yaml:"start-date,omitempty"`
	InitialLayers []LayerYAML `yaml:"initial-layers,omitempty"`
	WaterLine     *float64    `yaml:"water-line,omitempty"`
}

type LayerYAML struct {
	Type   string  `yaml:"type"`
	Height float64 `yaml:"height"`
}

type StorageYAML struct {
	SQLite      *SQLiteYAML      `yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
	GRPCServer *GRPCServerYAML `yaml:"grpc,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type GRPCServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}
