package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration, decodable from YAML or JSON.
type Config struct {
	Grid   Grid   `json:"grid" yaml:"grid"`
	Sim    Sim    `json:"sim" yaml:"sim"`
	Server Server `json:"server" yaml:"server"`
	Log    Log    `json:"log" yaml:"log"`
}

// Grid holds the BlockMap geometry. Span is clamped by the grid itself;
// only the map extent is validated here.
type Grid struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Span   float64 `json:"span" yaml:"span"`
}

type Sim struct {
	Mobiles    int      `json:"mobiles" yaml:"mobiles"`
	Structures int      `json:"structures" yaml:"structures"`
	Doodads    int      `json:"doodads" yaml:"doodads"`
	TickRate   Duration `json:"tickRate" yaml:"tickRate"`
	StepSize   float64  `json:"stepSize" yaml:"stepSize"`
	Seed       int64    `json:"seed" yaml:"seed"`
}

type Server struct {
	Addr           string   `json:"addr" yaml:"addr"`
	StreamInterval Duration `json:"streamInterval" yaml:"streamInterval"`
}

// Duration decodes "50ms"-style strings from YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type Log struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Grid:   Grid{Width: 1000, Height: 1000, Span: 50},
		Sim:    Sim{Mobiles: 200, Structures: 10, Doodads: 50, TickRate: Duration(50 * time.Millisecond), StepSize: 4},
		Server: Server{Addr: "127.0.0.1:8090", StreamInterval: Duration(time.Second)},
		Log:    Log{Level: "info"},
	}
}

// LoadYAML loads config from a YAML reader.
func LoadYAML(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// LoadJSON loads config from a JSON reader.
func LoadJSON(r io.Reader) (Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".json":
		return LoadJSON(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return Config{}, fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
}

func (c Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("config: grid extent must be positive, got %.1fx%.1f", c.Grid.Width, c.Grid.Height)
	}
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("config: sim tick rate must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server address is required")
	}
	return nil
}
