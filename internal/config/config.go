package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models mindkeep.yml: the identity of the local profile plus the
// scoring weights and recency windows the compositor runs with.
type Config struct {
	Profile struct {
		Name string `yaml:"name"`
	} `yaml:"profile"`
	Scoring Scoring `yaml:"scoring"`
}

// Scoring holds the wellness score parameters. The defaults encode the
// documented formula: a neutral base of 50, mood blended at weight 0.4 over
// the 7 most recent entries, 5 points per activity in the trailing 7 days
// capped at 30, 10 points per completed goal capped at 30.
type Scoring struct {
	Base               float64 `yaml:"base"`
	MoodWeight         float64 `yaml:"mood_weight"`
	MoodWindowEntries  int     `yaml:"mood_window_entries"`
	ActivityWindowDays int     `yaml:"activity_window_days"`
	ActivityPoints     int     `yaml:"activity_points"`
	ActivityCap        int     `yaml:"activity_cap"`
	GoalPoints         int     `yaml:"goal_points"`
	GoalCap            int     `yaml:"goal_cap"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with mk config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Profile.Name == "" {
		return fmt.Errorf("config.profile.name is required")
	}
	s := c.Scoring
	if s.Base < 0 || s.Base > 100 {
		return fmt.Errorf("config.scoring.base must be within [0,100]")
	}
	if s.MoodWeight < 0 || s.MoodWeight > 1 {
		return fmt.Errorf("config.scoring.mood_weight must be within [0,1]")
	}
	if s.MoodWindowEntries <= 0 {
		return fmt.Errorf("config.scoring.mood_window_entries must be positive")
	}
	if s.ActivityWindowDays <= 0 {
		return fmt.Errorf("config.scoring.activity_window_days must be positive")
	}
	if s.ActivityPoints < 0 || s.GoalPoints < 0 {
		return fmt.Errorf("config.scoring points must be non-negative")
	}
	if s.ActivityCap < 0 || s.GoalCap < 0 {
		return fmt.Errorf("config.scoring caps must be non-negative")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "mindkeep.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(profile string) string {
	return fmt.Sprintf(defaultTemplate, profile)
}

// Default returns the default Config struct for a profile.
func Default(profile string) *Config {
	var cfg Config
	cfg.Profile.Name = profile
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, profile))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `profile:
  name: %s

scoring:
  base: 50
  mood_weight: 0.4
  mood_window_entries: 7
  activity_window_days: 7
  activity_points: 5
  activity_cap: 30
  goal_points: 10
  goal_cap: 30
`
