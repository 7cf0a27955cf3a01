package graph

import (
	"os"

	"gopkg.in/yaml.v3"

	synerrors "github.com/alexisbeaulieu97/synapse/pkg/errors"
)

// Settings holds runner parameters loaded from an optional YAML file.
// CLI flags override anything set here.
type Settings struct {
	Parallel     int  `yaml:"parallel,omitempty" validate:"omitempty,min=1,max=32"`
	HistoryDepth int  `yaml:"history_depth,omitempty" validate:"omitempty,min=1,max=10000"`
	DelayMS      int  `yaml:"delay_ms,omitempty" validate:"omitempty,min=0,max=360000"`
	Trace        bool `yaml:"trace,omitempty"`
	BackStep     bool `yaml:"back_step,omitempty"`
}

// DefaultSettings returns the runner defaults used when no settings file is given.
func DefaultSettings() Settings {
	return Settings{
		Parallel:     4,
		HistoryDepth: 100,
		Trace:        true,
	}
}

// LoadSettings reads and validates a YAML settings file, overlaying the
// defaults so an empty file is valid.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, synerrors.NewParseError(path, 0, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, synerrors.NewParseError(path, 0, err)
	}

	if err := validatorInstance().Struct(&settings); err != nil {
		return settings, convertValidationError(err)
	}

	return settings, nil
}
