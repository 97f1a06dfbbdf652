package config

// FileConfig holds audit configuration for a single save file.
// This allows tuning the audit per save, which matters when one deploy
// carries saves from different game versions with different retired-item
// lists.
type FileConfig struct {
	// RemovedItems overrides the deny list of retired item identifiers
	// for this save file. If empty, the global list is used.
	RemovedItems []string `yaml:"removedItems,omitempty"`

	// SampleSize overrides the number of heroes shown in the sample
	// section. If zero, the global sample size is used.
	SampleSize int `yaml:"sampleSize,omitempty"`
}

// File represents the structure of the .savescan configuration file.
type File struct {
	// Files maps save-file paths to their per-file configurations.
	// Keys are matched against the target path as given on the command
	// line, then against its base name.
	Files map[string]FileConfig `yaml:"files,omitempty"`

	// Defaults contains default audit configuration applied to all save
	// files unless overridden in the per-file configuration.
	Defaults FileConfig `yaml:"defaults,omitempty"`
}

// GetFileConfig returns the configuration for a specific save-file path.
// It merges the per-file configuration with defaults.
func (cf *File) GetFileConfig(path string) FileConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with per-file configuration if present
	if fileConfig, ok := cf.Files[path]; ok {
		if len(fileConfig.RemovedItems) > 0 {
			result.RemovedItems = fileConfig.RemovedItems
		}
		if fileConfig.SampleSize != 0 {
			result.SampleSize = fileConfig.SampleSize
		}
	}

	return result
}
