package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sigsmuggle/internal/paths"
	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyProfile     = "profile"
	cfgKeyProfilesDir = "profiles_dir"
	cfgKeyDatabase    = "database"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Profile     string `yaml:"profile,omitempty"`
	ProfilesDir string `yaml:"profiles_dir,omitempty"`
	Database    string `yaml:"database,omitempty"`
}

const configHeader = `# sigsmuggle configuration
#
# profile:      profile used when --profile is not given
#               (default: SIGSMUGGLE_PROFILE, then "` + paths.DefaultProfile + `")
# profiles_dir: directory holding the profiles (overridable by --profiles-dir)
# database:     index file name inside the profile data directory
`

// loadConfig reads config.yaml from the config directory using Viper.
// It creates the directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt)); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left untouched.
func writeConfigIfMissing(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&configFile{Database: types.DefaultDatabaseName})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}
