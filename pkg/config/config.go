// Package config handles the front-end's configuration file.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".gekkodbg"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through
// the config file.
type Config struct {
	// Command aliases for the interactive front-end.
	Aliases map[string][]string `yaml:"aliases"`

	// ConditionCacheSize is the number of compiled conditions kept for
	// reuse. Zero uses the built-in default.
	ConditionCacheSize int `yaml:"condition-cache-size,omitempty"`

	// If TraceZeroResults is true the front-end prints variable values
	// even when a condition evaluates to zero.
	TraceZeroResults bool `yaml:"trace-zero-results"`
}

// DefaultConditionCacheSize is used when the config file does not set a
// cache size.
const DefaultConditionCacheSize = 128

// CacheSize returns the configured condition cache size or the default.
func (c *Config) CacheSize() int {
	if c.ConditionCacheSize > 0 {
		return c.ConditionCacheSize
	}
	return DefaultConditionCacheSize
}

// LoadConfig attempts to populate a Config object from the config.yml
// file. Any failure degrades to an empty configuration.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.\n", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v\n", err)
			return &Config{}
		}
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Closing config file failed: %v.\n", err)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		fmt.Printf("Unable to read config data: %v.\n", err)
		return &Config{}
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.\n", err)
		return &Config{}
	}
	return &c
}

// SaveConfig will marshal and save the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	_, err = f.Seek(0, os.SEEK_SET)
	return f, err
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for the gekko debugger front-end.

# This is the default configuration. You can edit it to customize the
# front-end without recreating it.

# Provide custom command aliases.
aliases:
  # cond: ["print"]

# Number of compiled breakpoint conditions kept for reuse.
# condition-cache-size: 128

# Print variable values even for conditions that evaluate to zero.
trace-zero-results: false
`)
	return err
}

// createConfigPath creates the directory structure for the config file.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	if configPath := os.Getenv("GEKKODBG_HOME"); configPath != "" {
		return path.Join(configPath, file), nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return path.Join(usr.HomeDir, configDir, file), nil
}
