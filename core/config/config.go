package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

type Configuration struct {
	ShellName string `json:"shell_name" validate:"required"`

	HistoryFile    string `json:"history_file" validate:"required"`
	HistorySize    int    `json:"history_size" validate:"gte=1,lte=10000"`
	HistoryDisplay int    `json:"history_display" validate:"gte=1"`

	MaxArgs int `json:"max_args" validate:"gte=1"`

	Color  bool   `json:"color"`
	Banner string `json:"banner"`

	EnvFile string `json:"env_file"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// HistoryPath resolves the history file against the home directory.
func (c *Configuration) HistoryPath(home string) string {
	return resolve(home, c.HistoryFile)
}

// EnvPath resolves the env file against the home directory, it's empty if
// no env file is configured.
func (c *Configuration) EnvPath(home string) string {
	if c.EnvFile == "" {
		return ""
	}
	return resolve(home, c.EnvFile)
}

func resolve(home, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(home, path)
}

// ReadEnvFile parses the dotenv file at path. A missing file yields no
// variables.
func ReadEnvFile(fsys afero.Fs, path string) (map[string]string, error) {
	fd, err := fsys.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, err
	}
	defer fd.Close()

	env, err := godotenv.Parse(fd)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return env, nil
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Load loads the configuration from the directory. Fields missing from the
// file keep their default values.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(fsys, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}

	out := Default()
	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return out, nil
}

// Initialize writes the default configuration into dir, creating it if
// needed. An existing configuration is left alone.
func Initialize(fsys afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := fsys.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ConfigurationName)
	switch _, err := fsys.Stat(path); {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", path, fs.ErrExist)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	logger.Printf("Writing default configuration to %s", path)
	if err := afero.WriteFile(fsys, path, defaultConfigData, 0600); err != nil {
		return nil, err
	}

	return Load(fsys, dir)
}
