// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrConfigInvalid is wrapped around every configuration load failure.
var ErrConfigInvalid = errors.New("config: invalid configuration")

// ErrExists is returned by Scaffold when a config file already exists and
// overwrite was not requested.
var ErrExists = errors.New("config: file already exists")

// candidateNames lists the config file basenames searched for, in
// discovery precedence order.
var candidateNames = []string{"zeno.yml", ".zeno.yml"}

// Load discovers and parses the project configuration from dir, following
// the precedence documented in spec.md §6: zeno.yml, then .zeno.yml, both
// searched in dir (the working directory), unless explicitPath overrides
// discovery entirely.
//
// Discovery checks each fixed candidate path with viper (see discover);
// defaults come from Default(), and the resolved document is unmarshalled
// over them via yaml.v3 directly, so Config round-trips through
// Serialize/Load without
// passing through viper's lossy internal map representation.
func Load(dir, explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		found, err := discover(dir)
		if err != nil {
			return nil, err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w (run `zeno init` to create one)", ErrConfigInvalid, path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrConfigInvalid, path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return cfg, nil
}

// discover finds the first existing candidate config file in dir, in
// precedence order. viper.SetConfigFile pins the exact filename so no
// extension-guessing heuristic is involved; viper is used here purely to
// get a consistent "does this resolve to a readable config document"
// check shared with the rest of the codebase's config tooling.
func discover(dir string) (string, error) {
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)

		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("%w: read %s: %w", ErrConfigInvalid, name, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: no zeno.yml or .zeno.yml found in %s (run `zeno init` to create one)", ErrConfigInvalid, dir)
}

func validate(cfg *Config) error {
	if cfg.Root == "" {
		return errors.New("root must not be empty")
	}
	if cfg.TmpDir == "" {
		return errors.New("tmp_dir must not be empty")
	}
	if cfg.Build.Cmd == "" {
		return errors.New("build.cmd must not be empty")
	}
	if cfg.Build.Bin == "" {
		return errors.New("build.bin must not be empty")
	}
	return nil
}

// Serialize renders cfg back to the documented YAML schema. Used for the
// round-trip property parse(serialize(c)) == c, and by the init scaffold.
func Serialize(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
