package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config file locations.
const (
	GlobalConfigDir   = "actionctl"  // under $XDG_CONFIG_HOME or ~/.config
	GlobalConfigFile  = "config.yaml"
	ProjectConfigDir  = ".actionctl" // relative to the working directory
	ProjectConfigFile = "config.yaml"
)

// EnvKeyReplacer maps config keys and flag names to environment variable
// suffixes: upload.failure_rate is read from ACTIONCTL_UPLOAD_FAILURE_RATE and
// --retry-limit from ACTIONCTL_RETRY_LIMIT.
var EnvKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

var durationType = reflect.TypeOf(time.Duration(0))

// configFile is one YAML layer. Only an explicitly requested file must exist.
type configFile struct {
	path     string
	required bool
}

// LoadConfig builds the configuration, later sources overriding earlier:
//  1. Default() values
//  2. ~/.config/actionctl/config.yaml
//  3. .actionctl/config.yaml
//  4. the file named by the "config" key (--config), which must exist
//  5. ACTIONCTL_* environment variables, when v has AutomaticEnv set
//  6. flags bound to v
//
// Durations accept Go syntax ("750ms") or a bare number of milliseconds.
// Rates accept a fraction (0.2) or a percentage ("20%").
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := registerDefaults(v, cfg); err != nil {
		return nil, fmt.Errorf("register defaults: %w", err)
	}

	for _, f := range configFiles(v.GetString("config")) {
		if err := mergeFile(v, f); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// registerDefaults records every leaf of cfg as a viper default, so each key
// is known to AllSettings and can be overridden from the environment.
func registerDefaults(v *viper.Viper, cfg *Config) error {
	var tree map[string]any
	if err := mapstructure.Decode(cfg, &tree); err != nil {
		return err
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

func configFiles(explicit string) []configFile {
	var files []configFile
	if p := globalConfigPath(); p != "" {
		files = append(files, configFile{path: p})
	}
	if p := projectConfigPath(); p != "" {
		files = append(files, configFile{path: p})
	}
	if explicit != "" {
		files = append(files, configFile{path: explicit, required: true})
	}
	return files
}

// globalConfigPath returns the global config file if it exists.
func globalConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return existing(filepath.Join(dir, GlobalConfigDir, GlobalConfigFile))
}

// projectConfigPath returns the project config file if it exists.
func projectConfigPath() string {
	return existing(filepath.Join(ProjectConfigDir, ProjectConfigFile))
}

func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// mergeFile layers one YAML file over the settings already in v.
func mergeFile(v *viper.Viper, f configFile) error {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !f.required {
			return nil
		}
		return fmt.Errorf("config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	v.SetConfigType("yaml")
	if err := v.MergeConfig(file); err != nil {
		return fmt.Errorf("load %s: %w", f.path, err)
	}
	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		millisecondsHook(),
		percentHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// millisecondsHook reads a bare number as milliseconds when the target is a
// time.Duration, so retry_delay: 2000 means two seconds.
func millisecondsHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != durationType || from == durationType {
			return data, nil
		}
		switch n := data.(type) {
		case int:
			return time.Duration(n) * time.Millisecond, nil
		case int64:
			return time.Duration(n) * time.Millisecond, nil
		case uint64:
			return time.Duration(n) * time.Millisecond, nil
		case float64:
			return time.Duration(n * float64(time.Millisecond)), nil
		case string:
			if ms, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
				return time.Duration(ms) * time.Millisecond, nil
			}
		}
		return data, nil
	}
}

// percentHook reads "20%" as 0.2 for float fields.
func percentHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if !strings.HasSuffix(s, "%") {
			return data, nil
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage %q: %w", s, err)
		}
		return pct / 100, nil
	}
}
