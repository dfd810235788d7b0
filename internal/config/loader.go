package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

// envPrefix is the environment variable prefix used by every setting.
const envPrefix = "LIGANDSCREEN"

// DefaultEnvFile is read by LoadEnvFiles when no file is named.
const DefaultEnvFile = ".env"

// newViper builds a pre-configured Viper instance: YAML file type,
// LIGANDSCREEN_ env prefix, and a key replacer that maps "." → "_" so that
// nested keys like "postgres.host" resolve to "LIGANDSCREEN_POSTGRES_HOST".
//
// AutomaticEnv only consults the environment for keys viper already knows
// about, so every leaf of Config is bound explicitly.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(Config{}), "")
	for key, val := range boolDefaults {
		v.SetDefault(key, val)
	}
	return v
}

// bindEnvs walks the mapstructure tags of t and binds one env var per leaf.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		name, opts, _ := strings.Cut(tag, ",")
		squash := strings.Contains(opts, "squash")
		if name == "" && !squash {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" && !squash {
			key = prefix + "." + name
		}
		if squash {
			key = prefix
		}

		ft := f.Type
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			bindEnvs(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// LoadEnvFiles exports the variables in the given dotenv files into the
// process environment without overriding variables that are already set.
// With no arguments it reads DefaultEnvFile if present.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		files = []string{DefaultEnvFile}
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "config: failed to load env file").
			WithDetail(strings.Join(files, ","))
	}
	return nil
}

// Load reads the YAML file at configPath, merges any LIGANDSCREEN_*
// environment overrides, applies defaults for unset fields, and validates the
// result.  An empty configPath behaves like LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid,
			fmt.Sprintf("config: failed to read config file %q", configPath))
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from LIGANDSCREEN_* environment
// variables and defaults.
//
// Environment variable naming convention:
//
//	LIGANDSCREEN_<SECTION>_<FIELD>   e.g.  LIGANDSCREEN_SCREENING_TOP_N
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "config: failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is modified.  Edits that fail to parse or validate are
// reported to onError (when non-nil) and otherwise ignored, so a running
// process never sees a broken Config.
//
// Watch is non-blocking; viper owns the watcher goroutine.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid,
			fmt.Sprintf("config: failed to read config file %q", configPath))
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
