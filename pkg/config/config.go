package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/tagmap"
)

type Config struct {
	ArtistsLimit       int             `koanf:"artists_limit" default:"3" validate:"min=0"`
	ArtistsShortForm   string          `koanf:"artists_short_form" default:"VA"`
	BackupSuffix       string          `koanf:"backup_suffix"`
	CoverDescription   string          `koanf:"cover_description" default:"Cover"`
	CoverMaxSize       int             `koanf:"cover_max_size" default:"1400" validate:"min=0"`
	CoverPictureType   string          `koanf:"cover_picture_type" default:"Front Cover"`
	LogLevel           string          `koanf:"log_level" default:"info" validate:"oneof=debug info warn error"`
	TagMappings        tagmap.Mappings `koanf:"tag_mappings"`
	TrackNumberPadding int             `koanf:"track_number_padding" default:"2" validate:"min=0,max=10"`
}

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "./mediatag.yaml"
)

// New loads the config from defaults, then the YAML file named by
// CONFIG_FILE (a missing file is fine), then environment variables named
// after the upper snake case of each key.
func New() (*Config, error) {
	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.WithStack(err)
	}

	keys := configKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		// Maps can only come from the file
		if !keys[key] || key == "tag_mappings" {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns the default config without reading the file or the
// environment.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.TagMappings = tagmap.Defaults()
	return cfg
}

// finalize validates cfg and fills in default tag mappings for containers
// the file left out.
func (c *Config) finalize() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			name := toSnakeCase(verrs[0].StructField())
			return errors.Errorf("invalid config %s (%s): failed %s", strings.ToUpper(name), name, verrs[0].Tag())
		}
		return errors.WithStack(err)
	}

	if err := tagmap.Validate(c.TagMappings); err != nil {
		return err
	}
	if c.TagMappings == nil {
		c.TagMappings = tagmap.Mappings{}
	}
	for format, mapping := range tagmap.Defaults() {
		if _, ok := c.TagMappings[format]; !ok {
			c.TagMappings[format] = mapping
		}
	}

	return nil
}

// configKeys returns the koanf keys of Config.
func configKeys() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		keys[toSnakeCase(t.Field(i).Name)] = true
	}
	return keys
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
