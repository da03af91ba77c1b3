package config

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"photofilter/internal/filter"
)

type Config struct {
	// Rendering
	Backend   string  `mapstructure:"BACKEND" validate:"oneof=native opencv"`
	Filter    string  `mapstructure:"FILTER" validate:"required_unless=List true,filterkind"`
	Intensity float64 `mapstructure:"INTENSITY"`
	Radius    float64 `mapstructure:"RADIUS"`
	Scale     float64 `mapstructure:"SCALE"`
	Parallel  bool    `mapstructure:"PARALLEL"`

	// Input and output
	Input         string `mapstructure:"INPUT" validate:"required_unless=List true"`
	OutputDir     string `mapstructure:"OUTPUT_DIR" validate:"required"`
	OutputFormat  string `mapstructure:"OUTPUT_FORMAT" validate:"oneof=png jpeg bmp tiff"`
	JPEGQuality   int    `mapstructure:"JPEG_QUALITY" validate:"min=1,max=100"`
	ThumbnailSize int    `mapstructure:"THUMBNAIL_SIZE" validate:"min=1"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=console json"`
	Debug     bool   `mapstructure:"DEBUG"`

	List bool `mapstructure:"LIST"`
}

// Kind returns the configured filter kind. Only valid after LoadConfig.
func (c *Config) Kind() filter.Kind {
	kind, _ := filter.ParseKind(c.Filter)
	return kind
}

// EffectiveLogLevel lets DEBUG override LOG_LEVEL.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

func flagName(tag string) string {
	return strings.ToLower(strings.ReplaceAll(tag, "_", "-"))
}

// use reflect to bind environment variables and flags based on mapstructure tags
func bind(c Config, fs *pflag.FlagSet) error {
	typ := reflect.TypeOf(c)
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		if err := viper.BindEnv(tag); err != nil {
			return fmt.Errorf("bind env %s: %w", tag, err)
		}
		if fs == nil {
			continue
		}
		if flag := fs.Lookup(flagName(tag)); flag != nil {
			if err := viper.BindPFlag(tag, flag); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag.Name, err)
			}
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("BACKEND", "native")
	viper.SetDefault("INTENSITY", filter.Intensity.Default())
	viper.SetDefault("RADIUS", filter.Radius.Default())
	viper.SetDefault("SCALE", filter.Scale.Default())
	viper.SetDefault("PARALLEL", true)
	viper.SetDefault("OUTPUT_DIR", ".")
	viper.SetDefault("OUTPUT_FORMAT", "png")
	viper.SetDefault("JPEG_QUALITY", 90)
	viper.SetDefault("THUMBNAIL_SIZE", 256)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
}

// Flags returns the command line flags understood by LoadConfig. A single
// positional argument is taken as INPUT.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("backend", "native", "filter backend: native or opencv")
	fs.String("filter", "", "filter kind, e.g. GaussianBlur")
	fs.Float64("intensity", filter.Intensity.Default(), "intensity parameter")
	fs.Float64("radius", filter.Radius.Default(), "radius parameter")
	fs.Float64("scale", filter.Scale.Default(), "scale parameter")
	fs.Bool("parallel", true, "render with parallelization (native backend)")
	fs.String("input", "", "photo to filter")
	fs.String("output-dir", ".", "directory receiving rendered photos")
	fs.String("output-format", "png", "png, jpeg, bmp or tiff")
	fs.Int("jpeg-quality", 90, "JPEG quality 1-100")
	fs.Int("thumbnail-size", 256, "longest preview side in pixels")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("log-format", "console", "console or json")
	fs.Bool("debug", false, "shorthand for --log-level debug")
	fs.Bool("list", false, "list filter kinds and their parameters")
	return fs
}

func validKind(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}
	_, err := filter.ParseKind(name)
	return err == nil
}

// LoadConfig reads environment variables and the already parsed flag set,
// which may be nil.
func LoadConfig(ctx context.Context, fs *pflag.FlagSet) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := bind(Config{}, fs); err != nil {
		return nil, err
	}
	viper.AutomaticEnv()
	setDefaults()

	if fs != nil && fs.NArg() > 0 {
		viper.Set("INPUT", fs.Arg(0))
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	if cfg.OutputFormat == "jpg" {
		cfg.OutputFormat = "jpeg"
	}

	validate := validator.New()
	if err := validate.RegisterValidation("filterkind", validKind); err != nil {
		return nil, fmt.Errorf("register validation: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
