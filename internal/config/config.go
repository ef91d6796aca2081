package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/menta2k/pair-labeler/pkg/canvas"
	"github.com/menta2k/pair-labeler/pkg/imageio"
	"github.com/menta2k/pair-labeler/pkg/session"
	"github.com/menta2k/pair-labeler/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. LABELPAIR_CANVAS_EPSILON
const EnvPrefix = "LABELPAIR"

// Config holds the application configuration
type Config struct {
	Canvas CanvasConfig `mapstructure:"canvas"`
	Labels LabelsConfig `mapstructure:"labels"`
	Image  ImageConfig  `mapstructure:"image"`
	Output OutputConfig `mapstructure:"output"`
	Colors ColorsConfig `mapstructure:"colors"`
	Log    LogConfig    `mapstructure:"log"`
}

// CanvasConfig holds editing behaviour
type CanvasConfig struct {
	Epsilon   float64 `mapstructure:"epsilon"`
	UndoDepth int     `mapstructure:"undo_depth"`

	// KeepPrevious carries the shapes of the last pair into a new pair without shapes
	KeepPrevious bool `mapstructure:"keep_previous"`
}

// LabelsConfig holds label validation and flag defaults
type LabelsConfig struct {
	Flags    []LabelFlagRule `mapstructure:"flags"`
	Validate string          `mapstructure:"validate"`
	Known    []string        `mapstructure:"known"`
}

// LabelFlagRule seeds Flags on shapes whose label matches Pattern
type LabelFlagRule struct {
	Pattern string   `mapstructure:"pattern"`
	Flags   []string `mapstructure:"flags"`
}

// ImageConfig holds image handling options
type ImageConfig struct {
	StoreData   bool `mapstructure:"store_data"`
	JPEGQuality int  `mapstructure:"jpeg_quality"`
}

// OutputConfig holds where and when label files are written
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	AutoSave bool   `mapstructure:"auto_save"`
}

// ColorsConfig holds the document default colours as [r, g, b] or [r, g, b, a]
type ColorsConfig struct {
	Line []int `mapstructure:"line"`
	Fill []int `mapstructure:"fill"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			Epsilon:   canvas.DefaultEpsilon,
			UndoDepth: 1,
		},
		Labels: LabelsConfig{
			Flags: []LabelFlagRule{},
			Known: []string{},
		},
		Image: ImageConfig{
			StoreData:   true,
			JPEGQuality: imageio.DefaultJPEGQuality,
		},
		Colors: ColorsConfig{
			Line: []int{0, 255, 0, 128},
			Fill: []int{255, 0, 0, 128},
		},
		Log: LogConfig{
			Mode: "debug",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("canvas.epsilon", d.Canvas.Epsilon)
	v.SetDefault("canvas.undo_depth", d.Canvas.UndoDepth)
	v.SetDefault("canvas.keep_previous", d.Canvas.KeepPrevious)

	v.SetDefault("labels.flags", []map[string]any{})
	v.SetDefault("labels.validate", d.Labels.Validate)
	v.SetDefault("labels.known", d.Labels.Known)

	v.SetDefault("image.store_data", d.Image.StoreData)
	v.SetDefault("image.jpeg_quality", d.Image.JPEGQuality)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.auto_save", d.Output.AutoSave)

	v.SetDefault("colors.line", d.Colors.Line)
	v.SetDefault("colors.fill", d.Colors.Fill)

	v.SetDefault("log.mode", d.Log.Mode)
}

// Load reads configuration from path on fs. An empty path yields the
// defaults. Environment variables override both.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if fs != nil {
			v.SetFs(fs)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Canvas.Epsilon <= 0 {
		return fmt.Errorf("canvas.epsilon must be positive")
	}

	if c.Canvas.UndoDepth < 1 {
		return fmt.Errorf("canvas.undo_depth must be at least 1")
	}

	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("image.jpeg_quality must be between 1 and 100")
	}

	if _, err := session.ParseValidateMode(c.Labels.Validate); err != nil {
		return fmt.Errorf("labels.validate: %w", err)
	}

	if c.Labels.Validate != "" && len(c.Labels.Known) == 0 {
		return fmt.Errorf("labels.known cannot be empty when labels.validate is set")
	}

	for i, r := range c.Labels.Flags {
		if r.Pattern == "" {
			return fmt.Errorf("labels.flags[%d].pattern cannot be empty", i)
		}
	}

	if _, err := types.ColorFromInts(c.Colors.Line); err != nil {
		return fmt.Errorf("colors.line: %w", err)
	}

	if _, err := types.ColorFromInts(c.Colors.Fill); err != nil {
		return fmt.Errorf("colors.fill: %w", err)
	}

	return nil
}

// SessionOptions converts the configuration into session options
func (c *Config) SessionOptions() (session.Options, error) {
	line, err := types.ColorFromInts(c.Colors.Line)
	if err != nil {
		return session.Options{}, fmt.Errorf("colors.line: %w", err)
	}
	fill, err := types.ColorFromInts(c.Colors.Fill)
	if err != nil {
		return session.Options{}, fmt.Errorf("colors.fill: %w", err)
	}
	mode, err := session.ParseValidateMode(c.Labels.Validate)
	if err != nil {
		return session.Options{}, err
	}

	var flags map[string][]string
	if len(c.Labels.Flags) > 0 {
		flags = make(map[string][]string, len(c.Labels.Flags))
		for _, r := range c.Labels.Flags {
			flags[r.Pattern] = append(flags[r.Pattern], r.Flags...)
		}
	}

	return session.Options{
		Epsilon:      c.Canvas.Epsilon,
		UndoDepth:    c.Canvas.UndoDepth,
		LabelFlags:   flags,
		ValidateMode: mode,
		KnownLabels:  append([]string(nil), c.Labels.Known...),
		StoreData:    c.Image.StoreData,
		OutputDir:    c.Output.Dir,
		AutoSave:     c.Output.AutoSave,
		LineColor:    line,
		FillColor:    fill,
		JPEGQuality:  c.Image.JPEGQuality,
	}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "labelpair", "config.yaml")
}
