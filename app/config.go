package app

//Run configuration - TOML files read through viper with FLU_ environment
//overrides. Enumerations decode from their names.
import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	F "flu.com/flu/fluid"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "FLU"

//Config is one simulation run
type Config struct {
	Dimension int          `mapstructure:"dimension"`
	Timestep  float32      `mapstructure:"timestep"`
	Steps     int          `mapstructure:"steps"`
	Settings  F.Settings   `mapstructure:"settings"`
	Box       BoxConfig    `mapstructure:"box"`
	Layout    LayoutConfig `mapstructure:"layout"`
}

//BoxConfig holds the box corners, one value per axis
type BoxConfig struct {
	Min []float32 `mapstructure:"min"`
	Max []float32 `mapstructure:"max"`
}

//LayoutConfig is the starting lattice. No counts means no starting particles
type LayoutConfig struct {
	Counts  []int     `mapstructure:"counts"`
	Spacing float32   `mapstructure:"spacing"`
	Center  []float32 `mapstructure:"center"`
	Jitter  float32   `mapstructure:"jitter"`
	Seed    uint64    `mapstructure:"seed"`
}

//NewViper returns a viper instance reading from fs with every default registered
func NewViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("toml")
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("dimension", 2)
	v.SetDefault("timestep", 1.0/60.0)
	v.SetDefault("steps", 600)
	for key, value := range settingsMap(F.DefaultSettings()) {
		v.SetDefault("settings."+key, value)
	}
	v.SetDefault("layout.spacing", 0.3)
	return v
}

//settingsMap flattens settings into TOML friendly values keyed like the file
func settingsMap(s F.Settings) map[string]interface{} {
	return map[string]interface{}{
		"particle_radius":         f64(s.ParticleRadius),
		"particle_mass":           f64(s.ParticleMass),
		"target_density":          f64(s.TargetDensity),
		"pressure_stiffness":      f64(s.PressureStiffness),
		"near_pressure_stiffness": f64(s.NearPressureStiffness),
		"smoothing_radius":        f64(s.SmoothingRadius),
		"fast_speed":              f64(s.FastSpeed),
		"gravity":                 f64(s.Gravity),
		"encase_friction":         f64(s.EncaseFriction),
		"visc_linear_term":        f64(s.ViscLinearTerm),
		"visc_quadratic_term":     f64(s.ViscQuadraticTerm),
		"viscosity_kernel":        s.ViscosityKernel.String(),
		"mouse_radius":            f64(s.MouseRadius),
		"mouse_force":             f64(s.MouseForce),
		"gradient":                []string{s.Gradient[0], s.Gradient[1], s.Gradient[2]},
		"search_method":           s.SearchMethod.String(),
		"density_kernel":          s.DensityKernel.String(),
		"near_density_kernel":     s.NearDensityKernel.String(),
		"workers":                 int64(s.Workers),
	}
}

var (
	kernelType   = reflect.TypeOf(F.KernelType(0))
	searchMethod = reflect.TypeOf(F.SearchMethod(0))
)

//enumHook decodes kernel and search method names
func enumHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to {
	case kernelType:
		return F.ParseKernelType(data.(string))
	case searchMethod:
		return F.ParseSearchMethod(data.(string))
	}
	return data, nil
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		enumHook,
		gradientHook,
		mapstructure.StringToSliceHookFunc(","),
	))
}

//LoadConfig reads path (when not empty) and decodes the merged configuration
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return DecodeConfig(v)
}

//DecodeConfig decodes and validates the current viper state. A missing box or
//layout center is filled in for the configured dimension
func DecodeConfig(v *viper.Viper) (Config, error) {
	cfg := Config{}
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return Config{}, fmt.Errorf("%w: %v", F.ErrInvalidSettings, err)
	}
	if cfg.Dimension != 2 && cfg.Dimension != 3 {
		return Config{}, fmt.Errorf("%w: dimension must be 2 or 3, is %d", F.ErrDimensionMismatch, cfg.Dimension)
	}
	if len(cfg.Box.Min) == 0 && len(cfg.Box.Max) == 0 {
		cfg.Box.Min = splat(cfg.Dimension, -15)
		cfg.Box.Max = splat(cfg.Dimension, 15)
	}
	if len(cfg.Layout.Center) == 0 {
		cfg.Layout.Center = splat(cfg.Dimension, 0)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//splitList splits a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splat(n int, x float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = x
	}
	return out
}

//Validate checks the run level fields and the solver settings
func (c *Config) Validate() error {
	if c.Timestep < 0 {
		return fmt.Errorf("%w: timestep must not be negative, is %g", F.ErrInvalidSettings, c.Timestep)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must not be negative, is %d", F.ErrInvalidSettings, c.Steps)
	}
	for name, xs := range map[string][]float32{"box.min": c.Box.Min, "box.max": c.Box.Max, "layout.center": c.Layout.Center} {
		if len(xs) != c.Dimension {
			return fmt.Errorf("%w: %s needs %d values, has %d", F.ErrDimensionMismatch, name, c.Dimension, len(xs))
		}
	}
	if n := len(c.Layout.Counts); n != 0 && n != c.Dimension {
		return fmt.Errorf("%w: layout.counts needs %d values, has %d", F.ErrDimensionMismatch, c.Dimension, n)
	}
	return c.Settings.Validate()
}

//WatchConfig decodes the file again on every change and hands valid results to
//onChange. Invalid edits are logged and skipped
func WatchConfig(v *viper.Viper, onChange func(Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := DecodeConfig(v)
		if err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("ignoring config change")
			return
		}
		log.WithField("file", e.Name).Info("config reloaded")
		onChange(cfg)
	})
	v.WatchConfig()
}

//ExampleConfig renders the default configuration for dim as TOML
func ExampleConfig(dim int) (string, error) {
	if dim != 2 && dim != 3 {
		return "", fmt.Errorf("%w: no example for dimension %d", F.ErrDimensionMismatch, dim)
	}
	settings := map[string]interface{}{}
	for key, value := range settingsMap(F.DefaultSettings()) {
		settings[key] = value
	}
	counts := []interface{}{int64(20), int64(20)}
	if dim == 3 {
		counts = []interface{}{int64(10), int64(10), int64(10)}
	}
	tree, err := toml.TreeFromMap(map[string]interface{}{
		"dimension": int64(dim),
		"timestep":  1.0 / 60.0,
		"steps":     int64(600),
		"settings":  settings,
		"box": map[string]interface{}{
			"min": floats64(splat(dim, -15)),
			"max": floats64(splat(dim, 15)),
		},
		"layout": map[string]interface{}{
			"counts":  counts,
			"spacing": 0.3,
			"center":  floats64(splat(dim, 0)),
		},
	})
	if err != nil {
		return "", err
	}
	return tree.ToTomlString()
}

//f64 widens x keeping its shortest decimal form, 0.1 stays 0.1
func f64(x float32) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(x), 'g', -1, 32), 64)
	return f
}

func floats64(xs []float32) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = f64(x)
	}
	return out
}
