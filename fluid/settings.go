package fluid

import (
	"fmt"
	"math"
	"strings"
)

//SearchMethod selects the neighbor search strategy
type SearchMethod int

const (
	BruteForce SearchMethod = iota
	Grid
)

func (m SearchMethod) String() string {
	switch m {
	case BruteForce:
		return "BruteForce"
	case Grid:
		return "Grid"
	}
	return fmt.Sprintf("SearchMethod(%d)", int(m))
}

func ParseSearchMethod(s string) (SearchMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bruteforce", "brute", "brute-force":
		return BruteForce, nil
	case "grid":
		return Grid, nil
	}
	return 0, fmt.Errorf("%w: unknown search method %q", ErrInvalidSettings, s)
}

func (m SearchMethod) MarshalText() ([]byte, error) {
	if m != BruteForce && m != Grid {
		return nil, fmt.Errorf("%w: search method %d", ErrInvalidSettings, int(m))
	}
	return []byte(m.String()), nil
}

func (m *SearchMethod) UnmarshalText(text []byte) error {
	parsed, err := ParseSearchMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

//Settings - Simulation parameters injected into the solver. The record is only
//changed between steps; the solver reads it as a constant while stepping
type Settings struct {
	ParticleRadius float32 `mapstructure:"particle_radius" toml:"particle_radius"` //Radius used for encasement and drawing
	ParticleMass   float32 `mapstructure:"particle_mass" toml:"particle_mass"`

	TargetDensity         float32 `mapstructure:"target_density" toml:"target_density"`
	PressureStiffness     float32 `mapstructure:"pressure_stiffness" toml:"pressure_stiffness"`
	NearPressureStiffness float32 `mapstructure:"near_pressure_stiffness" toml:"near_pressure_stiffness"`
	SmoothingRadius       float32 `mapstructure:"smoothing_radius" toml:"smoothing_radius"` //Kernel support, also the grid cell side

	FastSpeed      float32 `mapstructure:"fast_speed" toml:"fast_speed"` //Speed mapped to the last gradient stop
	Gravity        float32 `mapstructure:"gravity" toml:"gravity"`
	EncaseFriction float32 `mapstructure:"encase_friction" toml:"encase_friction"` //Fraction of normal velocity lost on a wall hit

	ViscLinearTerm    float32    `mapstructure:"visc_linear_term" toml:"visc_linear_term"`
	ViscQuadraticTerm float32    `mapstructure:"visc_quadratic_term" toml:"visc_quadratic_term"`
	ViscosityKernel   KernelType `mapstructure:"viscosity_kernel" toml:"viscosity_kernel"`

	MouseRadius float32 `mapstructure:"mouse_radius" toml:"mouse_radius"`
	MouseForce  float32 `mapstructure:"mouse_force" toml:"mouse_force"` //Negative attracts, positive repels

	Gradient [3]string `mapstructure:"gradient" toml:"gradient"` //Hex color stops for slow to fast particles

	SearchMethod      SearchMethod `mapstructure:"search_method" toml:"search_method"`
	DensityKernel     KernelType   `mapstructure:"density_kernel" toml:"density_kernel"`
	NearDensityKernel KernelType   `mapstructure:"near_density_kernel" toml:"near_density_kernel"`

	Workers int `mapstructure:"workers" toml:"workers"` //Goroutines for the pairwise phases, 1 runs inline
}

//DefaultSettings - water-like defaults tuned for a unit smoothing radius
func DefaultSettings() Settings {
	return Settings{
		ParticleRadius:        0.1,
		ParticleMass:          1.0,
		TargetDensity:         10.0,
		PressureStiffness:     100.0,
		NearPressureStiffness: 25.0,
		SmoothingRadius:       1.0,
		FastSpeed:             35.0,
		Gravity:               -4.0,
		EncaseFriction:        0.8,
		ViscLinearTerm:        0.06,
		ViscQuadraticTerm:     0.0,
		ViscosityKernel:       Poly6,
		MouseRadius:           6.0,
		MouseForce:            -30.0,
		Gradient:              [3]string{"#00ffff", "#ffff00", "#ff0000"},
		SearchMethod:          Grid,
		DensityKernel:         Spiky3,
		NearDensityKernel:     Spiky5,
		Workers:               1,
	}
}

func finite(xs ...float32) bool {
	for _, x := range xs {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

//Validate rejects settings that would make a step degenerate (division by a
//zero mass or radius) so the solver never has to check per step
func (s *Settings) Validate() error {
	if !finite(s.ParticleRadius, s.ParticleMass, s.TargetDensity, s.PressureStiffness,
		s.NearPressureStiffness, s.SmoothingRadius, s.FastSpeed, s.Gravity, s.EncaseFriction,
		s.ViscLinearTerm, s.ViscQuadraticTerm, s.MouseRadius, s.MouseForce) {
		return fmt.Errorf("%w: non finite parameter", ErrInvalidSettings)
	}
	if s.SmoothingRadius <= 0 {
		return fmt.Errorf("%w: smoothing radius must be positive, is %g", ErrInvalidSettings, s.SmoothingRadius)
	}
	if s.ParticleMass <= 0 {
		return fmt.Errorf("%w: particle mass must be positive, is %g", ErrInvalidSettings, s.ParticleMass)
	}
	if s.ParticleRadius < 0 {
		return fmt.Errorf("%w: particle radius must not be negative, is %g", ErrInvalidSettings, s.ParticleRadius)
	}
	if s.EncaseFriction < 0 || s.EncaseFriction > 1 {
		return fmt.Errorf("%w: encase friction must be in [0, 1], is %g", ErrInvalidSettings, s.EncaseFriction)
	}
	if s.MouseRadius < 0 {
		return fmt.Errorf("%w: mouse radius must not be negative, is %g", ErrInvalidSettings, s.MouseRadius)
	}
	if s.FastSpeed <= 0 {
		return fmt.Errorf("%w: fast speed must be positive, is %g", ErrInvalidSettings, s.FastSpeed)
	}
	for name, k := range map[string]KernelType{
		"density": s.DensityKernel, "near density": s.NearDensityKernel, "viscosity": s.ViscosityKernel,
	} {
		if !k.Valid() {
			return fmt.Errorf("%w: %s kernel %d out of range", ErrInvalidSettings, name, int(k))
		}
	}
	if s.SearchMethod != BruteForce && s.SearchMethod != Grid {
		return fmt.Errorf("%w: search method %d out of range", ErrInvalidSettings, int(s.SearchMethod))
	}
	if s.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, is %d", ErrInvalidSettings, s.Workers)
	}
	return nil
}

//Pressure returns the pressure and near pressure of a density pair
func (s *Settings) Pressure(density float32, nearDensity float32) (float32, float32) {
	return s.PressureStiffness * (density - s.TargetDensity), s.NearPressureStiffness * nearDensity
}
