package app

//Manages the fluid scene routine - owns the solver, applies staged settings
//between ticks and plays event scripts
import (
	"context"
	"fmt"
	"reflect"
	"sync"

	F "flu.com/flu/fluid"
	G "flu.com/flu/geometry"
	U "flu.com/flu/utils"
	V "flu.com/flu/vector"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"gonum.org/v1/gonum/floats"
)

var log = logrus.WithField("pkg", "app")

//Frame is the renderer facing buffer set of one tick: dim floats of position
//and 3 floats of color per particle
type Frame struct {
	Tick      int
	Positions []float32
	Colors    []float32
}

//Stats summarizes the ensemble after a tick
type Stats struct {
	Tick        int
	Count       int
	MeanDensity float64
	MaxDensity  float64
	MeanSpeed   float64
	MaxSpeed    float64
}

func (s Stats) Fields() logrus.Fields {
	return logrus.Fields{
		"tick": s.Tick, "count": s.Count,
		"density": fmt.Sprintf("%.3f/%.3f", s.MeanDensity, s.MaxDensity),
		"speed":   fmt.Sprintf("%.3f/%.3f", s.MeanSpeed, s.MaxSpeed),
	}
}

//Scene - headless driver of one solver. Everything except Stage must be called
//from the goroutine running the ticks
type Scene[T V.Vec] struct {
	Solver   *F.Solver[T]
	Timestep float32
	Report   int //Log stats every Report ticks, 0 disables

	palette *Palette
	paused  bool
	mouse   *T
	tick    int
	frame   Frame

	mu      sync.Mutex
	pending *Config
}

//NewScene builds the solver, box, palette and starting lattice of cfg
func NewScene[T V.Vec](cfg Config) (*Scene[T], error) {
	if V.Dim[T]() != cfg.Dimension {
		return nil, fmt.Errorf("%w: %dD scene for a %dD config", F.ErrDimensionMismatch, V.Dim[T](), cfg.Dimension)
	}
	box, err := boxFor[T](cfg.Box)
	if err != nil {
		return nil, err
	}
	solver, err := F.NewSolver(cfg.Settings, box)
	if err != nil {
		return nil, err
	}
	palette, err := NewPalette(cfg.Settings.Gradient)
	if err != nil {
		return nil, err
	}

	s := &Scene[T]{Solver: solver, Timestep: cfg.Timestep, palette: palette}
	if len(cfg.Layout.Counts) > 0 {
		center, err := V.FromSlice[T](cfg.Layout.Center)
		if err != nil {
			return nil, err
		}
		n, err := solver.AddLattice(G.Lattice[T]{
			Center:  center,
			Counts:  cfg.Layout.Counts,
			Spacing: cfg.Layout.Spacing,
			Jitter:  cfg.Layout.Jitter,
			Seed:    cfg.Layout.Seed,
		})
		if err != nil {
			return nil, err
		}
		log.WithField("count", n).Info("layout spawned")
	}
	return s, nil
}

func boxFor[T V.Vec](bc BoxConfig) (G.Box[T], error) {
	lo, err := V.FromSlice[T](bc.Min)
	if err != nil {
		return G.Box[T]{}, err
	}
	hi, err := V.FromSlice[T](bc.Max)
	if err != nil {
		return G.Box[T]{}, err
	}
	return G.Box[T]{Min: lo, Max: hi}, nil
}

func (s *Scene[T]) Ticks() int {
	return s.tick
}

func (s *Scene[T]) Paused() bool {
	return s.paused
}

//Stage queues a new configuration. It is applied whole before the next tick or
//dropped when its box or settings are invalid. Safe to call from another
//goroutine, e.g. a config watcher
func (s *Scene[T]) Stage(cfg Config) {
	s.mu.Lock()
	s.pending = &cfg
	s.mu.Unlock()
}

func (s *Scene[T]) applyPending() {
	s.mu.Lock()
	cfg := s.pending
	s.pending = nil
	s.mu.Unlock()
	if cfg == nil {
		return
	}

	box, err := boxFor[T](cfg.Box)
	if err == nil {
		err = box.Validate()
	}
	if err != nil {
		log.WithError(err).Warn("staged box rejected")
		return
	}
	if err := s.setSettings(cfg.Settings); err != nil {
		log.WithError(err).Warn("staged settings rejected")
		return
	}
	s.Solver.SetBoundingBox(box)
	s.Timestep = cfg.Timestep
	log.WithField("tick", s.tick).Info("staged config applied")
}

//setSettings updates the solver and rebuilds the palette when the gradient moved
func (s *Scene[T]) setSettings(settings F.Settings) error {
	palette := s.palette
	if settings.Gradient != palette.Stops() {
		var err error
		if palette, err = NewPalette(settings.Gradient); err != nil {
			return err
		}
	}
	if err := s.Solver.SetSettings(settings); err != nil {
		return err
	}
	s.palette = palette
	return nil
}

func (s *Scene[T]) step() {
	s.applyPending()
	s.Solver.Step(s.Timestep, s.mouse)
	s.tick++
	if s.Report > 0 && s.tick%s.Report == 0 {
		log.WithFields(s.Stats().Fields()).Info("tick")
	}
}

//Tick advances one step unless paused and reports whether it stepped
func (s *Scene[T]) Tick() bool {
	if s.paused {
		return false
	}
	s.step()
	return true
}

//Apply executes one script command
func (s *Scene[T]) Apply(ctx context.Context, cmd Command) error {
	switch cmd.Op {
	case CMD_STEP:
		n, err := cast.ToIntE(cmd.Args[0])
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.step()
		}
	case CMD_MOUSE:
		p, err := argsVec[T](cmd.Args)
		if err != nil {
			return err
		}
		s.mouse = &p
	case CMD_RELEASE:
		s.mouse = nil
	case CMD_ADD:
		p, err := argsVec[T](cmd.Args)
		if err != nil {
			return err
		}
		return s.Solver.AddParticle(p)
	case CMD_PAUSE:
		s.paused = true
	case CMD_RESUME:
		s.paused = false
	case CMD_SET:
		settings, err := withSetting(s.Solver.Settings(), cmd.Args[0], cmd.Args[1])
		if err != nil {
			return err
		}
		return s.setSettings(settings)
	default:
		return fmt.Errorf("unknown command %q", cmd.Op)
	}
	return nil
}

//Run plays the script, then ticks until steps ticks have run in total, the
//scene is paused or ctx is done
func (s *Scene[T]) Run(ctx context.Context, steps int, script []Command) error {
	for _, cmd := range script {
		if err := s.Apply(ctx, cmd); err != nil {
			return fmt.Errorf("line %d %q: %w", cmd.Line, cmd.String(), err)
		}
	}
	for s.tick < steps && s.Tick() {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

//argsVec reads a point from command arguments, missing trailing axes are zero
func argsVec[T V.Vec](args []string) (T, error) {
	var p T
	if len(args) > len(p) {
		return p, fmt.Errorf("%w: %d coordinates for a %dD point", F.ErrDimensionMismatch, len(args), len(p))
	}
	for k, a := range args {
		x, err := cast.ToFloat32E(a)
		if err != nil {
			return p, err
		}
		p[k] = x
	}
	return p, nil
}

var gradientType = reflect.TypeOf([3]string{})

//gradientHook splits "a,b,c" into the three gradient stops
func gradientHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != gradientType {
		return data, nil
	}
	parts := splitList(data.(string))
	if len(parts) != 3 {
		return nil, fmt.Errorf("gradient needs 3 colors, got %d", len(parts))
	}
	return [3]string{parts[0], parts[1], parts[2]}, nil
}

//withSetting returns settings with the field tagged key decoded from value
func withSetting(settings F.Settings, key string, value string) (F.Settings, error) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(enumHook, gradientHook),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &settings,
	})
	if err != nil {
		return settings, err
	}
	if err := dec.Decode(map[string]interface{}{key: value}); err != nil {
		return settings, fmt.Errorf("%w: %v", F.ErrInvalidSettings, err)
	}
	return settings, nil
}

//Stats computes density and speed statistics of the current ensemble
func (s *Scene[T]) Stats() Stats {
	n := s.Solver.Count()
	st := Stats{Tick: s.tick, Count: n}
	if n == 0 {
		return st
	}
	densities := make([]float64, n)
	speeds := make([]float64, n)
	for i := 0; i < n; i++ {
		densities[i] = float64(s.Solver.Density(i))
		speeds[i] = float64(V.Length(s.Solver.Velocity(i)))
	}
	st.MeanDensity = floats.Sum(densities) / float64(n)
	st.MaxDensity = floats.Max(densities)
	st.MeanSpeed = floats.Sum(speeds) / float64(n)
	st.MaxSpeed = floats.Max(speeds)
	return st
}

//Frame packs the committed state into renderer buffers. The returned slices
//are reused by the next call
func (s *Scene[T]) Frame() Frame {
	snap := s.Solver.Snapshot()
	s.frame.Tick = s.tick
	s.frame.Positions = U.PackPositions(s.frame.Positions, snap.Positions)
	s.frame.Colors = ColorBuffer(s.palette, &snap, s.frame.Colors)
	return s.frame
}
