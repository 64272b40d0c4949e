package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	F "flu.com/flu/fluid"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig2() Config {
	return Config{
		Dimension: 2,
		Timestep:  1.0 / 60.0,
		Steps:     20,
		Settings:  F.DefaultSettings(),
		Box:       BoxConfig{Min: []float32{-15, -15}, Max: []float32{15, 15}},
		Layout:    LayoutConfig{Counts: []int{5, 5}, Spacing: 0.3, Center: []float32{0, 0}},
	}
}

func testScene(t *testing.T) *Scene[mgl32.Vec2] {
	s, err := NewScene[mgl32.Vec2](testConfig2())
	require.NoError(t, err)
	require.Equal(t, 25, s.Solver.Count())
	return s
}

func script(t *testing.T, text string) []Command {
	cmds, err := ParseScript(strings.NewReader(text))
	require.NoError(t, err)
	return cmds
}

func TestSceneDimension(t *testing.T) {
	_, err := NewScene[mgl32.Vec3](testConfig2())
	assert.True(t, errors.Is(err, F.ErrDimensionMismatch))

	cfg := testConfig2()
	cfg.Box.Max = []float32{-20, 15}
	_, err = NewScene[mgl32.Vec2](cfg)
	assert.Error(t, err)
}

func TestSceneRun(t *testing.T) {
	s := testScene(t)
	ctx := context.Background()

	//The script steps explicitly, then pause stops the automatic ticks
	require.NoError(t, s.Run(ctx, 20, script(t, "step 3\npause\n")))
	assert.Equal(t, 3, s.Ticks())
	assert.True(t, s.Paused())
	assert.False(t, s.Tick())

	//Explicit steps still run while paused
	require.NoError(t, s.Apply(ctx, Command{Op: CMD_STEP, Args: []string{"2"}}))
	assert.Equal(t, 5, s.Ticks())

	require.NoError(t, s.Run(ctx, 12, script(t, "resume\n")))
	assert.Equal(t, 12, s.Ticks())
	assert.False(t, s.Paused())
}

func TestSceneCommands(t *testing.T) {
	s := testScene(t)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, 0, script(t, `add 0 10
mouse 0 -5
step 1
release
set gravity -2
set density_kernel poly6
set gradient "#000000,#ffffff,#ff0000"
`)))
	assert.Equal(t, 26, s.Solver.Count())
	assert.Nil(t, s.mouse)
	assert.Equal(t, float32(-2), s.Solver.Settings().Gravity)
	assert.Equal(t, F.Poly6, s.Solver.Settings().DensityKernel)
	assert.Equal(t, [3]string{"#000000", "#ffffff", "#ff0000"}, s.palette.Stops())

	err := s.Apply(ctx, Command{Op: CMD_SET, Args: []string{"viscosity", "1"}})
	assert.True(t, errors.Is(err, F.ErrInvalidSettings))
	err = s.Apply(ctx, Command{Op: CMD_SET, Args: []string{"smoothing_radius", "0"}})
	assert.True(t, errors.Is(err, F.ErrInvalidSettings))
	err = s.Apply(ctx, Command{Op: CMD_SET, Args: []string{"gradient", "#000000,#ffffff"}})
	assert.Error(t, err)
	err = s.Apply(ctx, Command{Op: CMD_MOUSE, Args: []string{"1", "2", "3"}})
	assert.True(t, errors.Is(err, F.ErrDimensionMismatch))

	//Rejected commands leave the settings alone
	assert.Equal(t, float32(-2), s.Solver.Settings().Gravity)
	assert.Equal(t, F.DefaultSettings().SmoothingRadius, s.Solver.Settings().SmoothingRadius)
}

func TestSceneStage(t *testing.T) {
	s := testScene(t)
	cfg := testConfig2()
	cfg.Timestep = 0.02
	cfg.Settings.Gravity = 0
	s.Stage(cfg)

	//Nothing changes until the next tick
	assert.Equal(t, F.DefaultSettings().Gravity, s.Solver.Settings().Gravity)
	require.True(t, s.Tick())
	assert.Equal(t, float32(0), s.Solver.Settings().Gravity)
	assert.Equal(t, float32(0.02), s.Timestep)

	//An invalid staged config is dropped
	bad := testConfig2()
	bad.Settings.SmoothingRadius = -1
	s.Stage(bad)
	require.True(t, s.Tick())
	assert.Equal(t, float32(0), s.Solver.Settings().Gravity)
	assert.Equal(t, float32(0.02), s.Timestep)

	//A bad box drops the whole config, settings and timestep included
	badBox := testConfig2()
	badBox.Timestep = 0.05
	badBox.Settings.Gravity = -7
	badBox.Box.Min = []float32{20, -15}
	s.Stage(badBox)
	require.True(t, s.Tick())
	assert.Equal(t, float32(0), s.Solver.Settings().Gravity)
	assert.Equal(t, float32(0.02), s.Timestep)
	assert.Equal(t, mgl32.Vec2{-15, -15}, s.Solver.BoundingBox().Min)

	wrongDim := testConfig2()
	wrongDim.Settings.Gravity = -7
	wrongDim.Box.Max = []float32{15, 15, 15}
	s.Stage(wrongDim)
	require.True(t, s.Tick())
	assert.Equal(t, float32(0), s.Solver.Settings().Gravity)
}

func TestSceneCancel(t *testing.T) {
	s := testScene(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, 100, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, s.Ticks(), 100)

	err = s.Run(ctx, 100, script(t, "step 5\n"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSceneFrame(t *testing.T) {
	s := testScene(t)
	require.True(t, s.Tick())

	frame := s.Frame()
	assert.Equal(t, 1, frame.Tick)
	assert.Len(t, frame.Positions, 2*25)
	assert.Len(t, frame.Colors, 3*25)
	for _, c := range frame.Colors {
		assert.True(t, c >= 0 && c <= 1)
	}
	assert.Equal(t, s.Solver.Position(3)[1], frame.Positions[7])

	stats := s.Stats()
	assert.Equal(t, 1, stats.Tick)
	assert.Equal(t, 25, stats.Count)
	assert.Greater(t, stats.MeanDensity, 0.0)
	assert.GreaterOrEqual(t, stats.MaxDensity, stats.MeanDensity)
	assert.GreaterOrEqual(t, stats.MaxSpeed, stats.MeanSpeed)
	assert.Contains(t, stats.Fields(), "density")
}

func TestPalette(t *testing.T) {
	p, err := NewPalette(F.DefaultSettings().Gradient)
	require.NoError(t, err)
	assert.Equal(t, "#00ffff", p.Hex(0))
	assert.Equal(t, "#ff0000", p.Hex(1))
	r, g, b := p.RGB(1)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})

	snap := &F.Snapshot[mgl32.Vec2]{
		Positions:  []mgl32.Vec2{{0, 0}, {1, 1}},
		Velocities: []mgl32.Vec2{{0, 0}, {100, 0}},
		FastSpeed:  10,
	}
	colors := ColorBuffer(p, snap, nil)
	assert.Equal(t, []float32{0, 1, 1, 1, 0, 0}, colors)

	_, err = NewPalette([3]string{"#00ffff", "nope", "#ff0000"})
	assert.True(t, errors.Is(err, F.ErrInvalidSettings))
}
