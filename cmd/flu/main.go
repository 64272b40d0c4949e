package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flu.com/flu/app"
	F "flu.com/flu/fluid"
	V "flu.com/flu/vector"
	"github.com/go-gl/mathgl/mgl32"
	colorable "github.com/mattn/go-colorable"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

var log = logrus.WithField("pkg", "main")

type runOptions struct {
	config  string
	scene   string
	script  string
	dump    string
	profile string
	steps   int
	field   int
	report  int
	watch   bool
	verbose bool
}

func main() {
	logrus.SetOutput(colorable.NewColorableStdout())
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
	if err := newRootCmd(afero.NewOsFs()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	root := &cobra.Command{
		Use:          "flu",
		Short:        "Real time SPH fluid simulation",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(fs), newExampleCmd(), newKernelsCmd())
	return root
}

func newRunCmd(fs afero.Fs) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a headless simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
				jww.SetStdoutThreshold(jww.LevelDebug)
			}
			switch opts.profile {
			case "":
			case "cpu":
				defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
			case "mem":
				defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
			default:
				return fmt.Errorf("unknown profile mode %q, use cpu or mem", opts.profile)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			v := app.NewViper(fs)
			cfg, err := app.LoadConfig(v, opts.config)
			if err != nil {
				return err
			}
			if opts.steps > 0 {
				cfg.Steps = opts.steps
			}
			if cfg.Dimension == 3 {
				return runScene[mgl32.Vec3](ctx, fs, v, cfg, opts)
			}
			return runScene[mgl32.Vec2](ctx, fs, v, cfg, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.config, "config", "c", "", "TOML run configuration")
	flags.StringVar(&opts.scene, "scene", "", "gcfg scene file with the particle blocks to spawn")
	flags.StringVar(&opts.script, "script", "", "event script played before the automatic ticks")
	flags.StringVar(&opts.dump, "dump", "", "write the final positions and colors as a table")
	flags.StringVar(&opts.profile, "profile", "", "profile the run, cpu or mem")
	flags.IntVar(&opts.steps, "steps", 0, "override the configured number of ticks")
	flags.IntVar(&opts.field, "field", 0, "sample the density field on n cells per axis after the run")
	flags.IntVar(&opts.report, "report", 60, "log statistics every n ticks, 0 disables")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "apply edits of the config file while running")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runScene[T V.Vec](ctx context.Context, fs afero.Fs, v *viper.Viper, cfg app.Config, opts runOptions) error {
	scene, err := app.NewScene[T](cfg)
	if err != nil {
		return err
	}
	scene.Report = opts.report

	if opts.scene != "" {
		sc, err := app.ReadScene(fs, opts.scene, cfg.Dimension)
		if err != nil {
			return err
		}
		n, err := app.SpawnScene(scene.Solver, sc)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"scene": opts.scene, "count": n}).Info("scene spawned")
	}

	var script []app.Command
	if opts.script != "" {
		f, err := fs.Open(opts.script)
		if err != nil {
			return err
		}
		script, err = app.ParseScript(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("script %s: %w", opts.script, err)
		}
	}

	if opts.watch && opts.config != "" {
		app.WatchConfig(v, func(c app.Config) {
			if c.Dimension != cfg.Dimension {
				log.WithError(F.ErrDimensionMismatch).Warn("dimension can not change while running")
				return
			}
			scene.Stage(c)
		})
	}

	log.WithFields(logrus.Fields{
		"dimension": cfg.Dimension,
		"particles": scene.Solver.Count(),
		"steps":     cfg.Steps,
		"search":    cfg.Settings.SearchMethod,
		"workers":   cfg.Settings.Workers,
	}).Info("starting")
	start := time.Now()
	err = scene.Run(ctx, cfg.Steps, script)
	if errors.Is(err, context.Canceled) {
		log.Warn("interrupted")
		err = nil
	}
	if err != nil {
		return err
	}
	log.WithFields(scene.Stats().Fields()).WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("done")

	if opts.field > 0 {
		field, err := F.NewVoxelField(scene.Solver.BoundingBox(), opts.field)
		if err != nil {
			return err
		}
		scene.Solver.SampleField(field)
		log.WithFields(logrus.Fields{
			"cells":    field.Len(),
			"occupied": field.Occupied(cfg.Settings.TargetDensity / 2),
		}).Info("density field")
	}
	if opts.dump != "" {
		return dumpFrame(fs, opts.dump, cfg.Dimension, scene.Frame())
	}
	return nil
}

//dumpFrame writes one "position color" row per particle. The first columns can
//be spawned again through a scene Table section
func dumpFrame(fs afero.Fs, fname string, dim int, frame app.Frame) (err error) {
	f, err := fs.Create(fname)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return writeFrame(f, dim, frame)
}

func writeFrame(w io.Writer, dim int, frame app.Frame) error {
	if _, err := fmt.Fprintf(w, "# tick %d, %d position columns then r g b\n", frame.Tick, dim); err != nil {
		return err
	}
	n := len(frame.Colors) / 3
	for i := 0; i < n; i++ {
		for _, x := range frame.Positions[i*dim : (i+1)*dim] {
			if _, err := fmt.Fprintf(w, "%g ", x); err != nil {
				return err
			}
		}
		c := frame.Colors[3*i : 3*i+3]
		if _, err := fmt.Fprintf(w, "%.4f %.4f %.4f\n", c[0], c[1], c[2]); err != nil {
			return err
		}
	}
	return nil
}

func newExampleCmd() *cobra.Command {
	dim := 2
	cmd := &cobra.Command{
		Use:       "example config|scene",
		Short:     "Print an example configuration or scene file",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"config", "scene"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "scene" {
				fmt.Fprint(cmd.OutOrStdout(), app.ExampleScene)
				return nil
			}
			text, err := app.ExampleConfig(dim)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().IntVar(&dim, "dim", 2, "dimension of the example config, 2 or 3")
	return cmd
}

func newKernelsCmd() *cobra.Command {
	h := float32(1)
	return &cobra.Command{
		Use:   "kernels",
		Short: "List the smoothing kernels with their central value and slope",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %12s %12s %12s %12s\n", "kernel", "W2(0)", "W2'(h/2)", "W3(0)", "W3'(h/2)")
			t2, err := F.Kernels(2)
			if err != nil {
				return err
			}
			t3, err := F.Kernels(3)
			if err != nil {
				return err
			}
			for _, k := range F.KernelTypes() {
				fmt.Fprintf(out, "%-12s %12.5g %12.5g %12.5g %12.5g\n", k,
					t2.Value(k, h, 0), t2.Slope(k, h, h/2),
					t3.Value(k, h, 0), t3.Slope(k, h, h/2))
			}
			return nil
		},
	}
}
