package app

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	F "flu.com/flu/fluid"
	G "flu.com/flu/geometry"
	U "flu.com/flu/utils"
	V "flu.com/flu/vector"
	"github.com/phil-mansfield/table"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"gopkg.in/gcfg.v1"
)

//Scene files name the particle blocks spawned at start up, e.g.
//
//	[Lattice "dam"]
//	Center = -8 0
//	Counts = 20 20
//	Spacing = 0.35
//
//	[Table "drop"]
//	File = drop.txt
//	Columns = 0 1
//
//Vector valued fields are whitespace separated lists.

const ExampleScene = `# Particle blocks spawned before the first step.
[Lattice "dam"]
Center = -8 0
Counts = 20 20
Spacing = 0.35

# Jitter breaks the symmetry of a perfect lattice.
[Lattice "drop"]
Center = 6 8
Counts = 8 8
Spacing = 0.3
Jitter = 0.02
Seed = 7

# Positions from the first columns of a whitespace separated table.
# [Table "points"]
# File = points.txt
# Columns = 0 1
# Scale = 1.0
# Origin = 0 0
`

type LatticeConfig struct {
	// Required
	Counts  string
	Spacing float64

	// Optional
	Center string
	Jitter float64
	Seed   int

	Name string
}

type TableConfig struct {
	// Required
	File string

	// Optional
	Columns string //Column index per axis, defaults to the first columns
	Scale   float64
	Origin  string

	Name string
}

type SceneConfig struct {
	Lattice map[string]*LatticeConfig
	Table   map[string]*TableConfig

	dir string
	fs  afero.Fs
}

func (l *LatticeConfig) CheckInit(name string, dim int) error {
	counts, err := parseInts(l.Counts)
	if err != nil {
		return fmt.Errorf("Counts of Lattice '%s': %w", name, err)
	} else if len(counts) != dim {
		return fmt.Errorf("Lattice '%s' needs %d Counts, has %d", name, dim, len(counts))
	}
	if l.Spacing <= 0 {
		return fmt.Errorf("Need to specify a positive Spacing for Lattice '%s'", name)
	}
	if l.Jitter < 0 {
		return fmt.Errorf("Lattice '%s' given a negative Jitter, %g", name, l.Jitter)
	}
	if l.Center != "" {
		center, err := parseFloats(l.Center)
		if err != nil {
			return fmt.Errorf("Center of Lattice '%s': %w", name, err)
		} else if len(center) != dim {
			return fmt.Errorf("Lattice '%s' needs %d Center values, has %d", name, dim, len(center))
		}
	}
	l.Name = name
	return nil
}

func (tc *TableConfig) CheckInit(name string, dim int) error {
	if tc.File == "" {
		return fmt.Errorf("Need to specify a File for Table '%s'", name)
	}
	if tc.Columns == "" {
		cols := make([]string, dim)
		for i := range cols {
			cols[i] = cast.ToString(i)
		}
		tc.Columns = strings.Join(cols, " ")
	}
	cols, err := parseInts(tc.Columns)
	if err != nil {
		return fmt.Errorf("Columns of Table '%s': %w", name, err)
	} else if len(cols) != dim {
		return fmt.Errorf("Table '%s' needs %d Columns, has %d", name, dim, len(cols))
	}
	if tc.Scale == 0 {
		tc.Scale = 1
	} else if tc.Scale < 0 {
		return fmt.Errorf("Table '%s' given a negative Scale, %g", name, tc.Scale)
	}
	if tc.Origin != "" {
		origin, err := parseFloats(tc.Origin)
		if err != nil {
			return fmt.Errorf("Origin of Table '%s': %w", name, err)
		} else if len(origin) != dim {
			return fmt.Errorf("Table '%s' needs %d Origin values, has %d", name, dim, len(origin))
		}
	}
	tc.Name = name
	return nil
}

//ReadScene parses and checks a scene file. Table files are resolved relative
//to the scene file
func ReadScene(fs afero.Fs, fname string, dim int) (*SceneConfig, error) {
	text, err := afero.ReadFile(fs, fname)
	if err != nil {
		return nil, err
	}
	sc := &SceneConfig{dir: filepath.Dir(fname), fs: fs}
	if err := gcfg.ReadStringInto(sc, string(text)); err != nil {
		return nil, fmt.Errorf("scene %s: %w", fname, err)
	}
	for name, l := range sc.Lattice {
		if err := l.CheckInit(name, dim); err != nil {
			return nil, err
		}
	}
	for name, tc := range sc.Table {
		if err := tc.CheckInit(name, dim); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func sortedKeys[M ~map[string]E, E any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//LatticeFor converts a checked lattice section
func LatticeFor[T V.Vec](l *LatticeConfig) (G.Lattice[T], error) {
	counts, err := parseInts(l.Counts)
	if err != nil {
		return G.Lattice[T]{}, err
	}
	lattice := G.Lattice[T]{Counts: counts, Spacing: float32(l.Spacing), Jitter: float32(l.Jitter), Seed: uint64(l.Seed)}
	if l.Center != "" {
		if lattice.Center, err = parseVec[T](l.Center); err != nil {
			return G.Lattice[T]{}, err
		}
	}
	return lattice, nil
}

//ReadTablePositions loads the positions of a checked table section from fs,
//scaled about its origin
func ReadTablePositions[T V.Vec](fs afero.Fs, tc *TableConfig, dir string) ([]T, error) {
	cols, err := parseInts(tc.Columns)
	if err != nil {
		return nil, err
	}
	fname := tc.File
	if !filepath.IsAbs(fname) {
		fname = filepath.Join(dir, fname)
	}
	path, cleanup, err := tablePath(fs, fname)
	if err != nil {
		return nil, fmt.Errorf("Table '%s': %w", tc.Name, err)
	}
	defer cleanup()
	data, err := table.ReadTable(path, cols, nil)
	if err != nil {
		return nil, fmt.Errorf("Table '%s': %w", tc.Name, err)
	}

	positions := make([]T, len(data[0]))
	for i := range positions {
		for k := range cols {
			positions[i][k] = float32(data[k][i])
		}
	}
	var origin T
	if tc.Origin != "" {
		if origin, err = parseVec[T](tc.Origin); err != nil {
			return nil, err
		}
	}
	U.ScalePositions(positions, origin, float32(tc.Scale))
	return positions, nil
}

//SpawnScene adds every block of the scene to the solver in name order and
//returns the number of particles added
func SpawnScene[T V.Vec](s *F.Solver[T], sc *SceneConfig) (int, error) {
	total := 0
	for _, name := range sortedKeys(sc.Lattice) {
		lattice, err := LatticeFor[T](sc.Lattice[name])
		if err != nil {
			return total, err
		}
		n, err := s.AddLattice(lattice)
		if err != nil {
			return total, fmt.Errorf("Lattice '%s': %w", name, err)
		}
		log.WithFields(map[string]interface{}{"lattice": name, "count": n}).Debug("spawned")
		total += n
	}
	for _, name := range sortedKeys(sc.Table) {
		positions, err := ReadTablePositions[T](sc.fs, sc.Table[name], sc.dir)
		if err != nil {
			return total, err
		}
		for _, p := range positions {
			if err := s.AddParticle(p); err != nil {
				log.WithError(err).WithField("table", name).Warn("dropping particle")
				continue
			}
			total++
		}
	}
	return total, nil
}

//tablePath returns an OS path holding fname. table only reads from disk, so
//files of any other fs are copied to a temporary file removed by cleanup
func tablePath(fs afero.Fs, fname string) (string, func(), error) {
	if _, ok := fs.(*afero.OsFs); ok {
		return fname, func() {}, nil
	}
	text, err := afero.ReadFile(fs, fname)
	if err != nil {
		return "", nil, err
	}
	osFs := afero.NewOsFs()
	f, err := afero.TempFile(osFs, "", "flu-table-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { osFs.Remove(f.Name()) }
	_, err = f.Write(text)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

func parseFloats(s string) ([]float32, error) {
	fields := strings.Fields(s)
	out := make([]float32, len(fields))
	for i, f := range fields {
		x, err := cast.ToFloat32E(f)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		x, err := cast.ToIntE(f)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func parseVec[T V.Vec](s string) (T, error) {
	xs, err := parseFloats(s)
	if err != nil {
		var zero T
		return zero, err
	}
	return V.FromSlice[T](xs)
}
