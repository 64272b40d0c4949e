package fluid

import (
	"fmt"

	G "flu.com/flu/geometry"
	V "flu.com/flu/vector"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("pkg", "fluid")

//Solver - SPH fluid of particles confined to an axis aligned box, generic over
//the 2D and 3D vector types. Each tick runs the step protocol in fixed order:
//
//	BeginStep -> UpdateLookup -> ComputeDensities -> ApplyPressureAndViscosity
//	-> ApplyMouseForce (optional) -> ApplyComputedForces -> EndStep
//
//Step runs the whole sequence. Settings and particles must not change while a
//step is in progress.
type Solver[T V.Vec] struct {
	settings Settings
	box      G.Box[T]
	kernels  *KernelTable
	data     Particles[T]
	lookup   Searcher[T]
	scratch  []*scratch[T]
	inStep   bool
}

//NewSolver validates the settings and box and returns an empty solver
func NewSolver[T V.Vec](settings Settings, box G.Box[T]) (*Solver[T], error) {
	kernels, err := Kernels(V.Dim[T]())
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	return &Solver[T]{
		settings: settings,
		box:      box,
		kernels:  kernels,
		lookup:   NewSearcher[T](settings.SearchMethod),
	}, nil
}

func (s *Solver[T]) Settings() Settings {
	return s.settings
}

//SetSettings replaces the settings between steps. Invalid settings are
//rejected and the previous ones kept
func (s *Solver[T]) SetSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.SearchMethod != s.lookup.Method() {
		log.WithField("method", settings.SearchMethod).Debug("switching neighbor search")
		s.lookup = NewSearcher[T](settings.SearchMethod)
	}
	s.settings = settings
	return nil
}

func (s *Solver[T]) BoundingBox() G.Box[T] {
	return s.box
}

func (s *Solver[T]) SetBoundingBox(box G.Box[T]) error {
	if err := box.Validate(); err != nil {
		return err
	}
	s.box = box
	return nil
}

//AddParticle appends a resting particle at position
func (s *Solver[T]) AddParticle(position T) error {
	if !V.IsFinite(position) {
		return fmt.Errorf("fluid: non finite particle position %s", V.String(position))
	}
	s.data.add(position, s.settings.ParticleMass)
	return nil
}

//AddLattice spawns every particle of a lattice and returns how many were added
func (s *Solver[T]) AddLattice(lattice G.Lattice[T]) (int, error) {
	positions, err := lattice.Positions()
	if err != nil {
		return 0, err
	}
	for _, p := range positions {
		if err := s.AddParticle(p); err != nil {
			return 0, err
		}
	}
	log.WithField("count", len(positions)).Debug("lattice added")
	return len(positions), nil
}

//----------------------------------------------------------------------------
//Step protocol

//BeginStep swaps the position buffers, predicts positions from the current
//velocities and resets the per step accumulators
func (s *Solver[T]) BeginStep(dt float32) {
	s.inStep = true
	s.data.swap()
	for i, committed := range s.data.Staged {
		s.data.Positions[i] = V.AddScaled(committed, s.data.Velocities[i], dt)
	}
	s.data.reset(s.settings.ParticleMass)
}

//UpdateLookup rebuilds the neighbor search from the predicted positions
func (s *Solver[T]) UpdateLookup() {
	s.lookup.Update(s.data.Positions, s.settings.SmoothingRadius)
}

//ComputeDensities adds the kernel weighted mass of every neighbor pair to both
//particles of the pair
func (s *Solver[T]) ComputeDensities() {
	st := &s.settings
	h := st.SmoothingRadius
	s.forEachPair(func(buf *scratch[T]) PairFunc {
		return func(i int, j int, d float32) {
			density := st.ParticleMass * s.kernels.Value(st.DensityKernel, h, d)
			nearDensity := st.ParticleMass * s.kernels.Value(st.NearDensityKernel, h, d)

			buf.densities[i] += density
			buf.nearDensities[i] += nearDensity
			buf.densities[j] += density
			buf.nearDensities[j] += nearDensity
		}
	})
}

//ApplyPressureAndViscosity accumulates the pressure and viscosity acceleration
//of every neighbor pair, equal and opposite on the two particles
func (s *Solver[T]) ApplyPressureAndViscosity() {
	s.forEachPair(func(buf *scratch[T]) PairFunc {
		return func(i int, j int, d float32) {
			dv := s.pairAcceleration(i, j, d)
			buf.accelerations[i] = V.Add(buf.accelerations[i], dv)
			buf.accelerations[j] = V.Sub(buf.accelerations[j], dv)
		}
	})
}

//pairAcceleration is the acceleration of i due to j. Pressures and densities are
//pair means so the contribution to j is exactly its negation
func (s *Solver[T]) pairAcceleration(i int, j int, d float32) T {
	st := &s.settings
	h := st.SmoothingRadius
	positions, velocities := s.data.Positions, s.data.Velocities

	dir := V.Direction(positions[i], positions[j], d)
	slope := s.kernels.Slope(st.DensityKernel, h, d)
	nearSlope := s.kernels.Slope(st.NearDensityKernel, h, d)

	p1, np1 := st.Pressure(s.data.Densities[i], s.data.NearDensities[i])
	p2, np2 := st.Pressure(s.data.Densities[j], s.data.NearDensities[j])
	density := 0.5 * (s.data.Densities[i] + s.data.Densities[j])
	nearDensity := 0.5 * (s.data.NearDensities[i] + s.data.NearDensities[j])

	dg := 0.5 * (p1 + p2) * slope / density
	ndg := 0.5 * (np1 + np2) * nearSlope / nearDensity
	gradient := V.Scale(dir, st.ParticleMass*(dg+ndg))

	diff := V.Sub(velocities[j], velocities[i])
	visc := (st.ViscLinearTerm + st.ViscQuadraticTerm*V.Length(diff)) * s.kernels.Value(st.ViscosityKernel, h, d)

	return V.Sub(V.Scale(diff, visc), V.Scale(gradient, 1/density))
}

//ApplyMouseForce pulls or pushes the particles within MouseRadius of point with
//a strength falling off linearly to zero at the radius
func (s *Solver[T]) ApplyMouseForce(point T) {
	st := &s.settings
	r2 := st.MouseRadius * st.MouseRadius
	for i, p := range s.data.Positions {
		d2 := V.Distance2(p, point)
		if d2 >= r2 {
			continue
		}
		d := sqrt32(d2)
		factor := (1 - d/st.MouseRadius) * st.MouseForce / st.ParticleMass
		s.data.Accelerations[i] = V.AddScaled(s.data.Accelerations[i], V.Direction(p, point, d), factor)
	}
}

//ApplyComputedForces integrates gravity and the accumulated acceleration into the
//velocities, advances the committed positions and encases them
func (s *Solver[T]) ApplyComputedForces(dt float32) {
	st := &s.settings
	for i := range s.data.Velocities {
		v := s.data.Velocities[i]
		v[1] += st.Gravity * dt / st.ParticleMass
		v = V.AddScaled(v, s.data.Accelerations[i], dt)
		s.data.Velocities[i] = v
		s.data.Staged[i] = V.AddScaled(s.data.Staged[i], v, dt)
		s.encase(i)
	}
}

//EndStep swaps the buffers back, committing the integrated positions
func (s *Solver[T]) EndStep() {
	s.data.swap()
	s.inStep = false
}

//Step runs one full tick. mouse may be nil
func (s *Solver[T]) Step(dt float32, mouse *T) {
	s.BeginStep(dt)
	s.UpdateLookup()
	s.ComputeDensities()
	s.ApplyPressureAndViscosity()
	if mouse != nil {
		s.ApplyMouseForce(*mouse)
	}
	s.ApplyComputedForces(dt)
	s.EndStep()
}

//encase clamps particle i inside the box shrunk by the particle radius,
//reflecting and damping the velocity on every axis it crossed
func (s *Solver[T]) encase(i int) {
	factor := 1 - s.settings.EncaseFriction
	r := s.settings.ParticleRadius
	p := s.data.Staged[i]
	v := s.data.Velocities[i]
	for k := 0; k < len(p); k++ {
		if p[k]-r < s.box.Min[k] {
			p[k] = s.box.Min[k] + r
			v[k] = -factor * v[k]
		} else if p[k]+r > s.box.Max[k] {
			p[k] = s.box.Max[k] - r
			v[k] = -factor * v[k]
		}
	}
	s.data.Staged[i] = p
	s.data.Velocities[i] = v
}

//----------------------------------------------------------------------------
//Queries

//DensityAt samples the density and near density fields at point. Outside a step
//the lookup is rebuilt over the committed positions first
func (s *Solver[T]) DensityAt(point T) (float32, float32) {
	if !s.inStep {
		s.UpdateLookup()
	}
	return s.densityAt(point)
}

//densityAt sums the kernel weighted mass around point over the current lookup
func (s *Solver[T]) densityAt(point T) (float32, float32) {
	st := &s.settings
	h := st.SmoothingRadius
	density, nearDensity := float32(0), float32(0)
	s.lookup.ForEachNeighbor(point, func(j int, d float32) {
		density += st.ParticleMass * s.kernels.Value(st.DensityKernel, h, d)
		nearDensity += st.ParticleMass * s.kernels.Value(st.NearDensityKernel, h, d)
	})
	return density, nearDensity
}

//Pressure returns the pressure and near pressure of particle i
func (s *Solver[T]) Pressure(i int) (float32, float32) {
	return s.settings.Pressure(s.data.Densities[i], s.data.NearDensities[i])
}

func (s *Solver[T]) Count() int {
	return s.data.Len()
}

func (s *Solver[T]) Position(i int) T {
	return s.data.Positions[i]
}

func (s *Solver[T]) Velocity(i int) T {
	return s.data.Velocities[i]
}

func (s *Solver[T]) Acceleration(i int) T {
	return s.data.Accelerations[i]
}

func (s *Solver[T]) Density(i int) float32 {
	return s.data.Densities[i]
}

func (s *Solver[T]) NearDensity(i int) float32 {
	return s.data.NearDensities[i]
}

//Lookup exposes the neighbor search for diagnostics
func (s *Solver[T]) Lookup() Searcher[T] {
	return s.lookup
}
