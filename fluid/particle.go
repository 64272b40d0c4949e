package fluid

import V "flu.com/flu/vector"

//Particles - the particle ensemble stored as parallel arrays indexed by particle.
//Positions holds the committed positions between steps. During a step the two
//position buffers are swapped: Positions holds the predicted positions the
//lookup is built from while Staged holds the committed ones being integrated.
type Particles[T V.Vec] struct {
	Positions     []T
	Staged        []T
	Velocities    []T
	Accelerations []T
	Densities     []float32
	NearDensities []float32
}

//Len is the particle count
func (p *Particles[T]) Len() int {
	return len(p.Positions)
}

//add appends a resting particle whose densities hold only its own mass
func (p *Particles[T]) add(position T, mass float32) {
	var zero T
	p.Positions = append(p.Positions, position)
	p.Staged = append(p.Staged, position)
	p.Velocities = append(p.Velocities, zero)
	p.Accelerations = append(p.Accelerations, zero)
	p.Densities = append(p.Densities, mass)
	p.NearDensities = append(p.NearDensities, mass)
}

//swap exchanges the committed and in flight position buffers
func (p *Particles[T]) swap() {
	p.Positions, p.Staged = p.Staged, p.Positions
}

//reset clears the per step accumulators
func (p *Particles[T]) reset(mass float32) {
	var zero T
	for i := range p.Densities {
		p.Densities[i] = mass
		p.NearDensities[i] = mass
		p.Accelerations[i] = zero
	}
}
