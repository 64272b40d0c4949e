package fluid

import (
	G "flu.com/flu/geometry"
	V "flu.com/flu/vector"
)

//Snapshot - read only copy of what a renderer needs to draw one frame
type Snapshot[T V.Vec] struct {
	Positions  []T
	Velocities []T
	Radius     float32
	FastSpeed  float32
	Gradient   [3]string
	Box        G.Box[T]
}

//Snapshot copies the committed state. Call it between steps
func (s *Solver[T]) Snapshot() Snapshot[T] {
	return Snapshot[T]{
		Positions:  append([]T(nil), s.data.Positions...),
		Velocities: append([]T(nil), s.data.Velocities...),
		Radius:     s.settings.ParticleRadius,
		FastSpeed:  s.settings.FastSpeed,
		Gradient:   s.settings.Gradient,
		Box:        s.box,
	}
}

func (s *Snapshot[T]) Count() int {
	return len(s.Positions)
}

//Speed maps the speed of particle i onto [0, 1], saturating at FastSpeed
func (s *Snapshot[T]) Speed(i int) float32 {
	speed := V.Length(s.Velocities[i])
	if speed >= s.FastSpeed {
		return 1
	}
	return speed / s.FastSpeed
}
