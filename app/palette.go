package app

import (
	"fmt"

	F "flu.com/flu/fluid"
	V "flu.com/flu/vector"
	"github.com/mazznoer/colorgrad"
)

//Palette maps a normalized speed onto the slow to fast color gradient
type Palette struct {
	grad  colorgrad.Gradient
	stops [3]string
}

func NewPalette(stops [3]string) (*Palette, error) {
	grad, err := colorgrad.NewGradient().HtmlColors(stops[0], stops[1], stops[2]).Build()
	if err != nil {
		return nil, fmt.Errorf("%w: gradient %v: %v", F.ErrInvalidSettings, stops, err)
	}
	return &Palette{grad: grad, stops: stops}, nil
}

func (p *Palette) Stops() [3]string {
	return p.stops
}

//RGB returns the color at t in [0, 1] as 8 bit channels
func (p *Palette) RGB(t float32) (uint8, uint8, uint8) {
	return p.grad.At(float64(t)).RGB255()
}

func (p *Palette) Hex(t float32) string {
	return p.grad.At(float64(t)).Hex()
}

//ColorBuffer writes one rgb triple in [0, 1] per particle of snap into dst
func ColorBuffer[T V.Vec](p *Palette, snap *F.Snapshot[T], dst []float32) []float32 {
	n := 3 * snap.Count()
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i := 0; i < snap.Count(); i++ {
		c := p.grad.At(float64(snap.Speed(i)))
		dst[3*i] = float32(c.R)
		dst[3*i+1] = float32(c.G)
		dst[3*i+2] = float32(c.B)
	}
	return dst
}
