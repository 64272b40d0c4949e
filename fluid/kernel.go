package fluid

import (
	"fmt"
	"strings"
)

const PI = 3.141592653589

//KernelType selects one of the smoothing kernel shapes. Kernels are a closed
//set so they are dispatched through a function table rather than an interface
type KernelType int

const (
	Spiky2 KernelType = iota //(h-d)^2 power law
	Spiky3                   //(h-d)^3 power law, default pressure kernel
	Spiky5                   //(h-d)^5 power law, default near pressure kernel
	Poly6                    //(h^2-d^2)^3 smooth polynomial
	CubicSpline              //M4 cubic B-spline with compact support h
	WendlandC2
	WendlandC4
	kernelCount
)

var kernelNames = [kernelCount]string{
	"Spiky2", "Spiky3", "Spiky5", "Poly6", "CubicSpline", "WendlandC2", "WendlandC4",
}

//KernelFunc maps (support radius h, distance d) to a weight or its radial slope.
//Every KernelFunc returns 0 for d >= h and never divides by d
type KernelFunc func(h float32, d float32) float32

//Kernel pairs the value and slope functions of one kernel shape
type Kernel struct {
	Value KernelFunc
	Slope KernelFunc
}

//KernelTable holds one Kernel per KernelType for a fixed dimensionality
type KernelTable [kernelCount]Kernel

//Kernels returns the kernel table normalized for dim (2 or 3)
func Kernels(dim int) (*KernelTable, error) {
	switch dim {
	case 2:
		return &kernels2D, nil
	case 3:
		return &kernels3D, nil
	}
	return nil, fmt.Errorf("%w: no kernels for dimension %d", ErrDimensionMismatch, dim)
}

//Value is a convenience for table lookups outside the solver hot loop
func (t *KernelTable) Value(k KernelType, h float32, d float32) float32 {
	return t[k].Value(h, d)
}

func (t *KernelTable) Slope(k KernelType, h float32, d float32) float32 {
	return t[k].Slope(h, d)
}

func (k KernelType) Valid() bool {
	return k >= 0 && k < kernelCount
}

func (k KernelType) String() string {
	if !k.Valid() {
		return fmt.Sprintf("KernelType(%d)", int(k))
	}
	return kernelNames[k]
}

//ParseKernelType accepts kernel names case insensitively
func ParseKernelType(s string) (KernelType, error) {
	for i, name := range kernelNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return KernelType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kernel %q", ErrInvalidSettings, s)
}

func (k KernelType) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: kernel %d", ErrInvalidSettings, int(k))
	}
	return []byte(k.String()), nil
}

func (k *KernelType) UnmarshalText(text []byte) error {
	parsed, err := ParseKernelType(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

//KernelTypes lists every kernel in declaration order
func KernelTypes() []KernelType {
	ks := make([]KernelType, kernelCount)
	for i := range ks {
		ks[i] = KernelType(i)
	}
	return ks
}

//--------------------------------------------------------------------------------
// Power law "spiky" kernels W = A (h-d)^n
// The normalization integrates (h-r)^n over the disc / ball of radius h:
//  2D: A = (n+1)(n+2) / (2 pi h^(n+2))
//  3D: A = (n+1)(n+2)(n+3) / (8 pi h^(n+3))

func pow(x float32, n int) float32 {
	r := float32(1)
	for i := 0; i < n; i++ {
		r *= x
	}
	return r
}

func spikyNorm(dim int, n int, h float32) float32 {
	if dim == 2 {
		return float32((n+1)*(n+2)) / (2 * PI * pow(h, n+2))
	}
	return float32((n+1)*(n+2)*(n+3)) / (8 * PI * pow(h, n+3))
}

func spiky(dim int, n int) Kernel {
	return Kernel{
		Value: func(h float32, d float32) float32 {
			if d >= h {
				return 0.0
			}
			return spikyNorm(dim, n, h) * pow(h-d, n)
		},
		Slope: func(h float32, d float32) float32 {
			if d >= h {
				return 0.0
			}
			return -float32(n) * spikyNorm(dim, n, h) * pow(h-d, n-1)
		},
	}
}

//--------------------------------------------------------------------------------
// Poly6 W = A (h^2-d^2)^3
//  2D: A = 4 / (pi h^8)
//  3D: A = 315 / (64 pi h^9)

func poly6(dim int) Kernel {
	norm := func(h float32) float32 {
		if dim == 2 {
			return 4 / (PI * pow(h, 8))
		}
		return 315 / (64 * PI * pow(h, 9))
	}
	return Kernel{
		Value: func(h float32, d float32) float32 {
			if d >= h {
				return 0.0
			}
			x := h*h - d*d
			return norm(h) * x * x * x
		},
		Slope: func(h float32, d float32) float32 {
			if d >= h {
				return 0.0
			}
			x := h*h - d*d
			return -6 * norm(h) * d * x * x
		},
	}
}

//--------------------------------------------------------------------------------
// Kernels expressed in q = d/h over the support [0, 1). Their derivative with
// respect to d is sigma/h * dW/dq

type shape struct {
	sigma2D float32 //normalization * h^2
	sigma3D float32 //normalization * h^3
	f       func(q float32) float32
	df      func(q float32) float32
}

func (s shape) kernel(dim int) Kernel {
	sigma := func(h float32) float32 {
		if dim == 2 {
			return s.sigma2D / (h * h)
		}
		return s.sigma3D / (h * h * h)
	}
	return Kernel{
		Value: func(h float32, d float32) float32 {
			if d >= h {
				return 0.0
			}
			return sigma(h) * s.f(d/h)
		},
		Slope: func(h float32, d float32) float32 {
			if d >= h {
				return 0.0
			}
			return sigma(h) / h * s.df(d/h)
		},
	}
}

//M4 cubic spline rescaled to support h
var cubicSpline = shape{
	sigma2D: 40 / (7 * PI),
	sigma3D: 8 / PI,
	f: func(q float32) float32 {
		if q <= 0.5 {
			return 6*(q*q*q-q*q) + 1
		}
		p := 1 - q
		return 2 * p * p * p
	},
	df: func(q float32) float32 {
		if q <= 0.5 {
			return 6 * (3*q*q - 2*q)
		}
		p := 1 - q
		return -6 * p * p
	},
}

var wendlandC2 = shape{
	sigma2D: 7 / PI,
	sigma3D: 21 / (2 * PI),
	f: func(q float32) float32 {
		p := 1 - q
		return p * p * p * p * (1 + 4*q)
	},
	df: func(q float32) float32 {
		p := 1 - q
		return -20 * q * p * p * p
	},
}

var wendlandC4 = shape{
	sigma2D: 9 / PI,
	sigma3D: 495 / (32 * PI),
	f: func(q float32) float32 {
		p := 1 - q
		return pow(p, 6) * (1 + 6*q + 35.0/3.0*q*q)
	},
	df: func(q float32) float32 {
		p := 1 - q
		return -56.0 / 3.0 * q * pow(p, 5) * (1 + 5*q)
	},
}

func buildKernels(dim int) KernelTable {
	return KernelTable{
		Spiky2:      spiky(dim, 2),
		Spiky3:      spiky(dim, 3),
		Spiky5:      spiky(dim, 5),
		Poly6:       poly6(dim),
		CubicSpline: cubicSpline.kernel(dim),
		WendlandC2:  wendlandC2.kernel(dim),
		WendlandC4:  wendlandC4.kernel(dim),
	}
}

var (
	kernels2D = buildKernels(2)
	kernels3D = buildKernels(3)
)
