package integrators

// System is a first-order ODE over a flat state vector.
type System interface {
	Len() int
	Derive(x, dx []float64)
}

// Euler is the explicit first-order scheme x' = x + dt*f(x).
type Euler struct {
	dx []float64
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) ensureScratch(n int) {
	if len(e.dx) != n {
		e.dx = make([]float64, n)
	}
}

// Step writes x advanced by dt into dst. Every derivative is read from x
// before dst is touched, so dst and x may be the same slice.
func (e *Euler) Step(sys System, dst, x []float64, dt float64) {
	e.ensureScratch(sys.Len())

	sys.Derive(x, e.dx)
	for i := range x {
		dst[i] = x[i] + dt*e.dx[i]
	}
}
